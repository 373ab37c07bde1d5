package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures every setting the self-healing entry points need. Each entry
// point validates only the sections it uses, once, at startup.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	AWS         AWSConfig         `yaml:"aws"`
	Model       ModelConfig       `yaml:"model"`
	Scoring     ScoringConfig     `yaml:"scoring"`
	Logs        LogsConfig        `yaml:"logs"`
	Remediation RemediationConfig `yaml:"remediation"`
	Cache       CacheConfig       `yaml:"cache"`
	Audit       AuditConfig       `yaml:"audit"`
	Training    TrainingConfig    `yaml:"training"`
}

// ServerConfig controls gRPC listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// AWSConfig overrides SDK defaults; empty values defer to the shared AWS config chain.
type AWSConfig struct {
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// ModelConfig locates the model artifact. Bucket selects S3; otherwise Dir is a local root.
type ModelConfig struct {
	Bucket string `yaml:"bucket"`
	Key    string `yaml:"key"`
	Dir    string `yaml:"dir"`
	// LoadTimeout bounds the one-time artifact fetch and decode.
	LoadTimeout time.Duration `yaml:"loadTimeout"`
}

// ScoringConfig tunes the serving path.
type ScoringConfig struct {
	// AllowTestDefaults substitutes placeholder metrics for missing event fields.
	// Manual testing only: it hides real anomalies.
	AllowTestDefaults bool `yaml:"allowTestDefaults"`
}

// LogsConfig configures the log-query collaborator and its polling bound.
type LogsConfig struct {
	LogGroup        string        `yaml:"logGroup"`
	Window          time.Duration `yaml:"window"`
	Pattern         string        `yaml:"pattern"`
	Limit           int           `yaml:"limit"`
	PollInitial     time.Duration `yaml:"pollInitial"`
	PollMaxInterval time.Duration `yaml:"pollMaxInterval"`
	PollTimeout     time.Duration `yaml:"pollTimeout"`
}

// RemediationConfig configures command dispatch and notification.
type RemediationConfig struct {
	InstanceID   string `yaml:"instanceID"`
	TopicARN     string `yaml:"topicARN"`
	Subject      string `yaml:"subject"`
	PlaybookPath string `yaml:"playbookPath"`
}

// CacheConfig controls the Redis-backed model artifact cache.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	ModelTTL     time.Duration `yaml:"modelTTL"`
}

// AuditConfig points at the SQLite remediation audit log; empty disables it.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// TrainingConfig holds defaults for the offline training command.
type TrainingConfig struct {
	DataPath   string `yaml:"dataPath"`
	OutputDir  string `yaml:"outputDir"`
	Estimators int    `yaml:"estimators"`
	MaxSamples int    `yaml:"maxSamples"`
	Seed       int64  `yaml:"seed"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("SELFHEAL_CONFIG")
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when no file or environment is supplied.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Model:   ModelConfig{Key: "isolation_forest_model.json", LoadTimeout: 30 * time.Second},
		Logs: LogsConfig{
			Window:          5 * time.Minute,
			Pattern:         `(?i)(error|failed|exception|timeout)`,
			Limit:           20,
			PollInitial:     500 * time.Millisecond,
			PollMaxInterval: 5 * time.Second,
			PollTimeout:     60 * time.Second,
		},
		Remediation: RemediationConfig{Subject: "AIOps Self-Healing Notification"},
		Cache: CacheConfig{
			Enabled:      false,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
			ModelTTL:     time.Hour,
		},
		Training: TrainingConfig{
			DataPath:   "dataset/sample_metrics.csv",
			OutputDir:  "trained_models",
			Estimators: 100,
			MaxSamples: 256,
			Seed:       42,
		},
	}
}

// envString lists override variables for a field; the first non-empty one wins.
type envString struct {
	names []string
	dst   *string
}

func applyEnvOverrides(cfg *Config) {
	strs := []envString{
		{[]string{"SELFHEAL_SERVER_ADDRESS"}, &cfg.Server.Address},
		{[]string{"SELFHEAL_METRICS_ADDRESS"}, &cfg.Server.MetricsAddress},
		{[]string{"SELFHEAL_LOG_LEVEL"}, &cfg.Logging.Level},
		{[]string{"SELFHEAL_AWS_REGION", "AWS_REGION"}, &cfg.AWS.Region},
		{[]string{"SELFHEAL_AWS_ENDPOINT"}, &cfg.AWS.Endpoint},
		{[]string{"SELFHEAL_MODEL_BUCKET", "S3_BUCKET"}, &cfg.Model.Bucket},
		{[]string{"SELFHEAL_MODEL_KEY", "MODEL_KEY"}, &cfg.Model.Key},
		{[]string{"SELFHEAL_MODEL_DIR"}, &cfg.Model.Dir},
		{[]string{"SELFHEAL_LOG_GROUP", "LOG_GROUP_NAME"}, &cfg.Logs.LogGroup},
		{[]string{"SELFHEAL_LOG_PATTERN"}, &cfg.Logs.Pattern},
		{[]string{"SELFHEAL_INSTANCE_ID", "INSTANCE_ID"}, &cfg.Remediation.InstanceID},
		{[]string{"SELFHEAL_TOPIC_ARN", "SNS_TOPIC_ARN"}, &cfg.Remediation.TopicARN},
		{[]string{"SELFHEAL_PLAYBOOK_PATH"}, &cfg.Remediation.PlaybookPath},
		{[]string{"SELFHEAL_CACHE_ADDR"}, &cfg.Cache.Addr},
		{[]string{"SELFHEAL_CACHE_USERNAME"}, &cfg.Cache.Username},
		{[]string{"SELFHEAL_CACHE_PASSWORD"}, &cfg.Cache.Password},
		{[]string{"SELFHEAL_AUDIT_PATH"}, &cfg.Audit.Path},
	}
	for _, s := range strs {
		for _, name := range s.names {
			if v := os.Getenv(name); v != "" {
				*s.dst = v
				break
			}
		}
	}

	if v := os.Getenv("SELFHEAL_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("SELFHEAL_ALLOW_TEST_DEFAULTS"); v != "" {
		cfg.Scoring.AllowTestDefaults = parseBool(v)
	}
	if v := os.Getenv("SELFHEAL_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = parseBool(v)
	}
	if v := os.Getenv("SELFHEAL_CACHE_TLS"); v != "" {
		cfg.Cache.TLS = parseBool(v)
	}
	if v := os.Getenv("SELFHEAL_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("SELFHEAL_LOG_LIMIT"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			cfg.Logs.Limit = limit
		}
	}

	durations := map[string]*time.Duration{
		"SELFHEAL_LOG_WINDOW":         &cfg.Logs.Window,
		"SELFHEAL_LOG_POLL_TIMEOUT":   &cfg.Logs.PollTimeout,
		"SELFHEAL_CACHE_MODEL_TTL":    &cfg.Cache.ModelTTL,
		"SELFHEAL_MODEL_LOAD_TIMEOUT": &cfg.Model.LoadTimeout,
		"SELFHEAL_GRACEFUL_TIMEOUT":   &cfg.Server.GracefulTimeout,
	}
	for name, dst := range durations {
		if v := os.Getenv(name); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}
}

func parseBool(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}
