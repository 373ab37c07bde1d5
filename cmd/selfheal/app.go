package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/miradorstack/mirador-selfheal/internal/anomaly"
	"github.com/miradorstack/mirador-selfheal/internal/artifact"
	"github.com/miradorstack/mirador-selfheal/internal/audit"
	"github.com/miradorstack/mirador-selfheal/internal/cache"
	"github.com/miradorstack/mirador-selfheal/internal/config"
	"github.com/miradorstack/mirador-selfheal/internal/loganalyzer"
	"github.com/miradorstack/mirador-selfheal/internal/remediation"
	"github.com/miradorstack/mirador-selfheal/internal/retry"
	"github.com/miradorstack/mirador-selfheal/internal/utils"
)

// app builds components from configuration and owns their shutdown.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	aws     *aws.Config
	closers []func() error
}

func newApp(opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	slog.SetDefault(logger)
	return &app{cfg: cfg, logger: logger}, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", slog.Any("error", err))
		}
	}
}

func (a *app) awsConfig(ctx context.Context) (aws.Config, error) {
	if a.aws != nil {
		return *a.aws, nil
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if a.cfg.AWS.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(a.cfg.AWS.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	if a.cfg.AWS.Endpoint != "" {
		cfg.BaseEndpoint = aws.String(a.cfg.AWS.Endpoint)
	}
	a.aws = &cfg
	return cfg, nil
}

// artifactStore returns the configured model store: S3 when a bucket is set, the local
// directory otherwise, read through the shared cache when enabled.
func (a *app) artifactStore(ctx context.Context) (*artifact.CachedStore, error) {
	var backing artifact.Store
	if a.cfg.Model.Bucket != "" {
		awsCfg, err := a.awsConfig(ctx)
		if err != nil {
			return nil, err
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = a.cfg.AWS.Endpoint != ""
		})
		store, err := artifact.NewS3Store(client, a.cfg.Model.Bucket)
		if err != nil {
			return nil, err
		}
		backing = store
	} else {
		backing = artifact.FileStore{Root: a.cfg.Model.Dir}
	}
	return artifact.NewCachedStore(backing, a.cacheProvider(), a.cfg.Cache.ModelTTL, a.logger), nil
}

func (a *app) cacheProvider() cache.Provider {
	if !a.cfg.Cache.Enabled {
		return cache.NoopProvider{}
	}
	provider, err := cache.NewRedisProvider(cache.RedisConfig{
		Addr:         a.cfg.Cache.Addr,
		Username:     a.cfg.Cache.Username,
		Password:     a.cfg.Cache.Password,
		DB:           a.cfg.Cache.DB,
		DialTimeout:  a.cfg.Cache.DialTimeout,
		ReadTimeout:  a.cfg.Cache.ReadTimeout,
		WriteTimeout: a.cfg.Cache.WriteTimeout,
		MaxRetries:   a.cfg.Cache.MaxRetries,
		TLS:          a.cfg.Cache.TLS,
	})
	if err != nil {
		a.logger.Warn("redis cache unavailable, using in-process cache", slog.Any("error", err))
		return cache.NewMemoryProvider()
	}
	a.closers = append(a.closers, provider.Close)
	return provider
}

func (a *app) scorer(ctx context.Context) (*anomaly.Scorer, error) {
	if err := a.cfg.ValidateScorer(); err != nil {
		return nil, err
	}
	store, err := a.artifactStore(ctx)
	if err != nil {
		return nil, err
	}
	if a.cfg.Scoring.AllowTestDefaults {
		a.logger.Warn("scoring.allowTestDefaults is on: missing metrics will be replaced with placeholders")
	}
	provider := anomaly.NewLazyProvider(anomaly.ArtifactLoader(store, a.cfg.Model.Key), a.cfg.Model.LoadTimeout, a.logger)
	return anomaly.NewScorer(provider, anomaly.EventOptions{AllowTestDefaults: a.cfg.Scoring.AllowTestDefaults}, a.logger), nil
}

func (a *app) analyzer(ctx context.Context) (*loganalyzer.Analyzer, error) {
	if err := a.cfg.ValidateLogAnalyzer(); err != nil {
		return nil, err
	}
	awsCfg, err := a.awsConfig(ctx)
	if err != nil {
		return nil, err
	}
	querier, err := loganalyzer.NewCloudWatchQuerier(cloudwatchlogs.NewFromConfig(awsCfg))
	if err != nil {
		return nil, err
	}
	return loganalyzer.NewAnalyzer(querier, loganalyzer.Options{
		LogGroup: a.cfg.Logs.LogGroup,
		Window:   a.cfg.Logs.Window,
		Pattern:  a.cfg.Logs.Pattern,
		Limit:    a.cfg.Logs.Limit,
		Poll: retry.Policy{
			InitialInterval: a.cfg.Logs.PollInitial,
			MaxInterval:     a.cfg.Logs.PollMaxInterval,
			Timeout:         a.cfg.Logs.PollTimeout,
		},
		Logger: a.logger,
	})
}

func (a *app) auditRecorder() (audit.Recorder, error) {
	if a.cfg.Audit.Path == "" {
		return audit.Noop{}, nil
	}
	store, err := audit.Open(a.cfg.Audit.Path)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)
	return store, nil
}

func (a *app) remediator(ctx context.Context) (*remediation.Handler, error) {
	if err := a.cfg.ValidateRemediation(); err != nil {
		return nil, err
	}
	awsCfg, err := a.awsConfig(ctx)
	if err != nil {
		return nil, err
	}
	dispatcher, err := remediation.NewSSMDispatcher(ssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, err
	}
	notifier, err := remediation.NewSNSNotifier(sns.NewFromConfig(awsCfg), a.cfg.Remediation.TopicARN)
	if err != nil {
		return nil, err
	}
	playbook, err := remediation.LoadPlaybook(a.cfg.Remediation.PlaybookPath, a.logger)
	if err != nil {
		return nil, err
	}
	recorder, err := a.auditRecorder()
	if err != nil {
		return nil, err
	}
	return remediation.NewHandler(dispatcher, notifier, remediation.Options{
		InstanceID: a.cfg.Remediation.InstanceID,
		Subject:    a.cfg.Remediation.Subject,
		Playbook:   playbook,
		Audit:      recorder,
		Logger:     a.logger,
	})
}

var errUnknownFunction = errors.New("unknown lambda function")
