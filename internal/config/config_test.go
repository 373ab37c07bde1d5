package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SELFHEAL_CONFIG", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Logs.Window != 5*time.Minute || cfg.Logs.Limit != 20 {
		t.Fatalf("unexpected log defaults: %+v", cfg.Logs)
	}
	if cfg.Remediation.Subject != "AIOps Self-Healing Notification" {
		t.Fatalf("unexpected subject %q", cfg.Remediation.Subject)
	}
	if cfg.Scoring.AllowTestDefaults {
		t.Fatalf("test defaults must be off unless requested")
	}
	if cfg.Model.LoadTimeout != 30*time.Second {
		t.Fatalf("expected bounded model load by default, got %v", cfg.Model.LoadTimeout)
	}
}

func TestModelLoadTimeoutOverride(t *testing.T) {
	t.Setenv("SELFHEAL_MODEL_LOAD_TIMEOUT", "5s")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model.LoadTimeout != 5*time.Second {
		t.Fatalf("expected load timeout override, got %v", cfg.Model.LoadTimeout)
	}

	cfg.Model.Dir = "trained_models"
	cfg.Model.LoadTimeout = 0
	if err := cfg.ValidateScorer(); err == nil {
		t.Fatalf("expected an unbounded model load to be rejected")
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "selfheal.yaml")
	if err := os.WriteFile(path, []byte(`
model:
  bucket: from-file
  key: models/forest.json
logs:
  logGroup: /aws/ec2/httpd
  window: 10m
`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("S3_BUCKET", "legacy-bucket")
	t.Setenv("SELFHEAL_LOG_WINDOW", "2m")
	t.Setenv("INSTANCE_ID", "i-0abc")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model.Bucket != "legacy-bucket" {
		t.Fatalf("expected env bucket override, got %q", cfg.Model.Bucket)
	}
	if cfg.Model.Key != "models/forest.json" {
		t.Fatalf("expected key from file, got %q", cfg.Model.Key)
	}
	if cfg.Logs.Window != 2*time.Minute {
		t.Fatalf("expected window override, got %v", cfg.Logs.Window)
	}
	if cfg.Remediation.InstanceID != "i-0abc" {
		t.Fatalf("expected instance id from env, got %q", cfg.Remediation.InstanceID)
	}
}

func TestPrefixedEnvWinsOverLegacy(t *testing.T) {
	t.Setenv("SELFHEAL_MODEL_BUCKET", "new")
	t.Setenv("S3_BUCKET", "old")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model.Bucket != "new" {
		t.Fatalf("expected prefixed variable to win, got %q", cfg.Model.Bucket)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()

	if err := cfg.ValidateScorer(); err == nil {
		t.Fatalf("expected scorer validation to require a model location")
	}
	cfg.Model.Dir = "trained_models"
	if err := cfg.ValidateScorer(); err != nil {
		t.Fatalf("unexpected scorer error: %v", err)
	}

	if err := cfg.ValidateLogAnalyzer(); err == nil {
		t.Fatalf("expected log analyzer validation to require a log group")
	}
	cfg.Logs.LogGroup = "/aws/ec2/httpd"
	if err := cfg.ValidateLogAnalyzer(); err != nil {
		t.Fatalf("unexpected log analyzer error: %v", err)
	}
	cfg.Logs.Pattern = "(unclosed"
	if err := cfg.ValidateLogAnalyzer(); err == nil {
		t.Fatalf("expected invalid pattern to be rejected")
	}

	if err := cfg.ValidateRemediation(); err == nil {
		t.Fatalf("expected remediation validation to fail")
	}
	cfg.Remediation.InstanceID = "i-0abc"
	cfg.Remediation.TopicARN = "arn:aws:sns:us-east-1:123456789012:selfheal"
	if err := cfg.ValidateRemediation(); err != nil {
		t.Fatalf("unexpected remediation error: %v", err)
	}

	if err := cfg.ValidateTraining(); err != nil {
		t.Fatalf("unexpected training error: %v", err)
	}
}
