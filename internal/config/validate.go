package config

import (
	"errors"
	"fmt"
	"regexp"
)

// ValidateScorer checks the settings used by the serving path.
func (c *Config) ValidateScorer() error {
	var errs []error
	if c.Model.Key == "" {
		errs = append(errs, errors.New("model.key is required"))
	}
	if c.Model.Bucket == "" && c.Model.Dir == "" {
		errs = append(errs, errors.New("one of model.bucket or model.dir is required"))
	}
	if c.Model.LoadTimeout <= 0 {
		errs = append(errs, errors.New("model.loadTimeout must be > 0"))
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		errs = append(errs, errors.New("cache.addr is required when cache is enabled"))
	}
	return wrap("scorer", errs)
}

// ValidateLogAnalyzer checks the settings used by the log analyzer.
func (c *Config) ValidateLogAnalyzer() error {
	var errs []error
	if c.Logs.LogGroup == "" {
		errs = append(errs, errors.New("logs.logGroup is required"))
	}
	if c.Logs.Window <= 0 {
		errs = append(errs, errors.New("logs.window must be > 0"))
	}
	if c.Logs.Limit <= 0 {
		errs = append(errs, errors.New("logs.limit must be > 0"))
	}
	if c.Logs.PollTimeout <= 0 {
		errs = append(errs, errors.New("logs.pollTimeout must be > 0"))
	}
	if c.Logs.PollInitial <= 0 || c.Logs.PollMaxInterval < c.Logs.PollInitial {
		errs = append(errs, fmt.Errorf("logs.pollInitial (%v) must be > 0 and <= pollMaxInterval (%v)", c.Logs.PollInitial, c.Logs.PollMaxInterval))
	}
	if _, err := regexp.Compile(c.Logs.Pattern); err != nil {
		errs = append(errs, fmt.Errorf("logs.pattern: %w", err))
	}
	return wrap("log analyzer", errs)
}

// ValidateRemediation checks the settings used by the remediation handler.
func (c *Config) ValidateRemediation() error {
	var errs []error
	if c.Remediation.InstanceID == "" {
		errs = append(errs, errors.New("remediation.instanceID is required"))
	}
	if c.Remediation.TopicARN == "" {
		errs = append(errs, errors.New("remediation.topicARN is required"))
	}
	if c.Remediation.Subject == "" {
		errs = append(errs, errors.New("remediation.subject is required"))
	}
	return wrap("remediation", errs)
}

// ValidateTraining checks the settings used by the offline trainer.
func (c *Config) ValidateTraining() error {
	var errs []error
	if c.Training.DataPath == "" {
		errs = append(errs, errors.New("training.dataPath is required"))
	}
	if c.Training.OutputDir == "" {
		errs = append(errs, errors.New("training.outputDir is required"))
	}
	if c.Training.Estimators <= 0 {
		errs = append(errs, errors.New("training.estimators must be > 0"))
	}
	if c.Training.MaxSamples <= 0 {
		errs = append(errs, errors.New("training.maxSamples must be > 0"))
	}
	return wrap("training", errs)
}

func wrap(section string, errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid %s config: %w", section, errors.Join(errs...))
}
