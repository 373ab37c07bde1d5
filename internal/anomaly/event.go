package anomaly

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/miradorstack/mirador-selfheal/internal/models"
)

// Placeholder metrics substituted for missing fields when test defaults are allowed.
const (
	TestDefaultCPUUtilization = 85.0
	TestDefaultMemoryUsage    = 50.0
)

// EventOptions controls how metric events are decoded.
type EventOptions struct {
	// AllowTestDefaults fills missing fields with placeholder values instead of
	// rejecting the event. Manual testing only.
	AllowTestDefaults bool
	Logger            *slog.Logger
}

// DecodeEvent extracts the feature vector from a JSON metric event. Both features must
// be present as finite numbers or numeric strings; extra fields are ignored.
func DecodeEvent(raw []byte, opts EventOptions) (models.FeatureVector, error) {
	if !gjson.ValidBytes(raw) {
		return models.FeatureVector{}, fmt.Errorf("event is not valid JSON: %w", models.ErrSchemaMismatch)
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return models.FeatureVector{}, fmt.Errorf("event must be a JSON object: %w", models.ErrSchemaMismatch)
	}

	cpu, err := feature(root, models.FeatureCPUUtilization, TestDefaultCPUUtilization, opts)
	if err != nil {
		return models.FeatureVector{}, err
	}
	mem, err := feature(root, models.FeatureMemoryUsage, TestDefaultMemoryUsage, opts)
	if err != nil {
		return models.FeatureVector{}, err
	}
	return models.FeatureVector{CPUUtilization: cpu, MemoryUsage: mem}, nil
}

func feature(root gjson.Result, name string, fallback float64, opts EventOptions) (float64, error) {
	res := root.Get(gjson.Escape(name))
	if !res.Exists() || res.Type == gjson.Null {
		if !opts.AllowTestDefaults {
			return 0, fmt.Errorf("missing field %q: %w", name, models.ErrSchemaMismatch)
		}
		logger := opts.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("metric field missing, using test default",
			slog.String("field", name), slog.Float64("value", fallback))
		return fallback, nil
	}

	var value float64
	switch res.Type {
	case gjson.Number:
		value = res.Float()
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(res.Str), 64)
		if err != nil {
			return 0, fmt.Errorf("field %q is not numeric: %w", name, models.ErrSchemaMismatch)
		}
		value = parsed
	default:
		return 0, fmt.Errorf("field %q has type %s: %w", name, res.Type, models.ErrSchemaMismatch)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("field %q is not finite: %w", name, models.ErrSchemaMismatch)
	}
	return value, nil
}
