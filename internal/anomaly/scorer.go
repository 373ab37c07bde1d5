package anomaly

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/miradorstack/mirador-selfheal/internal/forest"
	"github.com/miradorstack/mirador-selfheal/internal/metrics"
	"github.com/miradorstack/mirador-selfheal/internal/models"
)

// Scorer labels feature vectors with the shared model.
type Scorer struct {
	provider ModelProvider
	events   EventOptions
	logger   *slog.Logger
}

// NewScorer constructs a Scorer. events controls DecodeEvent for ScoreEvent.
func NewScorer(provider ModelProvider, events EventOptions, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	if events.Logger == nil {
		events.Logger = logger
	}
	return &Scorer{provider: provider, events: events, logger: logger}
}

// Warm forces the model load, typically at cold start.
func (s *Scorer) Warm(ctx context.Context) error {
	_, err := s.provider.Get(ctx)
	return err
}

// Score returns the verdict for v. It does not retry and has no side effects beyond metrics.
func (s *Scorer) Score(ctx context.Context, v models.FeatureVector) (models.Verdict, error) {
	model, err := s.provider.Get(ctx)
	if err != nil {
		metrics.ObserveScoreError(models.ErrorKind(err))
		return models.Verdict{}, err
	}

	start := time.Now()
	label, err := model.Predict(v.Values())
	if err != nil {
		err = fmt.Errorf("predict: %w: %w", models.ErrSchemaMismatch, err)
		metrics.ObserveScoreError(models.ErrorKind(err))
		return models.Verdict{}, err
	}

	verdict := models.Verdict{
		IsAnomaly:      label == forest.Outlier,
		CPUUtilization: v.CPUUtilization,
		MemoryUsage:    v.MemoryUsage,
	}
	metrics.ObserveScore(time.Since(start), verdict.IsAnomaly)
	if verdict.IsAnomaly {
		s.logger.Info("anomaly detected",
			slog.Float64("cpu_utilization", v.CPUUtilization),
			slog.Float64("memory_usage", v.MemoryUsage))
	}
	return verdict, nil
}

// ScoreEvent decodes a raw JSON metric event and scores it.
func (s *Scorer) ScoreEvent(ctx context.Context, raw []byte) (models.Verdict, error) {
	v, err := DecodeEvent(raw, s.events)
	if err != nil {
		metrics.ObserveScoreError(models.ErrorKind(err))
		return models.Verdict{}, err
	}
	return s.Score(ctx, v)
}
