// Package training fits the anomaly model from historical metrics and persists it.
package training

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/miradorstack/mirador-selfheal/internal/artifact"
	"github.com/miradorstack/mirador-selfheal/internal/forest"
	"github.com/miradorstack/mirador-selfheal/internal/models"
)

// ArtifactName is the file the trainer writes inside the output directory.
const ArtifactName = "isolation_forest_model.json"

// Trainer fits and persists the anomaly model.
type Trainer struct {
	params     forest.Params
	publisher  artifact.Publisher
	publishKey string
	logger     *slog.Logger
}

// Option customises a Trainer.
type Option func(*Trainer)

// WithParams overrides the forest parameters. The feature schema is always models.FeatureNames.
func WithParams(p forest.Params) Option {
	return func(t *Trainer) { t.params = p }
}

// WithPublisher uploads the artifact under key after it is written locally.
func WithPublisher(p artifact.Publisher, key string) Option {
	return func(t *Trainer) {
		t.publisher = p
		t.publishKey = key
	}
}

// NewTrainer constructs a Trainer with the standard forest parameters.
func NewTrainer(logger *slog.Logger, opts ...Option) *Trainer {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Trainer{params: forest.DefaultParams(), logger: logger}
	for _, opt := range opts {
		opt(t)
	}
	t.params.Features = append([]string(nil), models.FeatureNames...)
	if t.publishKey == "" {
		t.publishKey = ArtifactName
	}
	return t
}

// Train reads dataPath, fits the model and writes it to outputDir, returning the
// artifact path. When the data is unavailable nothing is written and outputDir is
// not created.
func (t *Trainer) Train(ctx context.Context, dataPath, outputDir string) (string, error) {
	start := time.Now()
	logger := t.logger.With(slog.String("data", dataPath))

	samples, err := LoadSamples(dataPath)
	if err != nil {
		logger.Error("training data unavailable", slog.Any("error", err))
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rows := make([][]float64, len(samples))
	for i, s := range samples {
		rows[i] = s.Features().Values()
	}

	model, err := forest.Fit(rows, t.params)
	if err != nil {
		return "", fmt.Errorf("fit model: %w", err)
	}

	var buf bytes.Buffer
	if err := model.Encode(&buf); err != nil {
		return "", fmt.Errorf("encode model: %w", err)
	}

	path := filepath.Join(outputDir, ArtifactName)
	if err := artifact.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return "", fmt.Errorf("persist model: %w", err)
	}
	logger.Info("model trained",
		slog.String("artifact", path),
		slog.Int("rows", len(rows)),
		slog.Int("estimators", model.Params().Estimators),
		slog.Float64("threshold", model.Threshold()),
		slog.Duration("elapsed", time.Since(start)))

	if t.publisher != nil {
		if err := t.publisher.Put(ctx, t.publishKey, buf.Bytes()); err != nil {
			return path, fmt.Errorf("publish model: %w", err)
		}
		logger.Info("model published", slog.String("key", t.publishKey))
	}
	return path, nil
}

// Train fits the model with default parameters. See Trainer.Train.
func Train(ctx context.Context, dataPath, outputDir string) (string, error) {
	return NewTrainer(nil).Train(ctx, dataPath, outputDir)
}
