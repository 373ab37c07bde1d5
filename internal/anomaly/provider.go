// Package anomaly implements the serving path: it loads the trained model at most
// once per process and turns metric events into verdicts.
package anomaly

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/miradorstack/mirador-selfheal/internal/artifact"
	"github.com/miradorstack/mirador-selfheal/internal/forest"
	"github.com/miradorstack/mirador-selfheal/internal/metrics"
	"github.com/miradorstack/mirador-selfheal/internal/models"
	"github.com/miradorstack/mirador-selfheal/internal/utils"
)

// Model labels a feature vector: forest.Outlier (-1) or forest.Inlier (1).
type Model interface {
	Predict(x []float64) (int, error)
}

// ModelProvider hands out the shared read-only model.
type ModelProvider interface {
	Get(ctx context.Context) (Model, error)
}

// LoaderFunc fetches and decodes a model.
type LoaderFunc func(ctx context.Context) (Model, error)

// LazyProvider loads the model on first use. Concurrent first callers share a single
// in-flight load, and the outcome, success or failure, is kept for the life of the
// process: the loader runs at most once.
type LazyProvider struct {
	load    LoaderFunc
	timeout time.Duration
	logger  *slog.Logger
	group   singleflight.Group

	mu     sync.RWMutex
	loaded bool
	model  Model
	err    error
}

// NewLazyProvider wraps load. A positive timeout bounds the single load attempt
// independently of whichever caller triggered it.
func NewLazyProvider(load LoaderFunc, timeout time.Duration, logger *slog.Logger) *LazyProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &LazyProvider{load: load, timeout: timeout, logger: logger}
}

// Get returns the model, triggering the load if nobody has yet. Every failure is
// reported as models.ErrModelUnavailable, including ctx ending while the load is
// still in flight; the load itself carries on for later callers.
func (p *LazyProvider) Get(ctx context.Context) (Model, error) {
	if model, err, ok := p.cached(); ok {
		return model, err
	}

	ch := p.group.DoChan("model", func() (any, error) {
		if model, err, ok := p.cached(); ok {
			return model, err
		}
		model, err := p.loadOnce(ctx)

		p.mu.Lock()
		p.loaded, p.model, p.err = true, model, err
		p.mu.Unlock()
		return model, err
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", models.ErrModelUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Model), nil
	}
}

func (p *LazyProvider) cached() (Model, error, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model, p.err, p.loaded
}

func (p *LazyProvider) loadOnce(ctx context.Context) (Model, error) {
	// The load outlives a cancelled first caller; its result is shared.
	loadCtx := context.WithoutCancel(ctx)
	if p.timeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(loadCtx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	model, err := p.load(loadCtx)
	elapsed := time.Since(start)
	if err == nil && model == nil {
		err = fmt.Errorf("loader returned no model")
	}
	if err != nil {
		metrics.ObserveModelLoad(elapsed, metrics.OutcomeError)
		p.logger.Error("model load failed", slog.Any("error", err), slog.Duration("elapsed", elapsed))
		return nil, fmt.Errorf("%w: %w", models.ErrModelUnavailable, err)
	}

	metrics.ObserveModelLoad(elapsed, metrics.OutcomeSuccess)
	p.logger.Info("model loaded", slog.Duration("elapsed", elapsed))
	return model, nil
}

// StaticProvider serves a model that is already in memory.
type StaticProvider struct {
	Model Model
}

// Get returns the wrapped model, or ErrModelUnavailable when there is none.
func (p StaticProvider) Get(context.Context) (Model, error) {
	if p.Model == nil {
		return nil, models.ErrModelUnavailable
	}
	return p.Model, nil
}

// ArtifactLoader fetches key from store and decodes it as a forest whose feature
// schema must match models.FeatureNames.
func ArtifactLoader(store artifact.Store, key string) LoaderFunc {
	return func(ctx context.Context) (Model, error) {
		data, err := store.Fetch(ctx, key)
		if err != nil {
			return nil, utils.WrapOp("fetch artifact", key, err)
		}
		f, err := forest.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, utils.WrapOp("decode artifact", key, err)
		}
		if !models.SameSchema(f.Features()) {
			return nil, fmt.Errorf("artifact %s has features %v, want %v: %w",
				key, f.Features(), models.FeatureNames, models.ErrSchemaMismatch)
		}
		return f, nil
	}
}
