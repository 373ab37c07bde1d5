package artifact

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/miradorstack/mirador-selfheal/internal/cache"
)

// CachedStore reads through a shared byte cache before hitting the backing store.
// Cache failures degrade to a direct fetch.
type CachedStore struct {
	store  Store
	cache  cache.Provider
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedStore wraps store with provider; a nil provider disables caching.
func NewCachedStore(store Store, provider cache.Provider, ttl time.Duration, logger *slog.Logger) *CachedStore {
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStore{store: store, cache: provider, ttl: ttl, logger: logger}
}

// Fetch returns the cached artifact or loads and caches it.
func (s *CachedStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	cacheKey := cache.Key("artifact", key)
	data, err := s.cache.Get(ctx, cacheKey)
	if err == nil {
		s.logger.Debug("artifact cache hit", slog.String("key", key))
		return data, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("artifact cache read failed", slog.String("key", key), slog.Any("error", err))
	}

	data, err = s.store.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, cacheKey, data, s.ttl); err != nil {
		s.logger.Warn("artifact cache write failed", slog.String("key", key), slog.Any("error", err))
	}
	return data, nil
}

// Put publishes through the backing store when it supports publishing and
// invalidates the cached copy.
func (s *CachedStore) Put(ctx context.Context, key string, data []byte) error {
	pub, ok := s.store.(Publisher)
	if !ok {
		return errors.New("backing artifact store does not accept uploads")
	}
	if err := pub.Put(ctx, key, data); err != nil {
		return err
	}
	if err := s.cache.Del(ctx, cache.Key("artifact", key)); err != nil {
		s.logger.Warn("artifact cache invalidation failed", slog.String("key", key), slog.Any("error", err))
	}
	return nil
}
