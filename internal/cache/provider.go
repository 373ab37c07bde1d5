// Package cache holds the byte cache that model artifacts are read through.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Provider stores opaque byte values under string keys with an optional TTL.
// A TTL <= 0 keeps the value until it is deleted.
type Provider interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Close() error
}

// ErrCacheMiss is returned by Get for absent or expired keys.
var ErrCacheMiss = errors.New("cache miss")

// KeyPrefix namespaces every key written by this service.
const KeyPrefix = "selfheal"

// Key joins parts under KeyPrefix, e.g. Key("artifact", "model.json") is
// "selfheal:artifact:model.json".
func Key(parts ...string) string {
	return KeyPrefix + ":" + strings.Join(parts, ":")
}

// NoopProvider misses on every read.
type NoopProvider struct{}

func (NoopProvider) Get(context.Context, string) ([]byte, error) { return nil, ErrCacheMiss }

func (NoopProvider) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NoopProvider) Del(context.Context, string) error { return nil }

func (NoopProvider) Close() error { return nil }
