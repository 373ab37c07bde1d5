//go:build integration

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestRedisProviderAgainstContainer(t *testing.T) {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	provider, err := NewRedisProvider(RedisConfig{Addr: endpoint})
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Close() })

	key := Key("artifact", "isolation_forest_model.json")

	_, err = provider.Get(ctx, key)
	require.True(t, errors.Is(err, ErrCacheMiss))

	require.NoError(t, provider.Set(ctx, key, []byte("artifact"), time.Minute))
	got, err := provider.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "artifact", string(got))

	require.NoError(t, provider.Del(ctx, key))
	_, err = provider.Get(ctx, key)
	require.True(t, errors.Is(err, ErrCacheMiss))
}

func TestNewRedisProviderRequiresAddr(t *testing.T) {
	_, err := NewRedisProvider(RedisConfig{})
	require.Error(t, err)
}
