package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInMemoryDescendantCache(t *testing.T) {
	ctx := context.Background()

	t.Run("stores and returns a copy", func(t *testing.T) {
		c := NewInMemoryDescendantCache(time.Minute)
		ids := []uint64{1, 2, 3}
		require.NoError(t, c.Set(ctx, 0, 1, ids))
		ids[0] = 99

		got, ok, err := c.Get(ctx, 0, 1)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []uint64{1, 2, 3}, got)

		got[1] = 42
		again, _, _ := c.Get(ctx, 0, 1)
		assert.Equal(t, []uint64{1, 2, 3}, again)
	})

	t.Run("miss for unknown root", func(t *testing.T) {
		c := NewInMemoryDescendantCache(time.Minute)
		_, ok, err := c.Get(ctx, 0, 5)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("expires entries after ttl", func(t *testing.T) {
		c := NewInMemoryDescendantCache(time.Minute)
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		c.now = func() time.Time { return now }
		require.NoError(t, c.Set(ctx, 0, 1, []uint64{1}))

		now = now.Add(2 * time.Minute)
		_, ok, err := c.Get(ctx, 0, 1)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("purge drops everything and starts a new generation", func(t *testing.T) {
		c := NewInMemoryDescendantCache(0)
		require.NoError(t, c.Set(ctx, 0, 1, []uint64{1}))
		require.NoError(t, c.Set(ctx, 0, 2, []uint64{2}))
		require.NoError(t, c.Purge(ctx))
		assert.Equal(t, 0, c.Len())

		gen, err := c.Generation(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), gen)
	})

	t.Run("set resolved before a purge is dropped", func(t *testing.T) {
		c := NewInMemoryDescendantCache(time.Minute)
		gen, err := c.Generation(ctx)
		require.NoError(t, err)

		require.NoError(t, c.Purge(ctx))
		require.NoError(t, c.Set(ctx, gen, 1, []uint64{1, 3}))
		assert.Equal(t, 0, c.Len())

		current, err := c.Generation(ctx)
		require.NoError(t, err)
		_, ok, err := c.Get(ctx, current, 1)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("reads with an old generation miss", func(t *testing.T) {
		c := NewInMemoryDescendantCache(time.Minute)
		require.NoError(t, c.Purge(ctx))
		require.NoError(t, c.Set(ctx, 1, 1, []uint64{1}))

		_, ok, err := c.Get(ctx, 0, 1)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestNopDescendantCache(t *testing.T) {
	var c DescendantCache = NopDescendantCache{}
	require.NoError(t, c.Set(context.Background(), 0, 1, []uint64{1}))
	_, ok, err := c.Get(context.Background(), 0, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func newRedisCache(t *testing.T) (*RedisDescendantCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	c := NewRedisDescendantCacheWithClient(client, "catalog:", time.Minute)
	t.Cleanup(func() { _ = c.Close() })
	return c, srv
}

func TestRedisDescendantCache(t *testing.T) {
	ctx := context.Background()

	t.Run("keys embed the generation", func(t *testing.T) {
		c, _ := newRedisCache(t)
		assert.Equal(t, "catalog:descendants:3:42", c.key(3, 42))
		assert.Equal(t, "catalog:descendants:generation", c.generationKey)
	})

	t.Run("stores with ttl and reads back", func(t *testing.T) {
		c, srv := newRedisCache(t)
		gen, err := c.Generation(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), gen)

		require.NoError(t, c.Set(ctx, gen, 1, []uint64{1, 2, 3}))
		got, ok, err := c.Get(ctx, gen, 1)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []uint64{1, 2, 3}, got)
		assert.Equal(t, time.Minute, srv.TTL("catalog:descendants:0:1"))

		srv.FastForward(2 * time.Minute)
		_, ok, err = c.Get(ctx, gen, 1)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("purge bumps the generation and deletes entries", func(t *testing.T) {
		c, srv := newRedisCache(t)
		require.NoError(t, c.Set(ctx, 0, 1, []uint64{1}))
		require.NoError(t, c.Set(ctx, 0, 2, []uint64{2}))
		require.NoError(t, srv.Set("catalog:other", "kept"))

		require.NoError(t, c.Purge(ctx))

		gen, err := c.Generation(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), gen)
		assert.False(t, srv.Exists("catalog:descendants:0:1"))
		assert.False(t, srv.Exists("catalog:descendants:0:2"))
		assert.True(t, srv.Exists("catalog:descendants:generation"))
		assert.True(t, srv.Exists("catalog:other"))
	})

	t.Run("set resolved before a purge is never served", func(t *testing.T) {
		c, _ := newRedisCache(t)
		stale, err := c.Generation(ctx)
		require.NoError(t, err)

		require.NoError(t, c.Purge(ctx))
		require.NoError(t, c.Set(ctx, stale, 1, []uint64{1, 3}))

		current, err := c.Generation(ctx)
		require.NoError(t, err)
		_, ok, err := c.Get(ctx, current, 1)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("corrupt entry is an error", func(t *testing.T) {
		c, srv := newRedisCache(t)
		require.NoError(t, srv.Set("catalog:descendants:0:1", "not json"))
		_, _, err := c.Get(ctx, 0, 1)
		assert.Error(t, err)
	})

	t.Run("unreachable server is an error", func(t *testing.T) {
		c, srv := newRedisCache(t)
		srv.Close()
		_, err := c.Generation(ctx)
		assert.Error(t, err)
	})
}

func TestNewDescendantCache(t *testing.T) {
	logger := zap.NewNop()

	t.Run("disabled yields nop", func(t *testing.T) {
		c := NewDescendantCache(config.CacheConfig{Enabled: false}, config.RedisConfig{}, logger)
		assert.IsType(t, NopDescendantCache{}, c)
	})

	t.Run("memory when redis not requested", func(t *testing.T) {
		c := NewDescendantCache(config.CacheConfig{Enabled: true}, config.RedisConfig{}, logger)
		assert.IsType(t, &InMemoryDescendantCache{}, c)
	})

	t.Run("falls back to memory when redis is unreachable", func(t *testing.T) {
		c := NewDescendantCache(
			config.CacheConfig{Enabled: true, UseRedis: true, KeyPrefix: "t:", DescendantTTL: time.Minute},
			config.RedisConfig{Host: "127.0.0.1", Port: 1},
			logger,
		)
		assert.IsType(t, &InMemoryDescendantCache{}, c)
	})
}
