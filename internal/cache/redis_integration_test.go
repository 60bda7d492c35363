//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/placesearch/internal/testutil"
)

func TestRedisCache_Integration(t *testing.T) {
	ctx := context.Background()

	rc := testutil.NewRedisContainer(ctx, t)
	defer rc.Terminate(ctx)

	client, err := NewRedisClient(ctx, RedisConfig{Addr: rc.Addr()})
	require.NoError(t, err)
	defer client.Close()

	c := NewRedisCache(client, time.Minute)

	t.Run("miss", func(t *testing.T) {
		_, ok, err := c.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("round trip", func(t *testing.T) {
		want := sampleResponse("카페")
		require.NoError(t, c.Set(ctx, "k1", want))

		got, ok, err := c.Get(ctx, "k1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want.NormalizedQuery, got.NormalizedQuery)
		assert.Equal(t, want.GeoCells, got.GeoCells)
		require.Len(t, got.Results, 1)
		assert.Equal(t, "p1", got.Results[0].Place.ID)
		assert.InDelta(t, 0.42, got.Results[0].Score, 1e-12)
	})

	t.Run("ttl is set", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "k2", sampleResponse("b")))
		ttl, err := client.TTL(ctx, c.redisKey("k2")).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, time.Minute)
	})

	t.Run("len and purge", func(t *testing.T) {
		n, err := c.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		require.NoError(t, c.Purge(ctx))
		n, err = c.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})
}
