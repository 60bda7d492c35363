package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/placesearch/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func floatPtr(v float64) *float64 { return &v }

func sampleResponse(query string) *domain.SearchResponse {
	return &domain.SearchResponse{
		TookMs:          3,
		Total:           1,
		NormalizedQuery: query,
		GeoCells:        []string{"wydm9q"},
		Results: []domain.ScoredPlace{{
			Place:         domain.PlaceCandidate{ID: "p1", Name: query, Tags: []string{"coffee"}},
			Score:         0.42,
			MatchedFields: []string{"name"},
		}},
	}
}

func TestKey(t *testing.T) {
	base := domain.SearchParams{Query: "카페", Radius: 3000, Limit: 10}
	assert.Equal(t, `v1|"카페"|||3000|10`, Key(base))

	withLoc := base
	withLoc.Lat = floatPtr(37.5665)
	withLoc.Lon = floatPtr(126.978)
	assert.Equal(t, `v1|"카페"|37.566500|126.978000|3000|10`, Key(withLoc))

	assert.Equal(t, Key(base), Key(domain.SearchParams{Query: "  카페 ", Radius: 3000, Limit: 10}))
	assert.Equal(t, Key(domain.SearchParams{Query: "Cafe", Radius: 3000, Limit: 10}),
		Key(domain.SearchParams{Query: "cafe", Radius: 3000, Limit: 10}))

	other := base
	other.Limit = 5
	assert.NotEqual(t, Key(base), Key(other))

	pipe := domain.SearchParams{Query: `a|37.000000`, Radius: 3000, Limit: 10}
	assert.NotEqual(t, Key(pipe), Key(domain.SearchParams{Query: "a", Lat: floatPtr(37), Lon: floatPtr(0), Radius: 3000, Limit: 10}))
}

func TestMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryCache(MemoryConfig{})
	require.NoError(t, err)

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", sampleResponse("카페")))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleResponse("카페"), got)

	assert.Error(t, c.Set(ctx, "nil", nil))
}

func TestMemoryCache_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryCache(MemoryConfig{})
	require.NoError(t, err)

	resp := sampleResponse("카페")
	require.NoError(t, c.Set(ctx, "k", resp))
	resp.Results[0].Place.Tags[0] = "mutated"

	got, _, _ := c.Get(ctx, "k")
	assert.Equal(t, "coffee", got.Results[0].Place.Tags[0])

	got.GeoCells[0] = "mutated"
	again, _, _ := c.Get(ctx, "k")
	assert.Equal(t, "wydm9q", again.GeoCells[0])
}

func TestMemoryCache_TTL(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c, err := NewMemoryCache(MemoryConfig{TTL: 5 * time.Minute, Now: clock.Now})
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "k", sampleResponse("a")))

	clock.Advance(5 * time.Minute)
	_, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok, "entry exactly at TTL is still fresh")

	clock.Advance(time.Second)
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok)

	n, _ := c.Len(ctx)
	assert.Equal(t, 0, n, "stale entry is evicted on read")
}

func TestMemoryCache_InsertionOrderEviction(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryCache(MemoryConfig{MaxEntries: 3})
	require.NoError(t, err)

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, c.Set(ctx, k, sampleResponse(k)))
	}

	// Reading "a" must not protect it from eviction.
	_, ok, _ := c.Get(ctx, "a")
	require.True(t, ok)

	require.NoError(t, c.Set(ctx, "d", sampleResponse("d")))

	_, ok, _ = c.Get(ctx, "a")
	assert.False(t, ok)
	for _, k := range []string{"b", "c", "d"} {
		_, ok, _ := c.Get(ctx, k)
		assert.True(t, ok, k)
	}

	n, _ := c.Len(ctx)
	assert.Equal(t, 3, n)
}

func TestMemoryCache_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c, err := NewMemoryCache(MemoryConfig{TTL: time.Minute, Now: clock.Now})
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "old1", sampleResponse("a")))
	require.NoError(t, c.Set(ctx, "old2", sampleResponse("b")))
	clock.Advance(2 * time.Minute)
	require.NoError(t, c.Set(ctx, "fresh", sampleResponse("c")))

	assert.Equal(t, 2, c.PurgeExpired())

	n, _ := c.Len(ctx)
	assert.Equal(t, 1, n)
	_, ok, _ := c.Get(ctx, "fresh")
	assert.True(t, ok)

	require.NoError(t, c.Purge(ctx))
	n, _ = c.Len(ctx)
	assert.Equal(t, 0, n)
}

func TestMemoryCache_Concurrent(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryCache(MemoryConfig{MaxEntries: 50})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("k%d", (worker*j)%80)
				_ = c.Set(ctx, key, sampleResponse(key))
				_, _, _ = c.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	n, _ := c.Len(ctx)
	assert.LessOrEqual(t, n, 50)
}
