package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cloo-solutions/placesearch/internal/domain"
)

// MemoryConfig configures a MemoryCache. Zero values select the defaults.
type MemoryConfig struct {
	MaxEntries int
	TTL        time.Duration
	Now        func() time.Time
}

type cacheEntry struct {
	response *domain.SearchResponse
	storedAt time.Time
}

// MemoryCache is an in-process QueryCache.
//
// Eviction is by insertion order, not recency: reads use Peek so a hit never
// refreshes an entry's position, and when the cache is full the entry stored
// first is dropped. Expired entries are removed lazily on Get or in bulk by
// PurgeExpired.
type MemoryCache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, *cacheEntry]
	ttl     time.Duration
	now     func() time.Time
}

var _ QueryCache = (*MemoryCache)(nil)

// NewMemoryCache creates a cache sized by cfg.
func NewMemoryCache(cfg MemoryConfig) (*MemoryCache, error) {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	entries, err := lru.New[string, *cacheEntry](cfg.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	return &MemoryCache{
		entries: entries,
		ttl:     cfg.TTL,
		now:     cfg.Now,
	}, nil
}

func (c *MemoryCache) expired(e *cacheEntry, now time.Time) bool {
	return now.Sub(e.storedAt) > c.ttl
}

// Get returns a copy of the stored response. A stale entry is evicted and
// reported as a miss.
func (c *MemoryCache) Get(_ context.Context, key string) (*domain.SearchResponse, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries.Peek(key)
	if !ok {
		return nil, false, nil
	}
	if c.expired(entry, c.now()) {
		c.entries.Remove(key)
		return nil, false, nil
	}
	return entry.response.Clone(), true, nil
}

// Set stores a copy of resp, evicting the oldest entry when full.
func (c *MemoryCache) Set(_ context.Context, key string, resp *domain.SearchResponse) error {
	if resp == nil {
		return fmt.Errorf("cache: nil response for key %s", key)
	}

	entry := &cacheEntry{
		response: resp.Clone(),
		storedAt: c.now(),
	}

	c.mu.Lock()
	c.entries.Add(key, entry)
	c.mu.Unlock()
	return nil
}

// Len counts stored entries, including expired ones not yet purged.
func (c *MemoryCache) Len(_ context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len(), nil
}

// Purge drops every entry.
func (c *MemoryCache) Purge(_ context.Context) error {
	c.mu.Lock()
	c.entries.Purge()
	c.mu.Unlock()
	return nil
}

// PurgeExpired removes all stale entries and returns how many were removed.
func (c *MemoryCache) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, key := range c.entries.Keys() {
		entry, ok := c.entries.Peek(key)
		if ok && c.expired(entry, now) {
			c.entries.Remove(key)
			removed++
		}
	}
	return removed
}
