package jobs

import (
	"context"
	"fmt"
	"log"
	"time"
)

// ExpiredPurger drops cache entries whose TTL has passed.
type ExpiredPurger interface {
	PurgeExpired() int
}

// CacheJanitor evicts stale query cache entries between reads. Lookups already
// treat stale entries as misses; this keeps them from holding capacity.
type CacheJanitor struct {
	cache ExpiredPurger
}

func NewCacheJanitor(cache ExpiredPurger) *CacheJanitor {
	return &CacheJanitor{cache: cache}
}

// ProcessJobs implements the JobProcessor interface
func (j *CacheJanitor) ProcessJobs(ctx context.Context) error {
	if n := j.cache.PurgeExpired(); n > 0 {
		log.Printf("cache janitor: purged %d expired entries", n)
	}
	return nil
}

// SearchLogPruner deletes search logs older than a cutoff.
type SearchLogPruner interface {
	DeleteSearchLogsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SearchLogRetention keeps the search log table bounded.
type SearchLogRetention struct {
	repo      SearchLogPruner
	retention time.Duration
	now       func() time.Time
}

func NewSearchLogRetention(repo SearchLogPruner, retention time.Duration) *SearchLogRetention {
	return &SearchLogRetention{repo: repo, retention: retention, now: time.Now}
}

// ProcessJobs implements the JobProcessor interface
func (r *SearchLogRetention) ProcessJobs(ctx context.Context) error {
	cutoff := r.now().UTC().Add(-r.retention)
	n, err := r.repo.DeleteSearchLogsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune search logs: %w", err)
	}
	if n > 0 {
		log.Printf("search log retention: deleted %d logs before %s", n, cutoff.Format(time.RFC3339))
	}
	return nil
}
