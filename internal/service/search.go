package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/cloo-solutions/placesearch/internal/cache"
	"github.com/cloo-solutions/placesearch/internal/domain"
	"github.com/cloo-solutions/placesearch/internal/geocell"
	"github.com/cloo-solutions/placesearch/internal/scorer"
	"github.com/cloo-solutions/placesearch/internal/telemetry"
	"github.com/cloo-solutions/placesearch/internal/tokenizer"
)

const (
	defaultFetchTimeout = 3 * time.Second

	candidateMultiplier = 5
	minCandidates       = 60
)

// CandidateSource supplies the places near a set of cells. Sources apply
// coarse filtering only; ranking happens here.
type CandidateSource interface {
	Fetch(ctx context.Context, q domain.CandidateQuery) ([]domain.PlaceCandidate, error)
}

// SearchServiceConfig configures SearchService. Zero values select defaults.
type SearchServiceConfig struct {
	FetchTimeout  time.Duration
	CellPrecision int
}

// SearchOutput is a response plus whether it came from the cache.
type SearchOutput struct {
	Response    *domain.SearchResponse
	CacheStatus domain.CacheStatus
}

// SearchService runs the search pipeline: validate, look up the cache, then on
// a miss compute cells, fetch, score, sort, truncate and store.
type SearchService struct {
	source CandidateSource
	cache  cache.QueryCache
	scorer *scorer.Scorer
	cfg    SearchServiceConfig
	group  singleflight.Group
}

// NewSearchService creates a SearchService. The scorer must already be
// validated, so weight errors surface at startup.
func NewSearchService(source CandidateSource, queryCache cache.QueryCache, sc *scorer.Scorer, cfg SearchServiceConfig) *SearchService {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.CellPrecision <= 0 {
		cfg.CellPrecision = geocell.DefaultPrecision
	}
	return &SearchService{
		source: source,
		cache:  queryCache,
		scorer: sc,
		cfg:    cfg,
	}
}

// FetchLimit is the number of candidates requested for a result limit.
func FetchLimit(limit int) int {
	return max(limit*candidateMultiplier, minCandidates)
}

// Search answers one request. Invalid parameters fail before the cache or the
// candidate source is touched; upstream failures are never cached.
func (s *SearchService) Search(ctx context.Context, params domain.SearchParams) (*SearchOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchService.Search", telemetry.SpanAttributes{
		Operation: "search",
	})
	defer span.End()

	start := time.Now()

	params = params.WithDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	key := cache.Key(params)

	if resp, ok := s.lookup(ctx, key); ok {
		recordCacheStatus(ctx, span, key, domain.CacheHit)
		resp.TookMs = time.Since(start).Milliseconds()
		return &SearchOutput{Response: resp, CacheStatus: domain.CacheHit}, nil
	}
	recordCacheStatus(ctx, span, key, domain.CacheMiss)

	// Identical concurrent misses share one computation. It runs detached from
	// the first caller's cancellation; each caller still honors its own ctx.
	ch := s.group.DoChan(key, func() (any, error) {
		return s.compute(context.WithoutCancel(ctx), params, key)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("search: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			span.SetError(res.Err)
			return nil, res.Err
		}
		resp := res.Val.(*domain.SearchResponse).Clone()
		resp.TookMs = time.Since(start).Milliseconds()
		return &SearchOutput{Response: resp, CacheStatus: domain.CacheMiss}, nil
	}
}

func recordCacheStatus(ctx context.Context, span *telemetry.Span, key string, status domain.CacheStatus) {
	span.SetAttributes(telemetry.SpanAttributes{CacheKey: key, CacheStatus: string(status)})
	telemetry.AddBreadcrumb(ctx, "cache", fmt.Sprintf("%s %s", status, key))
}

// lookup treats cache errors as misses.
func (s *SearchService) lookup(ctx context.Context, key string) (*domain.SearchResponse, bool) {
	if s.cache == nil {
		return nil, false
	}
	resp, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Printf("search: cache lookup failed: %v", err)
		return nil, false
	}
	return resp, ok
}

func (s *SearchService) compute(ctx context.Context, params domain.SearchParams, key string) (*domain.SearchResponse, error) {
	normalized := tokenizer.Normalize(params.Query)
	origin := params.Origin()

	cells := []string{}
	if origin != nil {
		center := geocell.Encode(origin.Lat, origin.Lon, s.cfg.CellPrecision)
		neighbors, err := geocell.Neighbors9(center)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to expand geo cells", err)
		}
		cells = neighbors
	}

	candidates, err := s.fetch(ctx, domain.CandidateQuery{
		Cells:        geocell.Dedupe(cells),
		Center:       origin,
		RadiusMeters: params.Radius,
		MaxResults:   FetchLimit(params.Limit),
		Text:         normalized,
	})
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "Scorer.ScorePlaces", telemetry.SpanAttributes{
		Candidates: len(candidates),
		Operation:  "score",
	})
	scored, skipped := s.scorer.ScorePlaces(normalized, candidates, origin)
	span.End()

	for _, sc := range skipped {
		log.Printf("search: skipped candidate %s: %v", sc.ID, sc.Err)
		telemetry.CaptureError(ctx, fmt.Errorf("skipped candidate %s: %w", sc.ID, sc.Err))
	}

	if origin != nil {
		scored = withinRadius(scored, float64(params.Radius))
	}

	total := len(scored)
	if len(scored) > params.Limit {
		scored = scored[:params.Limit]
	}

	resp := &domain.SearchResponse{
		Results:         scored,
		Total:           total,
		NormalizedQuery: normalized,
		GeoCells:        cells,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp); err != nil {
			log.Printf("search: cache store failed: %v", err)
		}
	}

	return resp, nil
}

func (s *SearchService) fetch(ctx context.Context, q domain.CandidateQuery) ([]domain.PlaceCandidate, error) {
	ctx, span := telemetry.StartSpan(ctx, "CandidateSource.Fetch", telemetry.SpanAttributes{
		Cells:     len(q.Cells),
		Operation: "fetch",
	})
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	candidates, err := s.source.Fetch(ctx, q)
	if err != nil {
		span.SetError(err)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUpstreamTimeout,
				fmt.Sprintf("candidate fetch exceeded %s", s.cfg.FetchTimeout), err)
		}
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, "candidate source failed", err)
	}
	return candidates, nil
}

// withinRadius drops candidates the source's cell prefilter let through from
// beyond the requested radius. Order is preserved.
func withinRadius(scored []domain.ScoredPlace, radius float64) []domain.ScoredPlace {
	kept := scored[:0]
	for _, sp := range scored {
		if !sp.HasDistance || sp.DistanceMeters <= radius {
			kept = append(kept, sp)
		}
	}
	return kept
}
