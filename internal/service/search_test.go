package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/placesearch/internal/cache"
	"github.com/cloo-solutions/placesearch/internal/domain"
	"github.com/cloo-solutions/placesearch/internal/scorer"
)

// MockCandidateSource is a mock implementation of CandidateSource
type MockCandidateSource struct {
	mock.Mock
}

func (m *MockCandidateSource) Fetch(ctx context.Context, q domain.CandidateQuery) ([]domain.PlaceCandidate, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PlaceCandidate), args.Error(1)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var seoulCityHall = domain.Coordinates{Lat: 37.5665, Lon: 126.9780}

func floatPtr(v float64) *float64 { return &v }

func fixturePlaces(now time.Time) []domain.PlaceCandidate {
	day := 24 * time.Hour
	return []domain.PlaceCandidate{
		{ID: "c1", Name: "카페 서울", Tags: []string{"coffee"}, Lat: 37.5670, Lon: 126.9785, CreatedAt: now.Add(-2 * day), PostCount: 12, SaveCount: 30, VisitCount: 200},
		{ID: "c2", Name: "블루보틀 카페", NameEn: "Blue Bottle Cafe", Lat: 37.5700, Lon: 126.9830, CreatedAt: now.Add(-10 * day), PostCount: 40, SaveCount: 120, VisitCount: 900},
		{ID: "c3", Name: "카페 어니언", Lat: 37.5800, Lon: 126.9780, CreatedAt: now.Add(-30 * day), PostCount: 5},
		{ID: "c4", Name: "강남 카페", Lat: 37.4979, Lon: 127.0276, CreatedAt: now.Add(-1 * day), PostCount: 3},
		{ID: "c5", Name: "카페 라떼", Lat: 37.5650, Lon: 126.9770, CreatedAt: now.Add(-5 * day), PostCount: 2},
		{ID: "c6", Name: "테스트 카페", Lat: 37.5660, Lon: 126.9790, CreatedAt: now, PostCount: 0},
		{ID: "n1", Name: "서울도서관", Lat: 37.5662, Lon: 126.9779, CreatedAt: now.Add(-100 * day), PostCount: 50},
		{ID: "g1", Name: "강남역 맛집", Lat: 37.4980, Lon: 127.0280, CreatedAt: now.Add(-3 * day), PostCount: 8},
	}
}

type serviceFixture struct {
	svc    *SearchService
	source *MockCandidateSource
	cache  *cache.MemoryCache
	clock  *testClock
}

func newServiceFixture(t *testing.T, cfg SearchServiceConfig) *serviceFixture {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}

	qc, err := cache.NewMemoryCache(cache.MemoryConfig{Now: clock.Now})
	require.NoError(t, err)

	sc, err := scorer.New(scorer.Config{Now: clock.Now})
	require.NoError(t, err)

	source := &MockCandidateSource{}
	return &serviceFixture{
		svc:    NewSearchService(source, qc, sc, cfg),
		source: source,
		cache:  qc,
		clock:  clock,
	}
}

func TestFetchLimit(t *testing.T) {
	assert.Equal(t, 60, FetchLimit(1))
	assert.Equal(t, 60, FetchLimit(12))
	assert.Equal(t, 100, FetchLimit(20))
	assert.Equal(t, 250, FetchLimit(50))
}

func TestSearchService_TextOnly(t *testing.T) {
	f := newServiceFixture(t, SearchServiceConfig{})
	ctx := context.Background()

	f.source.On("Fetch", mock.Anything, mock.MatchedBy(func(q domain.CandidateQuery) bool {
		return len(q.Cells) == 0 && q.Center == nil && q.MaxResults == 60 && q.Text == "강남"
	})).Return(fixturePlaces(f.clock.Now()), nil).Once()

	out, err := f.svc.Search(ctx, domain.SearchParams{Query: "강남"})
	require.NoError(t, err)

	assert.Equal(t, domain.CacheMiss, out.CacheStatus)
	resp := out.Response
	require.NotEmpty(t, resp.Results)
	assert.NotNil(t, resp.GeoCells)
	assert.Empty(t, resp.GeoCells)
	assert.Equal(t, "강남", resp.NormalizedQuery)

	for _, r := range resp.Results {
		assert.Equal(t, scorer.NeutralGeoProximity, r.Breakdown.GeoProximity)
		assert.False(t, r.HasDistance)
	}
	assert.Contains(t, []string{"c4", "g1"}, resp.Results[0].Place.ID)

	f.source.AssertExpectations(t)
}

func TestSearchService_WithLocation(t *testing.T) {
	f := newServiceFixture(t, SearchServiceConfig{})
	ctx := context.Background()

	f.source.On("Fetch", mock.Anything, mock.MatchedBy(func(q domain.CandidateQuery) bool {
		return len(q.Cells) == 9 && q.Center != nil && q.RadiusMeters == 3000 && q.MaxResults == 60
	})).Return(fixturePlaces(f.clock.Now()), nil).Once()

	out, err := f.svc.Search(ctx, domain.SearchParams{
		Query:  "카페",
		Lat:    floatPtr(seoulCityHall.Lat),
		Lon:    floatPtr(seoulCityHall.Lon),
		Radius: 3000,
		Limit:  5,
	})
	require.NoError(t, err)

	resp := out.Response
	assert.Len(t, resp.GeoCells, 9)
	assert.LessOrEqual(t, len(resp.Results), 5)
	assert.Len(t, resp.Results, 5)
	// c4 and g1 are in Gangnam, outside the radius.
	assert.Equal(t, 6, resp.Total)

	for i, r := range resp.Results {
		assert.True(t, r.HasDistance)
		assert.LessOrEqual(t, r.DistanceMeters, 3000.0)
		assert.NotEqual(t, "c4", r.Place.ID)
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
		if i > 0 {
			assert.GreaterOrEqual(t, resp.Results[i-1].Score, r.Score-0.001)
		}
	}

	f.source.AssertExpectations(t)
}

func TestSearchService_CacheHitThenExpiry(t *testing.T) {
	f := newServiceFixture(t, SearchServiceConfig{})
	ctx := context.Background()

	f.source.On("Fetch", mock.Anything, mock.Anything).Return(fixturePlaces(f.clock.Now()), nil)

	params := domain.SearchParams{Query: "카페", Lat: floatPtr(37.5665), Lon: floatPtr(126.978)}

	first, err := f.svc.Search(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, domain.CacheMiss, first.CacheStatus)

	f.clock.Advance(4 * time.Minute)
	second, err := f.svc.Search(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, domain.CacheHit, second.CacheStatus)
	assert.Equal(t, first.Response.Results, second.Response.Results)
	f.source.AssertNumberOfCalls(t, "Fetch", 1)

	f.clock.Advance(time.Minute + time.Second)
	third, err := f.svc.Search(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, domain.CacheMiss, third.CacheStatus)
	f.source.AssertNumberOfCalls(t, "Fetch", 2)
}

func TestSearchService_CachedValueIsNotShared(t *testing.T) {
	f := newServiceFixture(t, SearchServiceConfig{})
	ctx := context.Background()
	f.source.On("Fetch", mock.Anything, mock.Anything).Return(fixturePlaces(f.clock.Now()), nil)

	params := domain.SearchParams{Query: "카페"}
	first, err := f.svc.Search(ctx, params)
	require.NoError(t, err)
	require.NotEmpty(t, first.Response.Results)
	firstID := first.Response.Results[0].Place.ID
	first.Response.Results[0].Place.ID = "mutated"

	second, err := f.svc.Search(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, domain.CacheHit, second.CacheStatus)
	assert.Equal(t, firstID, second.Response.Results[0].Place.ID)
}

func TestSearchService_ValidationSkipsUpstream(t *testing.T) {
	f := newServiceFixture(t, SearchServiceConfig{})
	ctx := context.Background()

	tests := []struct {
		name   string
		params domain.SearchParams
		field  string
	}{
		{"lat out of range", domain.SearchParams{Query: "카페", Lat: floatPtr(999), Lon: floatPtr(126.978)}, "lat"},
		{"lat is NaN", domain.SearchParams{Query: "카페", Lat: floatPtr(math.NaN()), Lon: floatPtr(126.978)}, "lat"},
		{"empty query", domain.SearchParams{Query: ""}, "q"},
		{"radius too large", domain.SearchParams{Query: "카페", Radius: 20000}, "radius"},
		{"limit too large", domain.SearchParams{Query: "카페", Limit: 51}, "limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := f.svc.Search(ctx, tt.params)
			assert.Nil(t, out)
			require.ErrorIs(t, err, domain.ErrValidation)

			var de *domain.DomainError
			require.True(t, errors.As(err, &de))
			assert.Contains(t, de.Fields, tt.field)
		})
	}

	f.source.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	n, _ := f.cache.Len(ctx)
	assert.Equal(t, 0, n)
}

func TestSearchService_UpstreamErrorNotCached(t *testing.T) {
	f := newServiceFixture(t, SearchServiceConfig{})
	ctx := context.Background()

	f.source.On("Fetch", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused")).Once()

	_, err := f.svc.Search(ctx, domain.SearchParams{Query: "카페"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.True(t, domain.IsRetryable(err))

	n, _ := f.cache.Len(ctx)
	assert.Equal(t, 0, n)

	f.source.On("Fetch", mock.Anything, mock.Anything).Return(fixturePlaces(f.clock.Now()), nil).Once()
	out, err := f.svc.Search(ctx, domain.SearchParams{Query: "카페"})
	require.NoError(t, err)
	assert.Equal(t, domain.CacheMiss, out.CacheStatus)
}

func TestSearchService_UpstreamTimeout(t *testing.T) {
	f := newServiceFixture(t, SearchServiceConfig{FetchTimeout: 20 * time.Millisecond})
	ctx := context.Background()

	f.source.On("Fetch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded).Once()

	_, err := f.svc.Search(ctx, domain.SearchParams{Query: "카페"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, domain.IsRetryable(err))

	n, _ := f.cache.Len(ctx)
	assert.Equal(t, 0, n)
}

func TestSearchService_SkipsBrokenCandidates(t *testing.T) {
	f := newServiceFixture(t, SearchServiceConfig{})
	ctx := context.Background()

	places := fixturePlaces(f.clock.Now())
	places = append(places, domain.PlaceCandidate{ID: "broken", Name: "카페", Lat: math.NaN(), Lon: 126.978})
	f.source.On("Fetch", mock.Anything, mock.Anything).Return(places, nil).Once()

	out, err := f.svc.Search(ctx, domain.SearchParams{Query: "카페", Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, len(places)-1, out.Response.Total)
	for _, r := range out.Response.Results {
		assert.NotEqual(t, "broken", r.Place.ID)
	}
}

func TestSearchService_CollapsesConcurrentMisses(t *testing.T) {
	f := newServiceFixture(t, SearchServiceConfig{})
	ctx := context.Background()

	release := make(chan struct{})
	f.source.On("Fetch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { <-release }).
		Return(fixturePlaces(f.clock.Now()), nil)

	const callers = 4
	outputs := make([]*SearchOutput, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outputs[i], errs[i] = f.svc.Search(ctx, domain.SearchParams{Query: "카페"})
		}(i)
	}

	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, outputs[0].Response.Results, outputs[i].Response.Results)
	}
	f.source.AssertNumberOfCalls(t, "Fetch", 1)

	outputs[0].Response.Results[0].Place.Name = "mutated"
	assert.NotEqual(t, "mutated", outputs[1].Response.Results[0].Place.Name)
}

func TestSearchService_CallerCancellation(t *testing.T) {
	f := newServiceFixture(t, SearchServiceConfig{FetchTimeout: time.Second})

	release := make(chan struct{})
	defer close(release)
	f.source.On("Fetch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { <-release }).
		Return(fixturePlaces(f.clock.Now()), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.svc.Search(ctx, domain.SearchParams{Query: "카페"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
