package repository

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"github.com/cloo-solutions/placesearch/internal/domain"
	"github.com/cloo-solutions/placesearch/internal/service"
	"github.com/cloo-solutions/placesearch/internal/tokenizer"
)

// MemoryPlaceRepository keeps places in process. It backs local development
// and end-to-end tests with the same filtering as the database sources.
type MemoryPlaceRepository struct {
	mu     sync.RWMutex
	places map[string]domain.PlaceCandidate
}

func NewMemoryPlaceRepository(places ...domain.PlaceCandidate) *MemoryPlaceRepository {
	r := &MemoryPlaceRepository{places: make(map[string]domain.PlaceCandidate, len(places))}
	for _, p := range places {
		r.places[p.ID] = p
	}
	return r
}

// LoadMemoryPlaceRepository reads a JSON seed file.
func LoadMemoryPlaceRepository(path string) (*MemoryPlaceRepository, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	places, err := service.DecodePlaces(f, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return NewMemoryPlaceRepository(places...), nil
}

func (r *MemoryPlaceRepository) Fetch(ctx context.Context, q domain.CandidateQuery) ([]domain.PlaceCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bound, hasBound := radiusBound(q)
	text := tokenizer.Normalize(q.Text)

	r.mu.RLock()
	out := make([]domain.PlaceCandidate, 0, len(r.places))
	for _, p := range r.places {
		if len(q.Cells) > 0 && !hasCellPrefix(p.Geohash, q.Cells) {
			continue
		}
		if hasBound && !bound.Contains(orb.Point{p.Lon, p.Lat}) {
			continue
		}
		out = append(out, p)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.PlaceCandidate) int {
		am, bm := nameContains(a, text), nameContains(b, text)
		if am != bm {
			if am {
				return -1
			}
			return 1
		}
		if a.PostCount != b.PostCount {
			return b.PostCount - a.PostCount
		}
		return strings.Compare(a.ID, b.ID)
	})

	if q.MaxResults > 0 && len(out) > q.MaxResults {
		out = out[:q.MaxResults]
	}
	return out, nil
}

func (r *MemoryPlaceRepository) UpsertPlaces(ctx context.Context, places []domain.PlaceCandidate) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range places {
		r.places[p.ID] = p
	}
	return len(places), nil
}

func (r *MemoryPlaceRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.places)
}

func hasCellPrefix(geohash string, cells []string) bool {
	for _, c := range cells {
		if strings.HasPrefix(geohash, c) {
			return true
		}
	}
	return false
}

func nameContains(p domain.PlaceCandidate, text string) bool {
	if text == "" {
		return false
	}
	return strings.Contains(tokenizer.Normalize(p.Name), text) ||
		strings.Contains(tokenizer.Normalize(p.NameEn), text)
}

var (
	_ service.CandidateSource = (*MemoryPlaceRepository)(nil)
	_ service.PlaceWriter     = (*MemoryPlaceRepository)(nil)
	_ service.CandidateSource = (*PlaceRepository)(nil)
	_ service.PlaceWriter     = (*PlaceRepository)(nil)
	_ service.CandidateSource = (*MongoPlaceRepository)(nil)
	_ service.PlaceWriter     = (*MongoPlaceRepository)(nil)
)
