// Package scorer ranks place candidates by a weighted blend of text relevance,
// distance, freshness and popularity.
package scorer

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/cloo-solutions/placesearch/internal/domain"
	"github.com/cloo-solutions/placesearch/internal/tokenizer"
)

// Scores closer than this are ordered by distance instead.
const scoreTieEpsilon = 0.001

// Config configures a Scorer. Zero values select the defaults.
type Config struct {
	Weights         Weights
	Tokenizer       tokenizer.Options
	MaxTypoDistance int
	Now             func() time.Time
}

// Scorer is safe for concurrent use.
type Scorer struct {
	weights Weights
	opts    tokenizer.Options
	maxTypo int
	now     func() time.Time
}

// SkippedCandidate is a candidate dropped during scoring.
type SkippedCandidate struct {
	ID  string
	Err error
}

// New validates the configuration once so that no request pays for it.
func New(cfg Config) (*Scorer, error) {
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights()
	}
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	if cfg.Tokenizer == (tokenizer.Options{}) {
		cfg.Tokenizer = defaultTokenizerOptions()
	}
	if cfg.MaxTypoDistance <= 0 {
		cfg.MaxTypoDistance = tokenizer.DefaultMaxTypoDistance
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Scorer{
		weights: cfg.Weights,
		opts:    cfg.Tokenizer,
		maxTypo: cfg.MaxTypoDistance,
		now:     cfg.Now,
	}, nil
}

// MustNew is New for startup wiring; it panics on a bad configuration.
func MustNew(cfg Config) *Scorer {
	s, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return s
}

// Weights returns the validated weights.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// ScorePlace scores one candidate. A nil origin means the request carried no
// coordinates: proximity is neutral and no distance is reported.
func (s *Scorer) ScorePlace(query string, p domain.PlaceCandidate, origin *domain.Coordinates) domain.ScoredPlace {
	return s.score(prepareQuery(query, s.opts), p, origin, s.now())
}

func (s *Scorer) score(q preparedQuery, p domain.PlaceCandidate, origin *domain.Coordinates, now time.Time) domain.ScoredPlace {
	text := q.match(p, s.opts, s.maxTypo)

	geo := NeutralGeoProximity
	var distance float64
	hasDistance := false
	if origin != nil {
		geo, distance = GeoProximity(origin.Lat, origin.Lon, p.Lat, p.Lon)
		hasDistance = true
	}

	breakdown := domain.ScoreBreakdown{
		TextMatch:    text.Score,
		GeoProximity: geo,
		Freshness:    Freshness(p.CreatedAt, now),
		Popularity:   Popularity(p),
		Penalties:    Penalties(p),
	}

	raw := s.weights.TextMatch*breakdown.TextMatch +
		s.weights.GeoProximity*breakdown.GeoProximity +
		s.weights.Freshness*breakdown.Freshness +
		s.weights.Popularity*breakdown.Popularity -
		breakdown.Penalties

	return domain.ScoredPlace{
		Place:          p,
		Score:          clamp01(raw),
		DistanceMeters: distance,
		HasDistance:    hasDistance,
		Breakdown:      breakdown,
		MatchedFields:  text.MatchedFields,
	}
}

// ScorePlaces scores and sorts candidates. A candidate with unusable
// coordinates or one that fails while scoring is skipped and reported; the
// rest are still ranked.
func (s *Scorer) ScorePlaces(query string, places []domain.PlaceCandidate, origin *domain.Coordinates) ([]domain.ScoredPlace, []SkippedCandidate) {
	q := prepareQuery(query, s.opts)
	now := s.now()

	scored := make([]domain.ScoredPlace, 0, len(places))
	var skipped []SkippedCandidate

	for _, p := range places {
		if err := checkCoordinates(p); err != nil {
			skipped = append(skipped, SkippedCandidate{ID: p.ID, Err: err})
			continue
		}
		sp, err := s.safeScore(q, p, origin, now)
		if err != nil {
			skipped = append(skipped, SkippedCandidate{ID: p.ID, Err: err})
			continue
		}
		scored = append(scored, sp)
	}

	SortScored(scored)
	return scored, skipped
}

func (s *Scorer) safeScore(q preparedQuery, p domain.PlaceCandidate, origin *domain.Coordinates, now time.Time) (sp domain.ScoredPlace, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scoring place %s panicked: %v", p.ID, r)
		}
	}()
	return s.score(q, p, origin, now), nil
}

func checkCoordinates(p domain.PlaceCandidate) error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) ||
		p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("place %s has invalid coordinates (%v, %v)", p.ID, p.Lat, p.Lon)
	}
	return nil
}

// SortScored orders by score descending. Scores within 0.001 of each other are
// ordered by ascending distance, then by place ID.
//
// The 0.001 tie is pairwise and not transitive (0.5000, 0.5008 and 0.5016 tie
// in neighbouring pairs only), so the input is first put in ID order. The
// result then depends on the set of places, not on the order they arrived in.
func SortScored(places []domain.ScoredPlace) {
	slices.SortFunc(places, compareCanonical)
	slices.SortStableFunc(places, compareScored)
}

func compareCanonical(a, b domain.ScoredPlace) int {
	if c := strings.Compare(a.Place.ID, b.Place.ID); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	return cmp.Compare(a.DistanceMeters, b.DistanceMeters)
}

func compareScored(a, b domain.ScoredPlace) int {
	if diff := a.Score - b.Score; math.Abs(diff) >= scoreTieEpsilon {
		if diff > 0 {
			return -1
		}
		return 1
	}
	if a.DistanceMeters != b.DistanceMeters {
		if a.DistanceMeters < b.DistanceMeters {
			return -1
		}
		return 1
	}
	return strings.Compare(a.Place.ID, b.Place.ID)
}
