package domain

import (
	"fmt"
	"time"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// PlaceCandidate is a place row supplied by a candidate source for one request.
// The engine never mutates it.
type PlaceCandidate struct {
	ID          string     `json:"id" bson:"_id"`
	Name        string     `json:"name" bson:"name"`
	NameEn      string     `json:"name_en,omitempty" bson:"name_en,omitempty"`
	Tags        []string   `json:"tags" bson:"tags"`
	Description string     `json:"description,omitempty" bson:"description,omitempty"`
	Lat         float64    `json:"lat" bson:"lat"`
	Lon         float64    `json:"lon" bson:"lon"`
	Geohash     string     `json:"geohash,omitempty" bson:"geohash"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	LastPostAt  *time.Time `json:"last_post_at,omitempty" bson:"last_post_at,omitempty"`
	PostCount   int        `json:"post_count" bson:"post_count"`
	SaveCount   int        `json:"save_count" bson:"save_count"`
	VisitCount  int        `json:"visit_count" bson:"visit_count"`
}

// LastActivity returns the most recent post time, falling back to creation time.
func (p PlaceCandidate) LastActivity() time.Time {
	if p.LastPostAt != nil && !p.LastPostAt.IsZero() {
		return *p.LastPostAt
	}
	return p.CreatedAt
}

// ValidatePlace checks the fields required for import and scoring.
func ValidatePlace(p *PlaceCandidate) error {
	if p.ID == "" {
		return NewDomainError(ErrCodeValidation, "place id is required")
	}
	if p.Name == "" {
		return NewDomainError(ErrCodeValidation, fmt.Sprintf("place %s: name is required", p.ID))
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return NewDomainError(ErrCodeValidation, fmt.Sprintf("place %s: coordinates out of range", p.ID))
	}
	if p.PostCount < 0 || p.SaveCount < 0 || p.VisitCount < 0 {
		return NewDomainError(ErrCodeValidation, fmt.Sprintf("place %s: counters must be non-negative", p.ID))
	}
	return nil
}

// ScoreBreakdown records each weighted factor's raw value.
type ScoreBreakdown struct {
	TextMatch    float64 `json:"textMatch"`
	GeoProximity float64 `json:"geoProximity"`
	Freshness    float64 `json:"freshness"`
	Popularity   float64 `json:"popularity"`
	Penalties    float64 `json:"penalties"`
}

// ScoredPlace is a candidate with its relevance score. Lives only inside one response.
type ScoredPlace struct {
	Place          PlaceCandidate
	Score          float64
	DistanceMeters float64
	// HasDistance is false when the request carried no coordinates.
	HasDistance   bool
	Breakdown     ScoreBreakdown
	MatchedFields []string
}

// CandidateQuery is what the engine asks of a candidate source.
type CandidateQuery struct {
	Cells        []string
	Center       *Coordinates
	RadiusMeters int
	MaxResults   int
	// Text is a coarse prefilter hint. Sources may use it for ordering but
	// must not exclude rows on it, since ranking is typo tolerant.
	Text string
}
