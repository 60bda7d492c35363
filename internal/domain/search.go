package domain

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Search parameter bounds.
const (
	MinQueryLength = 1
	MaxQueryLength = 100

	MinRadiusMeters     = 100
	MaxRadiusMeters     = 10000
	DefaultRadiusMeters = 3000

	MinLimit     = 1
	MaxLimit     = 50
	DefaultLimit = 10
)

// SearchParams are the inputs of one search request.
// Zero Radius and Limit mean "use the default".
type SearchParams struct {
	Query  string
	Lat    *float64
	Lon    *float64
	Radius int
	Limit  int
}

// HasLocation reports whether both coordinates are present.
func (p SearchParams) HasLocation() bool {
	return p.Lat != nil && p.Lon != nil
}

// Origin returns the user location, or nil for text-only searches.
func (p SearchParams) Origin() *Coordinates {
	if !p.HasLocation() {
		return nil
	}
	return &Coordinates{Lat: *p.Lat, Lon: *p.Lon}
}

// WithDefaults fills unset radius and limit.
func (p SearchParams) WithDefaults() SearchParams {
	if p.Radius == 0 {
		p.Radius = DefaultRadiusMeters
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	return p
}

// Validate checks every parameter and reports all violations at once.
func (p SearchParams) Validate() error {
	fields := map[string]string{}

	n := utf8.RuneCountInString(strings.TrimSpace(p.Query))
	if n < MinQueryLength || n > MaxQueryLength {
		fields["q"] = fmt.Sprintf("must be between %d and %d characters", MinQueryLength, MaxQueryLength)
	}

	if (p.Lat == nil) != (p.Lon == nil) {
		if p.Lat == nil {
			fields["lat"] = "is required when lon is given"
		} else {
			fields["lon"] = "is required when lat is given"
		}
	}
	if p.Lat != nil && !inRange(*p.Lat, -90, 90) {
		fields["lat"] = "must be between -90 and 90"
	}
	if p.Lon != nil && !inRange(*p.Lon, -180, 180) {
		fields["lon"] = "must be between -180 and 180"
	}

	if p.Radius < MinRadiusMeters || p.Radius > MaxRadiusMeters {
		fields["radius"] = fmt.Sprintf("must be between %d and %d meters", MinRadiusMeters, MaxRadiusMeters)
	}
	if p.Limit < MinLimit || p.Limit > MaxLimit {
		fields["limit"] = fmt.Sprintf("must be between %d and %d", MinLimit, MaxLimit)
	}

	if len(fields) > 0 {
		return NewValidationError(fields)
	}
	return nil
}

// inRange is false for NaN, which fails every comparison.
func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}

// ParseSearchParams reads query-string parameters. Parse failures are reported
// as field errors; range checks are left to Validate. Explicitly supplied
// values are kept even when zero so that Validate rejects them.
func ParseSearchParams(values url.Values) (SearchParams, error) {
	params := SearchParams{Query: values.Get("q")}
	fields := map[string]string{}

	parseFloat := func(name string) *float64 {
		raw := strings.TrimSpace(values.Get(name))
		if raw == "" {
			return nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			fields[name] = "must be a number"
			return nil
		}
		return &v
	}
	parseInt := func(name string, def int) int {
		raw := strings.TrimSpace(values.Get(name))
		if raw == "" {
			return def
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			fields[name] = "must be an integer"
			return def
		}
		if v == 0 {
			// keep zero distinguishable from "unset"
			return -1
		}
		return v
	}

	params.Lat = parseFloat("lat")
	params.Lon = parseFloat("lon")
	params.Radius = parseInt("radius", DefaultRadiusMeters)
	params.Limit = parseInt("limit", DefaultLimit)

	if len(fields) > 0 {
		return params, NewValidationError(fields)
	}
	return params, nil
}

// CacheStatus tells whether a response was served from the query cache.
type CacheStatus string

const (
	CacheHit  CacheStatus = "HIT"
	CacheMiss CacheStatus = "MISS"
)

// SearchResponse is the ranked answer to one search.
type SearchResponse struct {
	TookMs          int64
	Results         []ScoredPlace
	Total           int
	NormalizedQuery string
	GeoCells        []string
}

// Clone returns a deep copy so cached values are never shared with callers.
func (r *SearchResponse) Clone() *SearchResponse {
	if r == nil {
		return nil
	}
	dst := &SearchResponse{
		TookMs:          r.TookMs,
		Total:           r.Total,
		NormalizedQuery: r.NormalizedQuery,
		GeoCells:        make([]string, len(r.GeoCells)),
		Results:         make([]ScoredPlace, len(r.Results)),
	}
	copy(dst.GeoCells, r.GeoCells)
	for i, sp := range r.Results {
		sp.MatchedFields = append([]string(nil), sp.MatchedFields...)
		sp.Place.Tags = append([]string(nil), sp.Place.Tags...)
		if sp.Place.LastPostAt != nil {
			t := *sp.Place.LastPostAt
			sp.Place.LastPostAt = &t
		}
		dst.Results[i] = sp
	}
	return dst
}
