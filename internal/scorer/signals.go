package scorer

import (
	"math"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/cloo-solutions/placesearch/internal/domain"
	"github.com/cloo-solutions/placesearch/internal/geocell"
)

const (
	// proximity decays as exp(-d/geoDecayMeters): 0.5 at ~832 m.
	geoDecayMeters = 1200.0

	// NeutralGeoProximity is used when the request carries no coordinates.
	NeutralGeoProximity = 0.0

	freshnessHalfLifeDays = 7.0
	freshnessFloor        = 0.01

	saveWeight  = 3.0
	visitWeight = 2.0
	postWeight  = 1.0

	shortNamePenalty   = 0.5
	noPostsPenalty     = 0.1
	placeholderPenalty = 0.3
	maxPenalty         = 0.9
)

var (
	maxSaveLog  = math.Log10(1001)
	maxVisitLog = math.Log10(10001)
	maxPostLog  = math.Log10(101)

	// Whole words only.
	placeholderPattern = regexp.MustCompile(`(?i)(^|\s)(test|테스트|sample|샘플|dummy|더미|placeholder|asdf|temp)(\s|$)`)
)

// GeoProximity returns exp(-distance/1200) and the distance in meters.
func GeoProximity(userLat, userLon, placeLat, placeLon float64) (score, distance float64) {
	distance = geocell.HaversineMeters(userLat, userLon, placeLat, placeLon)
	return math.Exp(-distance / geoDecayMeters), distance
}

// Freshness halves every seven days and never drops below 0.01.
// Timestamps in the future score 1.
func Freshness(createdAt, now time.Time) float64 {
	days := now.Sub(createdAt).Hours() / 24
	if days <= 0 {
		return 1
	}
	return math.Max(freshnessFloor, math.Exp(-math.Ln2/freshnessHalfLifeDays*days))
}

// Popularity blends log-scaled saves, visits and posts into [0, 1].
func Popularity(p domain.PlaceCandidate) float64 {
	saves := logScaled(p.SaveCount, maxSaveLog)
	visits := logScaled(p.VisitCount, maxVisitLog)
	posts := logScaled(p.PostCount, maxPostLog)

	blended := (saves*saveWeight + visits*visitWeight + posts*postWeight) /
		(saveWeight + visitWeight + postWeight)
	return math.Min(1, blended)
}

func logScaled(count int, maxLog float64) float64 {
	if count <= 0 {
		return 0
	}
	return math.Min(1, math.Log10(float64(count)+1)/maxLog)
}

// Penalties returns the quality deduction for a candidate, capped at 0.9.
func Penalties(p domain.PlaceCandidate) float64 {
	var penalty float64
	if utf8.RuneCountInString(p.Name) < 2 {
		penalty += shortNamePenalty
	}
	if p.PostCount == 0 {
		penalty += noPostsPenalty
	}
	if placeholderPattern.MatchString(p.Name) {
		penalty += placeholderPenalty
	}
	return math.Min(maxPenalty, penalty)
}
