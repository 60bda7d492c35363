package service

import (
	"context"

	"github.com/cloo-solutions/placesearch/internal/domain"
)

// SearchLogResult captures a single result entry for logging.
type SearchLogResult struct {
	PlaceID string  `json:"place_id"`
	Score   float64 `json:"score"`
}

// SearchLogEntry captures a search request and its results.
type SearchLogEntry struct {
	Query           string
	NormalizedQuery string
	Lat             *float64
	Lon             *float64
	Radius          int
	Limit           int
	CacheStatus     string
	Total           int
	DurationMs      int
	Results         []SearchLogResult
}

// SearchLogRepository persists search logs and feedback.
type SearchLogRepository interface {
	CreateSearchLog(ctx context.Context, entry SearchLogEntry) (string, error)
	RecordSearchSelection(ctx context.Context, searchID, placeID string) error
}

// NewSearchLogEntry builds a log entry from a finished search.
func NewSearchLogEntry(params domain.SearchParams, out *SearchOutput, durationMs int) SearchLogEntry {
	entry := SearchLogEntry{
		Query:       params.Query,
		Lat:         params.Lat,
		Lon:         params.Lon,
		Radius:      params.Radius,
		Limit:       params.Limit,
		CacheStatus: string(out.CacheStatus),
		DurationMs:  durationMs,
	}
	if out.Response == nil {
		return entry
	}

	entry.NormalizedQuery = out.Response.NormalizedQuery
	entry.Total = out.Response.Total
	entry.Results = make([]SearchLogResult, 0, len(out.Response.Results))
	for _, r := range out.Response.Results {
		entry.Results = append(entry.Results, SearchLogResult{PlaceID: r.Place.ID, Score: r.Score})
	}
	return entry
}
