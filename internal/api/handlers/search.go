package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cloo-solutions/placesearch/internal/api"
	"github.com/cloo-solutions/placesearch/internal/api/middleware"
	"github.com/cloo-solutions/placesearch/internal/domain"
	"github.com/cloo-solutions/placesearch/internal/service"
)

type SearchService interface {
	Search(ctx context.Context, params domain.SearchParams) (*service.SearchOutput, error)
}

type SearchHandler struct {
	svc     SearchService
	logRepo service.SearchLogRepository
}

// NewSearchHandler creates a search handler. logRepo may be nil, in which
// case searches are not logged and feedback is unavailable.
func NewSearchHandler(svc SearchService, logRepo service.SearchLogRepository) *SearchHandler {
	return &SearchHandler{svc: svc, logRepo: logRepo}
}

type ScoreBreakdownResponse struct {
	TextMatch    float64 `json:"textMatch"`
	GeoProximity float64 `json:"geoProximity"`
	Freshness    float64 `json:"freshness"`
	Popularity   float64 `json:"popularity"`
}

type SearchResultResponse struct {
	PlaceID        string                 `json:"placeId"`
	Name           string                 `json:"name"`
	NameEn         string                 `json:"nameEn,omitempty"`
	DistanceMeters *float64               `json:"distanceMeters,omitempty"`
	Score          float64                `json:"score"`
	ScoreBreakdown ScoreBreakdownResponse `json:"scoreBreakdown"`
	Tags           []string               `json:"tags"`
	LastPostAt     string                 `json:"lastPostAt"`
	MatchedFields  []string               `json:"matchedFields,omitempty"`
}

type SearchResponse struct {
	TookMs          int64                  `json:"tookMs"`
	Results         []SearchResultResponse `json:"results"`
	Total           int                    `json:"total"`
	NormalizedQuery string                 `json:"normalizedQuery"`
	GeoCells        []string               `json:"geoCells"`
	SearchID        string                 `json:"searchId,omitempty"`
}

type SearchFeedbackRequest struct {
	SearchID string `json:"searchId"`
	PlaceID  string `json:"placeId"`
}

// Search handles GET /search?q=&lat=&lon=&radius=&limit=.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	params, err := domain.ParseSearchParams(r.URL.Query())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	output, err := h.svc.Search(r.Context(), params)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := NewSearchResponse(output.Response)
	if h.logRepo != nil {
		entry := service.NewSearchLogEntry(params.WithDefaults(), output, int(time.Since(start).Milliseconds()))
		if searchID, err := h.logRepo.CreateSearchLog(r.Context(), entry); err == nil {
			resp.SearchID = searchID
		} else {
			log.Printf("search_log_error: %v", err)
		}
	}

	w.Header().Set(middleware.CacheHeader, string(output.CacheStatus))
	api.JSON(w, http.StatusOK, resp)
}

// SearchFeedback records a selected result for a prior search.
func (h *SearchHandler) SearchFeedback(w http.ResponseWriter, r *http.Request) {
	if h.logRepo == nil {
		api.Error(w, http.StatusNotImplemented, "search feedback not available")
		return
	}

	var req SearchFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SearchID == "" || req.PlaceID == "" {
		api.Error(w, http.StatusBadRequest, "searchId and placeId are required")
		return
	}
	if _, err := uuid.Parse(req.SearchID); err != nil {
		api.Error(w, http.StatusBadRequest, "searchId must be a UUID")
		return
	}

	if err := h.logRepo.RecordSearchSelection(r.Context(), req.SearchID, req.PlaceID); err != nil {
		if !errors.Is(err, domain.ErrSearchNotFound) {
			log.Printf("search_feedback_error: %v", err)
		}
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NewSearchResponse converts an engine response to the wire shape. Scores are
// rounded to 4 decimals and distances to whole meters.
func NewSearchResponse(resp *domain.SearchResponse) SearchResponse {
	out := SearchResponse{
		TookMs:          resp.TookMs,
		Results:         make([]SearchResultResponse, 0, len(resp.Results)),
		Total:           resp.Total,
		NormalizedQuery: resp.NormalizedQuery,
		GeoCells:        resp.GeoCells,
	}
	if out.GeoCells == nil {
		out.GeoCells = []string{}
	}

	for _, sp := range resp.Results {
		item := SearchResultResponse{
			PlaceID: sp.Place.ID,
			Name:    sp.Place.Name,
			NameEn:  sp.Place.NameEn,
			Score:   round4(sp.Score),
			ScoreBreakdown: ScoreBreakdownResponse{
				TextMatch:    round4(sp.Breakdown.TextMatch),
				GeoProximity: round4(sp.Breakdown.GeoProximity),
				Freshness:    round4(sp.Breakdown.Freshness),
				Popularity:   round4(sp.Breakdown.Popularity),
			},
			Tags:          sp.Place.Tags,
			LastPostAt:    sp.Place.LastActivity().UTC().Format(time.RFC3339),
			MatchedFields: sp.MatchedFields,
		}
		if item.Tags == nil {
			item.Tags = []string{}
		}
		if sp.HasDistance {
			d := math.Round(sp.DistanceMeters)
			item.DistanceMeters = &d
		}
		out.Results = append(out.Results, item)
	}
	return out
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
