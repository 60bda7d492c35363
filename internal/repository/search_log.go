package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/placesearch/internal/domain"
	"github.com/cloo-solutions/placesearch/internal/service"
)

// SearchLogRepository stores search logs for evaluation/feedback loops.
type SearchLogRepository struct {
	pool *pgxpool.Pool
}

func NewSearchLogRepository(pool *pgxpool.Pool) *SearchLogRepository {
	return &SearchLogRepository{pool: pool}
}

func (r *SearchLogRepository) CreateSearchLog(ctx context.Context, entry service.SearchLogEntry) (string, error) {
	results := entry.Results
	if results == nil {
		results = []service.SearchLogResult{}
	}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return "", err
	}

	var id string
	err = r.pool.QueryRow(ctx,
		`INSERT INTO search_logs (query, normalized_query, lat, lon, radius, result_limit, cache_status, total, results, result_count, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		entry.Query,
		entry.NormalizedQuery,
		entry.Lat,
		entry.Lon,
		entry.Radius,
		entry.Limit,
		entry.CacheStatus,
		entry.Total,
		resultsJSON,
		len(results),
		entry.DurationMs,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// RecordSearchSelection marks which result the user picked.
func (r *SearchLogRepository) RecordSearchSelection(ctx context.Context, searchID, placeID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE search_logs
		 SET chosen_id = $1, chosen_at = $2
		 WHERE id = $3`,
		placeID,
		time.Now().UTC(),
		searchID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSearchNotFound
	}
	return nil
}

// DeleteSearchLogsBefore removes logs created before cutoff.
func (r *SearchLogRepository) DeleteSearchLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM search_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ service.SearchLogRepository = (*SearchLogRepository)(nil)
