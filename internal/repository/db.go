package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/paulmach/orb"

	"github.com/cloo-solutions/placesearch/internal/domain"
	"github.com/cloo-solutions/placesearch/internal/geocell"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// radiusBound returns the lat/lon box around the query center. Boxes that
// wrap the antimeridian are not returned; callers then rely on cells alone.
func radiusBound(q domain.CandidateQuery) (orb.Bound, bool) {
	if q.Center == nil || q.RadiusMeters <= 0 {
		return orb.Bound{}, false
	}
	b := geocell.BoundingBox(q.Center.Lat, q.Center.Lon, float64(q.RadiusMeters))
	if b.Min.Lon() > b.Max.Lon() || b.Min.Lon() < -180 || b.Max.Lon() > 180 {
		return orb.Bound{}, false
	}
	return b, true
}

// cellPatterns turns cells into LIKE prefix patterns.
func cellPatterns(cells []string) []string {
	patterns := make([]string, 0, len(cells))
	for _, c := range cells {
		patterns = append(patterns, c+"%")
	}
	return patterns
}
