package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/placesearch/internal/domain"
)

const placeColumns = `id, name, name_en, tags, description, lat, lon, geohash, created_at, last_post_at, post_count, save_count, visit_count`

// PlaceRepository is the Postgres candidate source and import target.
type PlaceRepository struct {
	db dbtx
}

func NewPlaceRepository(pool *pgxpool.Pool) *PlaceRepository {
	return &PlaceRepository{db: pool}
}

func NewPlaceRepositoryWithTx(tx pgx.Tx) *PlaceRepository {
	return &PlaceRepository{db: tx}
}

// Fetch returns places whose geohash starts with one of the cells, inside
// the radius box when the query has a center. Rows whose name contains the
// query text come first; text never excludes a row.
func (r *PlaceRepository) Fetch(ctx context.Context, q domain.CandidateQuery) ([]domain.PlaceCandidate, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(q.Cells) > 0 {
		where = append(where, "geohash LIKE ANY("+arg(cellPatterns(q.Cells))+"::text[])")
	}
	if b, ok := radiusBound(q); ok {
		where = append(where,
			"lat BETWEEN "+arg(b.Min.Lat())+" AND "+arg(b.Max.Lat()),
			"lon BETWEEN "+arg(b.Min.Lon())+" AND "+arg(b.Max.Lon()),
		)
	}

	sql := "SELECT " + placeColumns + " FROM places"
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	text := arg("%" + escapeLike(q.Text) + "%")
	sql += " ORDER BY (name ILIKE " + text + " OR coalesce(name_en, '') ILIKE " + text + ") DESC, post_count DESC, id"
	if q.MaxResults > 0 {
		sql += " LIMIT " + arg(q.MaxResults)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPlaceRows(rows)
}

func (r *PlaceRepository) GetByID(ctx context.Context, id string) (*domain.PlaceCandidate, error) {
	rows, err := r.db.Query(ctx, "SELECT "+placeColumns+" FROM places WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	places, err := scanPlaceRows(rows)
	if err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, domain.ErrPlaceNotFound
	}
	return &places[0], nil
}

// UpsertPlaces writes the places in one batch, replacing rows with the same ID.
func (r *PlaceRepository) UpsertPlaces(ctx context.Context, places []domain.PlaceCandidate) (int, error) {
	if len(places) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for i := range places {
		p := &places[i]
		tags := p.Tags
		if tags == nil {
			tags = []string{}
		}
		batch.Queue(
			`INSERT INTO places (`+placeColumns+`, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())
			 ON CONFLICT (id) DO UPDATE SET
			   name = EXCLUDED.name,
			   name_en = EXCLUDED.name_en,
			   tags = EXCLUDED.tags,
			   description = EXCLUDED.description,
			   lat = EXCLUDED.lat,
			   lon = EXCLUDED.lon,
			   geohash = EXCLUDED.geohash,
			   created_at = EXCLUDED.created_at,
			   last_post_at = EXCLUDED.last_post_at,
			   post_count = EXCLUDED.post_count,
			   save_count = EXCLUDED.save_count,
			   visit_count = EXCLUDED.visit_count,
			   updated_at = now()`,
			p.ID, p.Name, nullableString(p.NameEn), tags, nullableString(p.Description),
			p.Lat, p.Lon, p.Geohash, p.CreatedAt, p.LastPostAt,
			p.PostCount, p.SaveCount, p.VisitCount,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	n := 0
	for range places {
		tag, err := results.Exec()
		if err != nil {
			return n, err
		}
		n += int(tag.RowsAffected())
	}
	return n, nil
}

func (r *PlaceRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM places`).Scan(&n)
	return n, err
}

func scanPlaceRows(rows pgx.Rows) ([]domain.PlaceCandidate, error) {
	var places []domain.PlaceCandidate
	for rows.Next() {
		var p domain.PlaceCandidate
		var nameEn, description *string
		if err := rows.Scan(
			&p.ID, &p.Name, &nameEn, &p.Tags, &description, &p.Lat, &p.Lon, &p.Geohash,
			&p.CreatedAt, &p.LastPostAt, &p.PostCount, &p.SaveCount, &p.VisitCount,
		); err != nil {
			return nil, err
		}
		if nameEn != nil {
			p.NameEn = *nameEn
		}
		if description != nil {
			p.Description = *description
		}
		places = append(places, p)
	}
	return places, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
