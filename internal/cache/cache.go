// Package cache stores search responses keyed by normalized request parameters.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cloo-solutions/placesearch/internal/domain"
	"github.com/cloo-solutions/placesearch/internal/tokenizer"
)

const (
	DefaultTTL        = 5 * time.Minute
	DefaultMaxEntries = 1000

	keyVersion = "v1"
)

// QueryCache is a TTL-bounded store of search responses. Implementations
// never hand out values shared with other callers.
type QueryCache interface {
	Get(ctx context.Context, key string) (*domain.SearchResponse, bool, error)
	Set(ctx context.Context, key string, resp *domain.SearchResponse) error
	Len(ctx context.Context) (int, error)
	Purge(ctx context.Context) error
}

// Key derives the cache key of a validated request. Coordinates are rounded
// to six decimals (about 11 cm) and absent coordinates are empty.
func Key(params domain.SearchParams) string {
	lat, lon := "", ""
	if params.HasLocation() {
		lat = strconv.FormatFloat(*params.Lat, 'f', 6, 64)
		lon = strconv.FormatFloat(*params.Lon, 'f', 6, 64)
	}
	return fmt.Sprintf("%s|%q|%s|%s|%d|%d",
		keyVersion,
		tokenizer.Normalize(params.Query),
		lat,
		lon,
		params.Radius,
		params.Limit,
	)
}
