package domain

import (
	"errors"
	"math"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestSearchParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  SearchParams
		wantErr []string
	}{
		{"valid text only", SearchParams{Query: "강남"}.WithDefaults(), nil},
		{"valid with location", SearchParams{Query: "카페", Lat: floatPtr(37.5665), Lon: floatPtr(126.978), Radius: 3000, Limit: 5}, nil},
		{"empty query", SearchParams{Query: "   "}.WithDefaults(), []string{"q"}},
		{"query too long", SearchParams{Query: strings.Repeat("가", 101)}.WithDefaults(), []string{"q"}},
		{"query at max", SearchParams{Query: strings.Repeat("가", 100)}.WithDefaults(), nil},
		{"lat out of range", SearchParams{Query: "a", Lat: floatPtr(999), Lon: floatPtr(0)}.WithDefaults(), []string{"lat"}},
		{"lon out of range", SearchParams{Query: "a", Lat: floatPtr(0), Lon: floatPtr(-181)}.WithDefaults(), []string{"lon"}},
		{"lat is NaN", SearchParams{Query: "a", Lat: floatPtr(math.NaN()), Lon: floatPtr(0)}.WithDefaults(), []string{"lat"}},
		{"lon is NaN", SearchParams{Query: "a", Lat: floatPtr(0), Lon: floatPtr(math.NaN())}.WithDefaults(), []string{"lon"}},
		{"lon is infinite", SearchParams{Query: "a", Lat: floatPtr(0), Lon: floatPtr(math.Inf(1))}.WithDefaults(), []string{"lon"}},
		{"lat without lon", SearchParams{Query: "a", Lat: floatPtr(10)}.WithDefaults(), []string{"lon"}},
		{"lon without lat", SearchParams{Query: "a", Lon: floatPtr(10)}.WithDefaults(), []string{"lat"}},
		{"radius too small", SearchParams{Query: "a", Radius: 99, Limit: 10}, []string{"radius"}},
		{"radius too large", SearchParams{Query: "a", Radius: 10001, Limit: 10}, []string{"radius"}},
		{"limit too large", SearchParams{Query: "a", Radius: 3000, Limit: 51}, []string{"limit"}},
		{"multiple", SearchParams{Query: "", Radius: 1, Limit: 0}, []string{"q", "radius", "limit"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))

			var de *DomainError
			require.True(t, errors.As(err, &de))
			assert.Len(t, de.Fields, len(tt.wantErr))
			for _, field := range tt.wantErr {
				assert.Contains(t, de.Fields, field)
			}
		})
	}
}

func TestSearchParams_WithDefaults(t *testing.T) {
	p := SearchParams{Query: "x"}.WithDefaults()
	assert.Equal(t, DefaultRadiusMeters, p.Radius)
	assert.Equal(t, DefaultLimit, p.Limit)

	p = SearchParams{Query: "x", Radius: 500, Limit: 3}.WithDefaults()
	assert.Equal(t, 500, p.Radius)
	assert.Equal(t, 3, p.Limit)
}

func TestSearchParams_Origin(t *testing.T) {
	assert.Nil(t, SearchParams{Query: "x"}.Origin())
	assert.Nil(t, SearchParams{Query: "x", Lat: floatPtr(1)}.Origin())

	origin := SearchParams{Query: "x", Lat: floatPtr(1), Lon: floatPtr(2)}.Origin()
	require.NotNil(t, origin)
	assert.Equal(t, Coordinates{Lat: 1, Lon: 2}, *origin)
}

func TestParseSearchParams(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		p, err := ParseSearchParams(url.Values{"q": {"카페"}})
		require.NoError(t, err)
		assert.Equal(t, "카페", p.Query)
		assert.Nil(t, p.Lat)
		assert.Nil(t, p.Lon)
		assert.Equal(t, DefaultRadiusMeters, p.Radius)
		assert.Equal(t, DefaultLimit, p.Limit)
	})

	t.Run("all values", func(t *testing.T) {
		p, err := ParseSearchParams(url.Values{
			"q": {"cafe"}, "lat": {"37.5665"}, "lon": {"126.978"}, "radius": {"500"}, "limit": {"5"},
		})
		require.NoError(t, err)
		require.NotNil(t, p.Lat)
		assert.InDelta(t, 37.5665, *p.Lat, 1e-9)
		assert.Equal(t, 500, p.Radius)
		assert.Equal(t, 5, p.Limit)
	})

	t.Run("malformed numbers", func(t *testing.T) {
		_, err := ParseSearchParams(url.Values{"q": {"x"}, "lat": {"north"}, "limit": {"ten"}})
		require.Error(t, err)
		var de *DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "must be a number", de.Fields["lat"])
		assert.Equal(t, "must be an integer", de.Fields["limit"])
	})

	t.Run("NaN coordinates are rejected by validate", func(t *testing.T) {
		p, err := ParseSearchParams(url.Values{"q": {"카페"}, "lat": {"NaN"}, "lon": {"126.97"}})
		require.NoError(t, err)

		err = p.Validate()
		var de *DomainError
		require.True(t, errors.As(err, &de))
		assert.Contains(t, de.Fields, "lat")
	})

	t.Run("explicit zero is rejected by validate", func(t *testing.T) {
		p, err := ParseSearchParams(url.Values{"q": {"x"}, "limit": {"0"}})
		require.NoError(t, err)
		assert.Error(t, p.WithDefaults().Validate())
	})
}

func TestSearchResponse_Clone(t *testing.T) {
	posted := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	original := &SearchResponse{
		TookMs:          12,
		Total:           1,
		NormalizedQuery: "카페",
		GeoCells:        []string{"wydm9q"},
		Results: []ScoredPlace{{
			Place:         PlaceCandidate{ID: "p1", Name: "카페", Tags: []string{"coffee"}, LastPostAt: &posted},
			Score:         0.5,
			MatchedFields: []string{"name"},
		}},
	}

	clone := original.Clone()
	require.Equal(t, original, clone)

	clone.GeoCells[0] = "changed"
	clone.Results[0].Place.Tags[0] = "changed"
	clone.Results[0].MatchedFields[0] = "changed"
	*clone.Results[0].Place.LastPostAt = time.Time{}

	assert.Equal(t, "wydm9q", original.GeoCells[0])
	assert.Equal(t, "coffee", original.Results[0].Place.Tags[0])
	assert.Equal(t, "name", original.Results[0].MatchedFields[0])
	assert.Equal(t, posted, *original.Results[0].Place.LastPostAt)

	var nilResp *SearchResponse
	assert.Nil(t, nilResp.Clone())
}
