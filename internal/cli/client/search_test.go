package client

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchResponseJSON = `{
	"tookMs": 4,
	"results": [
		{
			"placeId": "p1",
			"name": "카페 서울",
			"nameEn": "Cafe Seoul",
			"distanceMeters": 1340,
			"score": 0.8123,
			"scoreBreakdown": {"textMatch": 1, "geoProximity": 0.5833, "freshness": 0.9, "popularity": 0.4},
			"tags": ["coffee", "dessert"],
			"lastPostAt": "2026-10-01T00:00:00Z"
		}
	],
	"total": 7,
	"normalizedQuery": "카페",
	"geoCells": ["wydm9q"],
	"searchId": "7b0c1f9e-4b55-4d43-9a64-0c1d5b5c3a10"
}`

func TestSearchRequest_Values(t *testing.T) {
	lat, lon := 37.5665, 126.978
	v := SearchRequest{Query: "카페", Lat: &lat, Lon: &lon, Radius: 1500, Limit: 5}.Values()
	assert.Equal(t, url.Values{
		"q":      {"카페"},
		"lat":    {"37.5665"},
		"lon":    {"126.978"},
		"radius": {"1500"},
		"limit":  {"5"},
	}, v)

	v = SearchRequest{Query: "cafe"}.Values()
	assert.Equal(t, url.Values{"q": {"cafe"}}, v)
}

func TestSearchCmd_TextOutput(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		io.WriteString(w, searchResponseJSON)
	}))
	defer srv.Close()

	var out bytes.Buffer
	root := newTestRoot(SearchCmd(), &out)
	root.SetArgs([]string{"search", "카페", "--lat", "37.5", "--lon", "127", "-r", "2000", "--explain", "--api-url", srv.URL})
	require.NoError(t, root.Execute())

	assert.Equal(t, "37.5", gotQuery.Get("lat"))
	assert.Equal(t, "127", gotQuery.Get("lon"))
	assert.Equal(t, "2000", gotQuery.Get("radius"))
	assert.Empty(t, gotQuery.Get("limit"))

	text := out.String()
	assert.Contains(t, text, "Found 7 results (showing 1, 4ms)")
	assert.Contains(t, text, "1. 카페 서울 (Cafe Seoul)  0.8123")
	assert.Contains(t, text, "1.3km away")
	assert.Contains(t, text, "Tags: coffee, dessert")
	assert.Contains(t, text, "text 1.0000  geo 0.5833")
	assert.Contains(t, text, "Search ID: 7b0c1f9e-4b55-4d43-9a64-0c1d5b5c3a10")
}

func TestSearchCmd_JSONOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, searchResponseJSON)
	}))
	defer srv.Close()

	var out bytes.Buffer
	root := newTestRoot(SearchCmd(), &out)
	root.SetArgs([]string{"search", "카페", "--output", "--api-url", srv.URL})
	require.NoError(t, root.Execute())

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, 7, resp.Total)
	require.Len(t, resp.Results, 1)
	require.NotNil(t, resp.Results[0].DistanceMeters)
	assert.Equal(t, 1340.0, *resp.Results[0].DistanceMeters)
}

func TestSearchCmd_LatWithoutLon(t *testing.T) {
	var out bytes.Buffer
	root := newTestRoot(SearchCmd(), &out)
	root.SetArgs([]string{"search", "카페", "--lat", "37.5", "--api-url", "http://localhost:1"})
	err := root.Execute()
	assert.ErrorContains(t, err, "--lat and --lon must be given together")
}

func TestSearchCmd_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"invalid_query","details":"invalid search parameters"}`)
	}))
	defer srv.Close()

	var out bytes.Buffer
	root := newTestRoot(SearchCmd(), &out)
	root.SetArgs([]string{"search", "", "--api-url", srv.URL})
	err := root.Execute()
	assert.ErrorContains(t, err, "invalid search parameters")
}

func TestPrintSearchResults_Empty(t *testing.T) {
	var out bytes.Buffer
	printSearchResults(&out, &SearchResponse{}, false)
	assert.Equal(t, "No results found.\n", out.String())
}

func TestFormatDistance(t *testing.T) {
	assert.Equal(t, "0m", formatDistance(0))
	assert.Equal(t, "999m", formatDistance(999))
	assert.Equal(t, "1.0km", formatDistance(1000))
	assert.Equal(t, "2.5km", formatDistance(2500))
}

func TestFeedbackCmd(t *testing.T) {
	var got SearchFeedbackRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/feedback", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		io.WriteString(w, `{"status":"ok"}`)
	}))
	defer srv.Close()

	var out bytes.Buffer
	root := newTestRoot(FeedbackCmd(), &out)
	root.SetArgs([]string{"feedback", "7b0c1f9e-4b55-4d43-9a64-0c1d5b5c3a10", "p1", "--api-url", srv.URL})
	require.NoError(t, root.Execute())

	assert.Equal(t, "7b0c1f9e-4b55-4d43-9a64-0c1d5b5c3a10", got.SearchID)
	assert.Equal(t, "p1", got.PlaceID)
	assert.Equal(t, "Feedback recorded.\n", out.String())
}

func TestFeedbackCmd_RejectsBadSearchID(t *testing.T) {
	var out bytes.Buffer
	root := newTestRoot(FeedbackCmd(), &out)
	root.SetArgs([]string{"feedback", "not-a-uuid", "p1", "--api-url", "http://localhost:1"})
	err := root.Execute()
	assert.ErrorContains(t, err, "search id must be a UUID")
}

func TestConfigCmd_SetURLAndShow(t *testing.T) {
	useTempConfig(t)
	t.Setenv(envAPIURL, "")

	var out bytes.Buffer
	root := newTestRoot(ConfigCmd(), &out)
	root.SetArgs([]string{"config", "set-url", "http://search.internal:8080"})
	require.NoError(t, root.Execute())

	out.Reset()
	root.SetArgs([]string{"config", "show", "--output"})
	require.NoError(t, root.Execute())

	var status map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &status))
	assert.Equal(t, "global_config", status["source"])
	assert.Equal(t, "http://search.internal:8080", status["api_url"])

	root.SetArgs([]string{"config", "set-url", "not a url"})
	assert.Error(t, root.Execute())
}
