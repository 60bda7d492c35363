package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest holds the search command's query parameters.
type SearchRequest struct {
	Query  string
	Lat    *float64
	Lon    *float64
	Radius int
	Limit  int
}

// Values encodes the request as /search query parameters. Unset location and
// zero radius or limit are left to the server defaults.
func (r SearchRequest) Values() url.Values {
	v := url.Values{}
	v.Set("q", r.Query)
	if r.Lat != nil && r.Lon != nil {
		v.Set("lat", strconv.FormatFloat(*r.Lat, 'f', -1, 64))
		v.Set("lon", strconv.FormatFloat(*r.Lon, 'f', -1, 64))
	}
	if r.Radius > 0 {
		v.Set("radius", strconv.Itoa(r.Radius))
	}
	if r.Limit > 0 {
		v.Set("limit", strconv.Itoa(r.Limit))
	}
	return v
}

type ScoreBreakdown struct {
	TextMatch    float64 `json:"textMatch"`
	GeoProximity float64 `json:"geoProximity"`
	Freshness    float64 `json:"freshness"`
	Popularity   float64 `json:"popularity"`
}

// SearchResult represents a search result.
type SearchResult struct {
	PlaceID        string         `json:"placeId"`
	Name           string         `json:"name"`
	NameEn         string         `json:"nameEn,omitempty"`
	DistanceMeters *float64       `json:"distanceMeters,omitempty"`
	Score          float64        `json:"score"`
	ScoreBreakdown ScoreBreakdown `json:"scoreBreakdown"`
	Tags           []string       `json:"tags"`
	LastPostAt     string         `json:"lastPostAt"`
	MatchedFields  []string       `json:"matchedFields,omitempty"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	TookMs          int64          `json:"tookMs"`
	Results         []SearchResult `json:"results"`
	Total           int            `json:"total"`
	NormalizedQuery string         `json:"normalizedQuery"`
	GeoCells        []string       `json:"geoCells"`
	SearchID        string         `json:"searchId,omitempty"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		lat, lon float64
		radius   int
		limit    int
		explain  bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search places",
		Long: `Searches places by name, tags and description.

Pass --lat and --lon together to rank by distance and restrict results to
--radius meters around that point.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := SearchRequest{Query: args[0], Radius: radius, Limit: limit}

			latSet, lonSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lon")
			if latSet != lonSet {
				return fmt.Errorf("--lat and --lon must be given together")
			}
			if latSet {
				req.Lat, req.Lon = &lat, &lon
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			var resp SearchResponse
			if err := api.Get(cmd.Context(), "/search", req.Values(), &resp); err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				output, _ := json.MarshalIndent(resp, "", "  ")
				fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return nil
			}
			printSearchResults(cmd.OutOrStdout(), &resp, explain)
			return nil
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude of the search origin")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude of the search origin")
	cmd.Flags().IntVarP(&radius, "radius", "r", 0, "Search radius in meters (server default 3000)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results (server default 10)")
	cmd.Flags().BoolVar(&explain, "explain", false, "Show the score breakdown of each result")

	return cmd
}

func printSearchResults(w io.Writer, resp *SearchResponse, explain bool) {
	if len(resp.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "Found %d results (showing %d, %dms):\n\n", resp.Total, len(resp.Results), resp.TookMs)
	for i, r := range resp.Results {
		name := r.Name
		if r.NameEn != "" {
			name = fmt.Sprintf("%s (%s)", r.Name, r.NameEn)
		}
		fmt.Fprintf(w, "%d. %s  %.4f\n", i+1, name, r.Score)
		if r.DistanceMeters != nil {
			fmt.Fprintf(w, "   %s away\n", formatDistance(*r.DistanceMeters))
		}
		if len(r.Tags) > 0 {
			fmt.Fprintf(w, "   Tags: %s\n", strings.Join(r.Tags, ", "))
		}
		if explain {
			b := r.ScoreBreakdown
			fmt.Fprintf(w, "   text %.4f  geo %.4f  fresh %.4f  popular %.4f\n",
				b.TextMatch, b.GeoProximity, b.Freshness, b.Popularity)
		}
		fmt.Fprintf(w, "   ID: %s\n", r.PlaceID)
		if i < len(resp.Results)-1 {
			fmt.Fprintln(w, strings.Repeat("-", 40))
		}
	}
	if resp.SearchID != "" {
		fmt.Fprintf(w, "\nSearch ID: %s\n", resp.SearchID)
	}
}

func formatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0fm", meters)
	}
	return fmt.Sprintf("%.1fkm", meters/1000)
}
