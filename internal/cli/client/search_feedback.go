package client

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// SearchFeedbackRequest records which result of a prior search was chosen.
type SearchFeedbackRequest struct {
	SearchID string `json:"searchId"`
	PlaceID  string `json:"placeId"`
}

// FeedbackCmd creates the feedback command.
func FeedbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "feedback <search-id> <place-id>",
		Short: "Record the chosen result of a search",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := uuid.Parse(args[0]); err != nil {
				return fmt.Errorf("search id must be a UUID: %w", err)
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			if err := sendSearchFeedback(cmd, api, args[0], args[1]); err != nil {
				return fmt.Errorf("feedback failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Feedback recorded.")
			return nil
		},
	}
}

func sendSearchFeedback(cmd *cobra.Command, api *APIClient, searchID, placeID string) error {
	req := SearchFeedbackRequest{SearchID: searchID, PlaceID: placeID}
	return api.Post(cmd.Context(), "/search/feedback", req, nil)
}
