package client

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// ConfigCmd creates the config parent command
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage client settings",
		Long:  "Show or change the search server the CLI talks to (~/.config/placesearch/config.json)",
	}

	cmd.AddCommand(configSetURLCmd())
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configResetCmd())

	return cmd
}

func configSetURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-url <url>",
		Short: "Store the API URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := NewAPIClientWithConfig(args[0]); err != nil {
				return err
			}
			if err := SaveGlobalConfig(&GlobalConfig{APIURL: args[0]}); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API URL set to %s\n", args[0])
			return nil
		},
	}
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective API URL and where it came from",
		RunE: func(cmd *cobra.Command, args []string) error {
			flagURL, _ := cmd.Flags().GetString("api-url")
			outputJSON, _ := cmd.Flags().GetBool("output")
			source, apiURL := ResolveAPIURL(flagURL)
			return writeConfigStatus(cmd.OutOrStdout(), source, apiURL, outputJSON)
		},
	}
}

func configResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Remove stored settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := DeleteGlobalConfig(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Settings removed")
			return nil
		},
	}
}

func writeConfigStatus(w io.Writer, source URLSource, apiURL string, outputJSON bool) error {
	if outputJSON {
		data, err := json.MarshalIndent(map[string]string{
			"source":  string(source),
			"api_url": apiURL,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	fmt.Fprintf(w, "API URL: %s\n", apiURL)
	fmt.Fprintf(w, "Source: %s\n", source)
	return nil
}
