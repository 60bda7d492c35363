package admin

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/placesearch/internal/config"
	"github.com/cloo-solutions/placesearch/internal/database"
)

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	var source string
	cmd.PersistentFlags().StringVar(&source, "source", database.DefaultMigrationsSource, "Migration source URL")

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := databaseURL()
			if err != nil {
				return err
			}
			return database.Migrate(url, source)
		},
	}

	var steps int
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 {
				return fmt.Errorf("--steps must be positive")
			}
			url, err := databaseURL()
			if err != nil {
				return err
			}
			return database.MigrateDown(url, source, steps)
		},
	}
	downCmd.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")

	cmd.AddCommand(upCmd, downCmd)
	return cmd
}

func databaseURL() (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasDatabase() {
		return "", fmt.Errorf("PLACESEARCH_DATABASE_URL is not set")
	}
	return cfg.DatabaseURL, nil
}
