package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/placesearch/internal/cli"
	"github.com/cloo-solutions/placesearch/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "placesearchd",
		Short: "Place search daemon",
		Long:  "Place search daemon for running the search server, applying migrations and importing places",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.MigrateCmd())
	rootCmd.AddCommand(admin.ImportCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
