package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "econ",
	Short: "Economic briefing data backend",
	Long: `Economic briefing data backend.

Ingests UK economic time series from ONS and OECD, stores them in
PostgreSQL, and assembles quality-annotated data packs for briefings.

Usage:
  go run ./cmd/econ [command]

Examples:
  go run ./cmd/econ api
  go run ./cmd/econ ingest
  go run ./cmd/econ scheduler
  go run ./cmd/econ pack --topic inflation --series ONS:L55O`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}
