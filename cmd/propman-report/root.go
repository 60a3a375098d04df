package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"propman/internal/cli"
	"propman/internal/config"
	"propman/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "propman-report",
	Short: "Offline financial reports and spreadsheet backfills for propman",
	Long: `propman-report reads the propman store directly and produces the same
financial reports the API serves, as CSV, JSON or a Google Sheets tab.

It uses the same environment as the server: DATA_BACKEND, SQLITE_DB_PATH,
EXPENSE_STRATEGY, EXPENSE_RATIO and, for sheet output, GOOGLE_SPREADSHEET_ID
with service account credentials.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup returns the command logger and the validated configuration.
func setup() (*log.Logger, *config.Config, error) {
	logger := cli.SetupLogger(log.ComponentCLI)
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return logger, cfg, nil
}
