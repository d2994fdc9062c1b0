package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"apfeed/internal/config"
	"apfeed/internal/logger"
	"apfeed/internal/report"
)

var version = "1.0.0"

// runID tags the logs and reports of one command invocation.
var runID string

var rootCmd = &cobra.Command{
	Use:   "apfeed",
	Short: "Library accounts payable feed and payment reconciliation",
	Long: `apfeed moves library invoices between the acquisitions system and the
campus accounts payable ledger.

  feed       converts acquisitions invoice exports into a fixed-width AP feed
  inspect    decodes AP feed records for humans
  reconcile  matches ledger payments to waiting invoices and writes the
             payment confirmation file for the acquisitions system`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		runID = report.NewRunID()
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Str("run_id", runID).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the environment configuration for a command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func printBanner(title string) {
	fmt.Fprintln(os.Stderr, strings.Repeat("=", 80))
	pad := (80 - len(title)) / 2
	if pad < 0 {
		pad = 0
	}
	fmt.Fprintln(os.Stderr, strings.Repeat(" ", pad)+title)
	fmt.Fprintln(os.Stderr, strings.Repeat("=", 80))
}
