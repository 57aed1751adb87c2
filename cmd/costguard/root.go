package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blueif16/openclaw-costguard/pkg/config"
)

var (
	// Global flags
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "costguard",
	Short: "CostGuard - cost attribution and budget enforcement for agent runtimes",
	Long: `CostGuard tracks the true cost of every model invocation an agent
runtime makes, attributes it to the session that caused it, and enforces
budgets over the accumulated spend.

It provides:
  - Source attribution (interactive, cron, subagent, acp, heartbeat)
  - Live model pricing with fuzzy name matching
  - A durable SQLite usage ledger
  - Daily, weekly, and monthly budgets with per-scope overrides
  - Anomaly detection: tool loops, context spikes, cost velocity, cron drift`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

// loadConfig loads the config file when one was given, else the built-in
// defaults. The log-level flag wins over both.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}
