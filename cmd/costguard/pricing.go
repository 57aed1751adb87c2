package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/blueif16/openclaw-costguard/pkg/pricing"
	"github.com/blueif16/openclaw-costguard/pkg/telemetry/logging"
)

var pricingCmd = &cobra.Command{
	Use:   "pricing",
	Short: "Manage the model price table",
}

var pricingRefreshFlags struct {
	listModels bool
}

var pricingRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the model price table",
	Long: `Fetch the model price table from the configured source and persist it
to the local cache. On fetch failure a fresh-enough cache is used instead.

Examples:
  costguard pricing refresh
  costguard pricing refresh --list`,
	RunE: runPricingRefresh,
}

func init() {
	rootCmd.AddCommand(pricingCmd)
	pricingCmd.AddCommand(pricingRefreshCmd)

	pricingRefreshCmd.Flags().BoolVar(&pricingRefreshFlags.listModels, "list", false, "list the known model names after refresh")
}

func runPricingRefresh(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return err
	}

	home, err := cfg.ResolveHome()
	if err != nil {
		return fmt.Errorf("failed to resolve state directory: %w", err)
	}
	if err := os.MkdirAll(home, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	estimator := newEstimator(cfg, home)
	res := estimator.Refresh(cmd.Context())
	if res.Source == pricing.SourceNone {
		return fmt.Errorf("price refresh failed: no remote payload and no usable cache")
	}

	fmt.Printf("Loaded %d model prices (%s)\n", res.Count, res.Source)

	if pricingRefreshFlags.listModels {
		models := estimator.KnownModels()
		sort.Strings(models)
		for _, m := range models {
			fmt.Println("  " + m)
		}
	}
	return nil
}
