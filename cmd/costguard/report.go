package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blueif16/openclaw-costguard/pkg/config"
	"github.com/blueif16/openclaw-costguard/pkg/ledger"
	"github.com/blueif16/openclaw-costguard/pkg/report"
	"github.com/blueif16/openclaw-costguard/pkg/telemetry/logging"
)

var reportFlags struct {
	session string
	cronJob string
	lastN   int
	top     int
	daily   int
}

var reportCmd = &cobra.Command{
	Use:   "report [period]",
	Short: "Render cost reports from the usage ledger",
	Long: `Render plain-text cost reports from the usage ledger.

The default report is a period summary (today, 24h, week, or month) with
per-model and per-source breakdowns. Flags select alternate reports.

Examples:
  # Today's summary
  costguard report

  # Rolling 24 hours
  costguard report 24h

  # Turn-by-turn history of one session
  costguard report --session agent:main:main

  # Last five runs of a cron job
  costguard report --cron daily-digest --last 5

  # Costliest sessions this week
  costguard report week --top 10

  # Per-day spend for the trailing week
  costguard report --daily 7`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportFlags.session, "session", "", "session key for a turn-by-turn report")
	reportCmd.Flags().StringVar(&reportFlags.cronJob, "cron", "", "cron job id for a run comparison")
	reportCmd.Flags().IntVar(&reportFlags.lastN, "last", 5, "runs to include in the cron report")
	reportCmd.Flags().IntVar(&reportFlags.top, "top", 0, "rank the period's costliest sessions")
	reportCmd.Flags().IntVar(&reportFlags.daily, "daily", 0, "per-day spend for the trailing N days")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return err
	}

	label := ""
	if len(args) == 1 {
		label = args[0]
	}
	period, err := report.ParsePeriod(label)
	if err != nil {
		return err
	}

	home, err := cfg.ResolveHome()
	if err != nil {
		return fmt.Errorf("failed to resolve state directory: %w", err)
	}
	store, err := ledger.Open(config.LedgerPath(home))
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer store.Close()

	r := report.NewReporter(store)
	ctx := cmd.Context()

	var out string
	switch {
	case reportFlags.session != "":
		out, err = r.SessionReport(ctx, reportFlags.session)
	case reportFlags.cronJob != "":
		out, err = r.CronReport(ctx, reportFlags.cronJob, reportFlags.lastN)
	case reportFlags.top > 0:
		out, err = r.TopSessions(ctx, period, reportFlags.top)
	case reportFlags.daily > 0:
		out, err = r.DailyReport(ctx, reportFlags.daily)
	default:
		out, err = r.CostReport(ctx, period)
	}
	if err != nil {
		return err
	}

	fmt.Println(out)
	return nil
}
