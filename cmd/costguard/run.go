package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/blueif16/openclaw-costguard/pkg/config"
	"github.com/blueif16/openclaw-costguard/pkg/guard"
	"github.com/blueif16/openclaw-costguard/pkg/ledger"
	"github.com/blueif16/openclaw-costguard/pkg/pricing"
	"github.com/blueif16/openclaw-costguard/pkg/telemetry/logging"
	"github.com/blueif16/openclaw-costguard/pkg/telemetry/metrics"
)

// maxEventLine bounds one JSONL event; tool parameter payloads can be
// large.
const maxEventLine = 1 << 20

var runFlags struct {
	skipRefresh bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ingest usage events from stdin",
	Long: `Ingest usage events as JSON lines on stdin, one event per line.

Every event is attributed, priced, appended to the ledger, and checked
against budgets and the anomaly detectors. Malformed or failing events
are logged and skipped; ingestion never stops on a single bad event.

Examples:
  # Pipe events from an agent runtime hook
  agent-runtime --usage-hook | costguard run

  # With a config file, hot-reloaded on change
  costguard run --config ~/.openclaw/costguard.yaml

  # Skip the startup price refresh (offline use)
  costguard run --skip-price-refresh`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runFlags.skipRefresh, "skip-price-refresh", false, "skip the startup price table refresh")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	home, err := cfg.ResolveHome()
	if err != nil {
		return fmt.Errorf("failed to resolve state directory: %w", err)
	}
	if err := os.MkdirAll(home, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	store, err := ledger.Open(config.LedgerPath(home))
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer store.Close()

	collector := metrics.NewCollector(nil)
	estimator := newEstimator(cfg, home)

	refresh := func() {
		res := estimator.Refresh(ctx)
		collector.RecordPricingRefresh(string(res.Source))
		slog.Info("price table refreshed", "models", res.Count, "source", string(res.Source))
	}
	if !runFlags.skipRefresh {
		refresh()
	}

	g := guard.New(store, estimator, cfg, guard.WithMetrics(collector))

	// Scheduled price refreshes.
	if schedule := cfg.Pricing.RefreshSchedule; schedule != "" {
		scheduler := cron.New()
		if _, err := scheduler.AddFunc(schedule, refresh); err != nil {
			return fmt.Errorf("invalid pricing refresh schedule %q: %w", schedule, err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	// Config hot reload.
	if cfgFile != "" {
		watcher := config.NewWatcher(cfgFile)
		go func() {
			if err := watcher.Watch(ctx, g.SetConfig); err != nil {
				slog.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	if cfg.Metrics.Enabled {
		srv := startMetricsServer(cfg.Metrics.ListenAddress, collector)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	slog.Info("costguard ingesting", "ledger", config.LedgerPath(home), "home", home)
	return ingestLoop(ctx, g, os.Stdin)
}

// newEstimator builds the price estimator from config, caching under the
// state directory.
func newEstimator(cfg *config.Config, home string) *pricing.Estimator {
	opts := []pricing.Option{}
	if cfg.Pricing.SourceURL != "" {
		opts = append(opts, pricing.WithSourceURL(cfg.Pricing.SourceURL))
	}
	return pricing.NewEstimator(config.PriceCachePath(home), opts...)
}

// startMetricsServer serves the Prometheus endpoint in the background.
func startMetricsServer(addr string, collector *metrics.Collector) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		slog.Info("metrics endpoint listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

// ingestLoop reads JSONL events until EOF or cancellation. Bad lines and
// failed events are logged and skipped.
func ingestLoop(ctx context.Context, g *guard.Guard, in *os.File) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), maxEventLine)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			slog.Error("stdin read failed", "error", err)
		}
	}()

	processed := 0
	for {
		select {
		case <-ctx.Done():
			slog.Info("shutting down", "events_processed", processed)
			return nil
		case line, ok := <-lines:
			if !ok {
				slog.Info("input closed", "events_processed", processed)
				return nil
			}
			if line == "" {
				continue
			}

			var ev guard.UsageEvent
			if err := json.Unmarshal([]byte(line), &ev); err != nil {
				slog.Warn("skipping malformed event", "error", err)
				continue
			}
			if _, err := g.ProcessEvent(ctx, &ev); err != nil {
				slog.Warn("skipping failed event", "session_key", ev.SessionKey, "error", err)
				continue
			}
			processed++
		}
	}
}
