package sentinel

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/blueif16/openclaw-costguard/pkg/usage"
)

// LedgerReader is the slice of the ledger the detectors need. Reads may
// interleave with the single writer; thresholds carry wide enough margins
// that read skew between two queries of one detector run is tolerated.
type LedgerReader interface {
	RecentToolCalls(ctx context.Context, sessionKey string, windowSize int) ([]usage.ToolCall, error)
	TurnsForSession(ctx context.Context, sessionKey string) ([]usage.Turn, error)
	TotalsInWindow(ctx context.Context, sinceMs, untilMs int64) (float64, error)
	CronRunHistory(ctx context.Context, jobID string, limit int) ([]usage.CronRun, error)
}

// Engine evaluates the anomaly detectors after each ledger write. The
// dedup table is owned state: construct one Engine per pipeline and keep
// it for the process lifetime.
type Engine struct {
	reader LedgerReader
	dedup  *dedupTable
	logger *slog.Logger

	// now is injectable for dedup-TTL tests; defaults to time.Now.
	now func() time.Time
}

// NewEngine creates an Engine reading from the given ledger.
func NewEngine(reader LedgerReader) *Engine {
	return &Engine{
		reader: reader,
		dedup:  newDedupTable(DedupTTL),
		logger: slog.Default().With("component", "sentinel"),
		now:    time.Now,
	}
}

// CheckAfterEvent runs every configured detector against the just-written
// record and returns the newly fired, non-duplicate alerts. Detectors run
// independently; a detector whose ledger read fails is logged and
// skipped, never aborting the others.
func (e *Engine) CheckAfterEvent(ctx context.Context, rec *usage.Record, cfg *Config) []Alert {
	if cfg == nil {
		return nil
	}

	type detection struct {
		name string
		run  func() (*Alert, error)
	}
	detections := []detection{}
	if cfg.LoopDetection != nil {
		detections = append(detections, detection{"loop", func() (*Alert, error) { return e.detectLoop(ctx, rec, cfg.LoopDetection) }})
	}
	if cfg.ContextSpike != nil {
		detections = append(detections, detection{"contextSpike", func() (*Alert, error) { return e.detectContextSpike(ctx, rec, cfg.ContextSpike) }})
	}
	if cfg.CostVelocity != nil {
		detections = append(detections, detection{"costVelocity", func() (*Alert, error) { return e.detectCostVelocity(ctx, rec, cfg.CostVelocity) }})
	}
	if cfg.HeartbeatDrift != nil {
		detections = append(detections, detection{"heartbeatDrift", func() (*Alert, error) { return e.detectHeartbeatDrift(ctx, rec, cfg.HeartbeatDrift) }})
	}

	var alerts []Alert
	for _, d := range detections {
		alert, err := d.run()
		if err != nil {
			e.logger.Warn("detector failed, skipping", "detector", d.name, "error", err)
			continue
		}
		if alert == nil {
			continue
		}
		if !e.dedup.shouldFire(alert.Detector, alert.SessionKey, e.now()) {
			continue
		}
		alert.ID = uuid.NewString()
		alerts = append(alerts, *alert)
	}
	return alerts
}
