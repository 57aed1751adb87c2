package guard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/blueif16/openclaw-costguard/pkg/attribution"
	"github.com/blueif16/openclaw-costguard/pkg/budget"
	"github.com/blueif16/openclaw-costguard/pkg/config"
	"github.com/blueif16/openclaw-costguard/pkg/pricing"
	"github.com/blueif16/openclaw-costguard/pkg/sentinel"
	"github.com/blueif16/openclaw-costguard/pkg/telemetry/metrics"
	"github.com/blueif16/openclaw-costguard/pkg/usage"
)

// Ledger is the slice of the store the pipeline needs: the single append
// path plus the read surfaces the budget evaluator and sentinel engine
// query after each write.
type Ledger interface {
	Append(ctx context.Context, rec *usage.Record) error
	budget.SpendReader
	sentinel.LedgerReader
}

// Guard runs the per-event pipeline. Construct one per process; events
// are serialized through an internal mutex so detector reads always see
// the record they were triggered by.
type Guard struct {
	ledger    Ledger
	estimator *pricing.Estimator
	evaluator *budget.Evaluator
	engine    *sentinel.Engine
	notifier  sentinel.Notifier
	collector *metrics.Collector
	logger    *slog.Logger

	mu  sync.Mutex
	cfg *config.Config

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// Option configures a Guard.
type Option func(*Guard)

// WithNotifier overrides the alert delivery channel. The default logs
// alerts via sentinel.LogNotifier.
func WithNotifier(n sentinel.Notifier) Option {
	return func(g *Guard) { g.notifier = n }
}

// WithMetrics attaches a Prometheus collector. Nil is valid and records
// nothing.
func WithMetrics(c *metrics.Collector) Option {
	return func(g *Guard) { g.collector = c }
}

// New creates a Guard over the given ledger, estimator, and configuration.
func New(ledger Ledger, estimator *pricing.Estimator, cfg *config.Config, opts ...Option) *Guard {
	g := &Guard{
		ledger:    ledger,
		estimator: estimator,
		evaluator: budget.NewEvaluator(ledger),
		engine:    sentinel.NewEngine(ledger),
		notifier:  sentinel.NewLogNotifier(nil),
		logger:    slog.Default().With("component", "guard"),
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SetConfig swaps the active configuration. Called by the config watcher
// on hot reload; in-flight events finish under the old config.
func (g *Guard) SetConfig(cfg *config.Config) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cfg = cfg
}

// Outcome is everything one event produced: the persisted record, the
// budget classification, and any sentinel alerts that fired.
type Outcome struct {
	Record usage.Record
	Budget budget.Result
	Alerts []sentinel.Alert
}

// ProcessEvent runs the full pipeline for one usage event: attribute,
// price, persist, then budget and sentinel checks. The ledger append is
// the only fatal step; budget or sentinel failures degrade to an ok
// classification and are logged, never dropping the record.
func (g *Guard) ProcessEvent(ctx context.Context, ev *UsageEvent) (*Outcome, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	cfg := g.cfg

	rec := g.buildRecord(ev)
	if err := g.ledger.Append(ctx, &rec); err != nil {
		return nil, fmt.Errorf("ledger append: %w", err)
	}
	g.collector.RecordEvent(string(rec.Source), rec.Model, rec.CostUSD)

	out := &Outcome{Record: rec}
	out.Budget = g.checkBudget(ctx, cfg, &rec)
	out.Alerts = g.checkSentinel(ctx, cfg, &rec)
	return out, nil
}

// buildRecord attributes and prices one event.
func (g *Guard) buildRecord(ev *UsageEvent) usage.Record {
	attr := attribution.Resolve(ev.SessionKey)

	cost := ev.CostUSD
	if cost <= 0 && g.estimator != nil {
		est := g.estimator.Estimate(ev.Model, ev.InputTokens, ev.OutputTokens, ev.CacheReadTokens, ev.CacheWriteTokens)
		cost = est.Cost
		if est.MatchedModel == "" && g.estimator.Loaded() {
			g.logger.Debug("no price entry matched, recording zero cost", "model", ev.Model)
		}
	}

	ts := ev.Timestamp
	if ts == 0 {
		ts = g.now().UnixMilli()
	}

	return usage.Record{
		Timestamp:        ts,
		SessionKey:       ev.SessionKey,
		AgentID:          attribution.AgentID(ev.SessionKey),
		Source:           attr.Source,
		JobID:            attr.JobID,
		Model:            ev.Model,
		Provider:         ev.Provider,
		InputTokens:      ev.InputTokens,
		OutputTokens:     ev.OutputTokens,
		CacheReadTokens:  ev.CacheReadTokens,
		CacheWriteTokens: ev.CacheWriteTokens,
		CostUSD:          cost,
		DurationMs:       ev.DurationMs,
		ContextTokens:    ev.ContextTokens,
		ToolName:         ev.ToolName,
		ToolParamsHash:   hashToolParams(ev.ToolParams),
	}
}

// checkBudget classifies spend for the record's scope. Query failures
// degrade to LevelOk.
func (g *Guard) checkBudget(ctx context.Context, cfg *config.Config, rec *usage.Record) budget.Result {
	res, err := g.evaluator.Check(ctx, &cfg.Budget, rec.SessionKey, rec.JobID)
	if err != nil {
		g.logger.Warn("budget check failed, treating as ok", "error", err)
		return budget.Result{Level: budget.LevelOk}
	}

	scopeKey := budget.ResolveScope(rec.SessionKey, rec.JobID, &cfg.Budget).Key
	if scopeKey == "" {
		scopeKey = "global"
	}
	g.collector.SetBudgetLevel(scopeKey, int(res.Level))

	if res.Level != budget.LevelOk {
		g.logger.Warn("budget threshold crossed",
			"level", res.Level.String(),
			"period", string(res.Period),
			"scope", scopeKey,
			"spend", res.CurrentSpend,
			"limit", res.Limit,
		)
	}
	return res
}

// checkSentinel runs the detectors and dispatches any fired alerts.
// Delivery failures are logged per alert; the alert is still returned to
// the caller.
func (g *Guard) checkSentinel(ctx context.Context, cfg *config.Config, rec *usage.Record) []sentinel.Alert {
	alerts := g.engine.CheckAfterEvent(ctx, rec, &cfg.Sentinel)
	for _, alert := range alerts {
		g.collector.RecordAlert(alert.Detector, string(alert.Severity))
		if err := g.notifier.Deliver(ctx, cfg.Sentinel.AlertChannel, alert); err != nil {
			g.logger.Warn("alert delivery failed",
				"alert_id", alert.ID,
				"detector", alert.Detector,
				"error", err,
			)
		}
	}
	return alerts
}
