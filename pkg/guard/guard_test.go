package guard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/blueif16/openclaw-costguard/pkg/budget"
	"github.com/blueif16/openclaw-costguard/pkg/config"
	"github.com/blueif16/openclaw-costguard/pkg/ledger"
	"github.com/blueif16/openclaw-costguard/pkg/pricing"
	"github.com/blueif16/openclaw-costguard/pkg/sentinel"
	"github.com/blueif16/openclaw-costguard/pkg/usage"
)

func f64(v float64) *float64 { return &v }

// captureNotifier records delivered alerts for assertions.
type captureNotifier struct {
	channels []string
	alerts   []sentinel.Alert
}

func (n *captureNotifier) Deliver(_ context.Context, channel string, alert sentinel.Alert) error {
	n.channels = append(n.channels, channel)
	n.alerts = append(n.alerts, alert)
	return nil
}

func newTestGuard(t *testing.T, cfg *config.Config, opts ...Option) (*Guard, *ledger.Store) {
	t.Helper()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "costguard.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if cfg == nil {
		cfg = config.Default()
	}
	return New(store, pricing.NewEstimator(""), cfg, opts...), store
}

// ============================================================================
// Attribution + persistence
// ============================================================================

func TestProcessEvent_AttributesAndPersists(t *testing.T) {
	g, store := newTestGuard(t, nil)
	ctx := context.Background()

	out, err := g.ProcessEvent(ctx, &UsageEvent{
		SessionKey:   "agent:main:cron:daily-report:run:42",
		Model:        "claude-opus-4-1",
		Provider:     "anthropic",
		InputTokens:  1200,
		OutputTokens: 300,
		CostUSD:      0.05,
	})
	if err != nil {
		t.Fatalf("ProcessEvent failed: %v", err)
	}

	rec := out.Record
	if rec.Source != usage.SourceCron {
		t.Errorf("Source = %q, want cron", rec.Source)
	}
	if rec.JobID != "daily-report" {
		t.Errorf("JobID = %q, want daily-report", rec.JobID)
	}
	if rec.AgentID != "main" {
		t.Errorf("AgentID = %q, want main", rec.AgentID)
	}
	if rec.Timestamp == 0 {
		t.Error("Timestamp not stamped")
	}
	if rec.CostUSD != 0.05 {
		t.Errorf("CostUSD = %v, want 0.05", rec.CostUSD)
	}

	sum, err := store.TotalsSince(ctx, 0, ledger.ScopeFilter{})
	if err != nil {
		t.Fatalf("TotalsSince failed: %v", err)
	}
	if sum.InvocationCount != 1 || sum.TotalCost != 0.05 {
		t.Errorf("ledger summary = %+v, want one row costing 0.05", sum)
	}
}

func TestProcessEvent_Validation(t *testing.T) {
	g, _ := newTestGuard(t, nil)
	ctx := context.Background()

	if _, err := g.ProcessEvent(ctx, &UsageEvent{Model: "claude-opus-4-1"}); err == nil {
		t.Error("Expected error for missing session key")
	}
	if _, err := g.ProcessEvent(ctx, &UsageEvent{SessionKey: "agent:main:main"}); err == nil {
		t.Error("Expected error for missing model")
	}
}

func TestProcessEvent_ToolParamsHash(t *testing.T) {
	g, _ := newTestGuard(t, nil)
	ctx := context.Background()

	out, err := g.ProcessEvent(ctx, &UsageEvent{
		SessionKey: "agent:main:main",
		Model:      "claude-opus-4-1",
		CostUSD:    0.01,
		ToolName:   "exec",
		ToolParams: `{"command":"ls -la"}`,
	})
	if err != nil {
		t.Fatalf("ProcessEvent failed: %v", err)
	}
	if len(out.Record.ToolParamsHash) != hashHexLen {
		t.Errorf("hash length = %d, want %d", len(out.Record.ToolParamsHash), hashHexLen)
	}

	again, err := g.ProcessEvent(ctx, &UsageEvent{
		SessionKey: "agent:main:main",
		Model:      "claude-opus-4-1",
		CostUSD:    0.01,
		ToolName:   "exec",
		ToolParams: `{"command":"ls -la"}`,
	})
	if err != nil {
		t.Fatalf("ProcessEvent failed: %v", err)
	}
	if again.Record.ToolParamsHash != out.Record.ToolParamsHash {
		t.Error("identical params must hash identically")
	}
}

// ============================================================================
// Pricing
// ============================================================================

func TestProcessEvent_EstimatesFromPriceTable(t *testing.T) {
	payload := `{
		"anthropic/claude-opus-4-1": {
			"input_cost_per_token": 0.000015,
			"output_cost_per_token": 0.000075
		}
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	store, err := ledger.Open(filepath.Join(t.TempDir(), "costguard.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	estimator := pricing.NewEstimator("", pricing.WithSourceURL(srv.URL))
	if res := estimator.Refresh(context.Background()); res.Source != pricing.SourceRemote {
		t.Fatalf("Refresh source = %v, want remote", res.Source)
	}

	g := New(store, estimator, config.Default())

	out, err := g.ProcessEvent(context.Background(), &UsageEvent{
		SessionKey:   "agent:main:main",
		Model:        "claude-opus-4-1",
		InputTokens:  1_000_000,
		OutputTokens: 0,
	})
	if err != nil {
		t.Fatalf("ProcessEvent failed: %v", err)
	}
	if got := out.Record.CostUSD; got < 14.99 || got > 15.01 {
		t.Errorf("CostUSD = %v, want 15.0 from the price table", got)
	}
}

func TestProcessEvent_PrefersReportedCost(t *testing.T) {
	g, _ := newTestGuard(t, nil)

	out, err := g.ProcessEvent(context.Background(), &UsageEvent{
		SessionKey:  "agent:main:main",
		Model:       "claude-opus-4-1",
		InputTokens: 1_000_000,
		CostUSD:     0.42,
	})
	if err != nil {
		t.Fatalf("ProcessEvent failed: %v", err)
	}
	if out.Record.CostUSD != 0.42 {
		t.Errorf("CostUSD = %v, want the runtime-reported 0.42", out.Record.CostUSD)
	}
}

// ============================================================================
// Budget + sentinel integration
// ============================================================================

func TestProcessEvent_BudgetWarning(t *testing.T) {
	cfg := config.Default()
	cfg.Budget = budget.Config{DailyLimitUSD: f64(1.0)}

	g, _ := newTestGuard(t, cfg)
	ctx := context.Background()

	out, err := g.ProcessEvent(ctx, &UsageEvent{
		SessionKey: "agent:main:main",
		Model:      "claude-opus-4-1",
		CostUSD:    0.85,
	})
	if err != nil {
		t.Fatalf("ProcessEvent failed: %v", err)
	}
	if out.Budget.Level != budget.LevelWarning {
		t.Errorf("Level = %v, want warning at 85%% of the daily limit", out.Budget.Level)
	}

	out, err = g.ProcessEvent(ctx, &UsageEvent{
		SessionKey: "agent:main:main",
		Model:      "claude-opus-4-1",
		CostUSD:    0.20,
	})
	if err != nil {
		t.Fatalf("ProcessEvent failed: %v", err)
	}
	if out.Budget.Level != budget.LevelExceeded {
		t.Errorf("Level = %v, want exceeded past the daily limit", out.Budget.Level)
	}
}

func TestProcessEvent_LoopAlertDelivered(t *testing.T) {
	cfg := config.Default()
	cfg.Sentinel = sentinel.Config{
		LoopDetection: &sentinel.LoopConfig{WindowSize: 10, RepeatThreshold: 3, Action: sentinel.ActionWarn},
		AlertChannel:  "ops",
	}

	notifier := &captureNotifier{}
	g, _ := newTestGuard(t, cfg, WithNotifier(notifier))
	ctx := context.Background()

	ev := UsageEvent{
		SessionKey: "agent:main:main",
		Model:      "claude-opus-4-1",
		CostUSD:    0.01,
		ToolName:   "web_fetch",
		ToolParams: `{"url":"https://example.com"}`,
	}

	var alerts []sentinel.Alert
	for i := 0; i < 3; i++ {
		out, err := g.ProcessEvent(ctx, &ev)
		if err != nil {
			t.Fatalf("ProcessEvent failed: %v", err)
		}
		alerts = append(alerts, out.Alerts...)
	}

	if len(alerts) != 1 {
		t.Fatalf("fired %d alerts, want 1 at the repeat threshold", len(alerts))
	}
	if alerts[0].Detector != "loop" {
		t.Errorf("Detector = %q, want loop", alerts[0].Detector)
	}
	if alerts[0].ID == "" {
		t.Error("alert missing ID")
	}

	if len(notifier.alerts) != 1 {
		t.Fatalf("delivered %d alerts, want 1", len(notifier.alerts))
	}
	if notifier.channels[0] != "ops" {
		t.Errorf("channel = %q, want ops", notifier.channels[0])
	}
}

func TestSetConfig_HotSwap(t *testing.T) {
	g, _ := newTestGuard(t, nil)
	ctx := context.Background()

	out, err := g.ProcessEvent(ctx, &UsageEvent{
		SessionKey: "agent:main:main",
		Model:      "claude-opus-4-1",
		CostUSD:    0.90,
	})
	if err != nil {
		t.Fatalf("ProcessEvent failed: %v", err)
	}
	if out.Budget.Level != budget.LevelOk {
		t.Errorf("Level = %v, want ok with no limits configured", out.Budget.Level)
	}

	cfg := config.Default()
	cfg.Budget = budget.Config{DailyLimitUSD: f64(1.0)}
	g.SetConfig(cfg)

	out, err = g.ProcessEvent(ctx, &UsageEvent{
		SessionKey: "agent:main:main",
		Model:      "claude-opus-4-1",
		CostUSD:    0.05,
	})
	if err != nil {
		t.Fatalf("ProcessEvent failed: %v", err)
	}
	if out.Budget.Level != budget.LevelWarning {
		t.Errorf("Level = %v, want warning under the swapped-in limit", out.Budget.Level)
	}
}
