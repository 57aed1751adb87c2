package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/blueif16/openclaw-costguard/pkg/usage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "costguard.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustAppend(t *testing.T, s *Store, rec usage.Record) {
	t.Helper()
	if rec.Model == "" {
		rec.Model = "claude-opus-4-1"
	}
	if rec.Provider == "" {
		rec.Provider = "anthropic"
	}
	if rec.AgentID == "" {
		rec.AgentID = "main"
	}
	if rec.Source == "" {
		rec.Source = usage.SourceUser
	}
	if err := s.Append(context.Background(), &rec); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
}

// ============================================================================
// Append + TotalsSince
// ============================================================================

func TestTotalsSince_Basic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mustAppend(t, s, usage.Record{Timestamp: 1000, SessionKey: "agent:main:main", CostUSD: 0.50, InputTokens: 100, OutputTokens: 20})
	mustAppend(t, s, usage.Record{Timestamp: 2000, SessionKey: "agent:main:main", CostUSD: 0.25, InputTokens: 50, OutputTokens: 10})
	mustAppend(t, s, usage.Record{Timestamp: 500, SessionKey: "agent:main:main", CostUSD: 9.99, InputTokens: 999, OutputTokens: 99})

	sum, err := s.TotalsSince(ctx, 1000, ScopeFilter{})
	if err != nil {
		t.Fatalf("TotalsSince failed: %v", err)
	}
	if sum.TotalCost != 0.75 {
		t.Errorf("TotalCost = %v, want 0.75", sum.TotalCost)
	}
	if sum.TotalInputTokens != 150 || sum.TotalOutputTokens != 30 {
		t.Errorf("tokens = %d/%d, want 150/30", sum.TotalInputTokens, sum.TotalOutputTokens)
	}
	if sum.InvocationCount != 2 {
		t.Errorf("InvocationCount = %d, want 2", sum.InvocationCount)
	}
}

func TestTotalsSince_EmptyRangeIsZero(t *testing.T) {
	s := openTestStore(t)

	sum, err := s.TotalsSince(context.Background(), 0, ScopeFilter{})
	if err != nil {
		t.Fatalf("TotalsSince on empty ledger failed: %v", err)
	}
	if sum != (usage.Summary{}) {
		t.Errorf("expected zero summary, got %+v", sum)
	}
}

func TestTotalsSince_ScopeFilter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mustAppend(t, s, usage.Record{Timestamp: 1, SessionKey: "agent:main:main", AgentID: "main", CostUSD: 1})
	mustAppend(t, s, usage.Record{Timestamp: 2, SessionKey: "agent:ops:cron:backup:run:1", AgentID: "ops", Source: usage.SourceCron, JobID: "backup", CostUSD: 2})
	mustAppend(t, s, usage.Record{Timestamp: 3, SessionKey: "agent:ops:main", AgentID: "ops", CostUSD: 4})

	tests := []struct {
		name     string
		filter   ScopeFilter
		wantCost float64
	}{
		{"no filter", ScopeFilter{}, 7},
		{"agent only", ScopeFilter{AgentID: "ops"}, 6},
		{"job only", ScopeFilter{JobID: "backup"}, 2},
		{"agent and job ANDed", ScopeFilter{AgentID: "ops", JobID: "backup"}, 2},
		{"agent and job mismatch", ScopeFilter{AgentID: "main", JobID: "backup"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum, err := s.TotalsSince(ctx, 0, tt.filter)
			if err != nil {
				t.Fatalf("TotalsSince failed: %v", err)
			}
			if sum.TotalCost != tt.wantCost {
				t.Errorf("TotalCost = %v, want %v", sum.TotalCost, tt.wantCost)
			}
		})
	}
}

func TestTotalsInWindow_InclusiveBounds(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mustAppend(t, s, usage.Record{Timestamp: 100, SessionKey: "k", CostUSD: 1})
	mustAppend(t, s, usage.Record{Timestamp: 200, SessionKey: "k", CostUSD: 2})
	mustAppend(t, s, usage.Record{Timestamp: 300, SessionKey: "k", CostUSD: 4})

	total, err := s.TotalsInWindow(ctx, 100, 200)
	if err != nil {
		t.Fatalf("TotalsInWindow failed: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %v, want 3 (both window ends inclusive)", total)
	}
}

// ============================================================================
// Grouped aggregates
// ============================================================================

func TestByModel_OrderedByCostDesc(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mustAppend(t, s, usage.Record{Timestamp: 1, SessionKey: "k", Model: "cheap", CostUSD: 0.01})
	mustAppend(t, s, usage.Record{Timestamp: 2, SessionKey: "k", Model: "expensive", CostUSD: 5})
	mustAppend(t, s, usage.Record{Timestamp: 3, SessionKey: "k", Model: "cheap", CostUSD: 0.02})

	rows, err := s.ByModel(ctx, 0)
	if err != nil {
		t.Fatalf("ByModel failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Model != "expensive" || rows[1].Model != "cheap" {
		t.Errorf("order = [%s, %s], want [expensive, cheap]", rows[0].Model, rows[1].Model)
	}
	if rows[1].InvocationCount != 2 {
		t.Errorf("cheap count = %d, want 2", rows[1].InvocationCount)
	}
}

func TestBySession_Limit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		mustAppend(t, s, usage.Record{Timestamp: int64(i), SessionKey: string(rune('a' + i)), CostUSD: float64(i)})
	}

	rows, err := s.BySession(ctx, 0, 3)
	if err != nil {
		t.Fatalf("BySession failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0].SessionKey != "e" {
		t.Errorf("top session = %q, want %q", rows[0].SessionKey, "e")
	}
}

// ============================================================================
// Session history
// ============================================================================

func TestTurnsForSession_Ordered(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mustAppend(t, s, usage.Record{Timestamp: 300, SessionKey: "sess", ContextTokens: 3000})
	mustAppend(t, s, usage.Record{Timestamp: 100, SessionKey: "sess", ContextTokens: 1000})
	mustAppend(t, s, usage.Record{Timestamp: 200, SessionKey: "other", ContextTokens: 9999})

	turns, err := s.TurnsForSession(ctx, "sess")
	if err != nil {
		t.Fatalf("TurnsForSession failed: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	if turns[0].Timestamp != 100 || turns[1].Timestamp != 300 {
		t.Errorf("timestamps = [%d, %d], want ascending [100, 300]", turns[0].Timestamp, turns[1].Timestamp)
	}
}

func TestRecentToolCalls_SkipsToollessAndLimits(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mustAppend(t, s, usage.Record{Timestamp: 1, SessionKey: "sess", ToolName: "read", ToolParamsHash: "aa"})
	mustAppend(t, s, usage.Record{Timestamp: 2, SessionKey: "sess"}) // no tool
	mustAppend(t, s, usage.Record{Timestamp: 3, SessionKey: "sess", ToolName: "exec", ToolParamsHash: "bb"})
	mustAppend(t, s, usage.Record{Timestamp: 4, SessionKey: "sess", ToolName: "exec", ToolParamsHash: "bb"})

	calls, err := s.RecentToolCalls(ctx, "sess", 2)
	if err != nil {
		t.Fatalf("RecentToolCalls failed: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(calls))
	}
	if calls[0].Timestamp != 4 || calls[1].Timestamp != 3 {
		t.Errorf("timestamps = [%d, %d], want newest first [4, 3]", calls[0].Timestamp, calls[1].Timestamp)
	}
}

// ============================================================================
// Cron run history
// ============================================================================

func TestCronRunHistory_GroupedNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Two runs of the same job, distinguished by session key.
	mustAppend(t, s, usage.Record{Timestamp: 100, SessionKey: "agent:main:cron:digest:run:1", Source: usage.SourceCron, JobID: "digest", CostUSD: 0.10, InputTokens: 10})
	mustAppend(t, s, usage.Record{Timestamp: 150, SessionKey: "agent:main:cron:digest:run:1", Source: usage.SourceCron, JobID: "digest", CostUSD: 0.10, InputTokens: 10})
	mustAppend(t, s, usage.Record{Timestamp: 500, SessionKey: "agent:main:cron:digest:run:2", Source: usage.SourceCron, JobID: "digest", CostUSD: 0.30, InputTokens: 30})

	runs, err := s.CronRunHistory(ctx, "digest", 10)
	if err != nil {
		t.Fatalf("CronRunHistory failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].SessionKey != "agent:main:cron:digest:run:2" {
		t.Errorf("latest run = %q, want run:2 first", runs[0].SessionKey)
	}
	if runs[1].TotalCost != 0.2 || runs[1].RunCount != 2 {
		t.Errorf("older run = cost %v count %d, want 0.2 / 2", runs[1].TotalCost, runs[1].RunCount)
	}
}

func TestCronRunContextStats_MinMax(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mustAppend(t, s, usage.Record{Timestamp: 1, SessionKey: "run1", Source: usage.SourceCron, JobID: "j", ContextTokens: 1000})
	mustAppend(t, s, usage.Record{Timestamp: 2, SessionKey: "run1", Source: usage.SourceCron, JobID: "j", ContextTokens: 8000})

	runs, err := s.CronRunContextStats(ctx, "j", 5)
	if err != nil {
		t.Fatalf("CronRunContextStats failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	if runs[0].MinContextTokens != 1000 || runs[0].MaxContextTokens != 8000 {
		t.Errorf("context bounds = %d/%d, want 1000/8000", runs[0].MinContextTokens, runs[0].MaxContextTokens)
	}
}

// ============================================================================
// Error surface
// ============================================================================

func TestAppend_NilRecord(t *testing.T) {
	s := openTestStore(t)

	err := s.Append(context.Background(), nil)
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected *StorageError, got %v", err)
	}
	if storageErr.Op != "append" {
		t.Errorf("Op = %q, want %q", storageErr.Op, "append")
	}
}

func TestAppend_AfterClose(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "closed.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	s.Close()

	err = s.Append(context.Background(), &usage.Record{Timestamp: 1, SessionKey: "k", Model: "m", Provider: "p", AgentID: "a", Source: usage.SourceUser})
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected *StorageError after close, got %v", err)
	}
}
