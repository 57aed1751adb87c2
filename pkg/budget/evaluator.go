package budget

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/blueif16/openclaw-costguard/pkg/attribution"
	"github.com/blueif16/openclaw-costguard/pkg/ledger"
	"github.com/blueif16/openclaw-costguard/pkg/usage"
)

// SpendReader is the slice of the ledger the evaluator needs.
type SpendReader interface {
	TotalsSince(ctx context.Context, sinceMs int64, filter ledger.ScopeFilter) (usage.Summary, error)
}

// Evaluator classifies spend against budget limits using ledger queries.
type Evaluator struct {
	reader SpendReader
	logger *slog.Logger

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// NewEvaluator creates an Evaluator backed by the given spend reader.
func NewEvaluator(reader SpendReader) *Evaluator {
	return &Evaluator{
		reader: reader,
		logger: slog.Default().With("component", "budget"),
		now:    time.Now,
	}
}

// Scope is the outcome of scope resolution: the effective limits after
// merging a matching override onto the global config, plus the ledger
// filter that restricts spend queries to the matched dimension. The
// filter is zero for the global scope.
type Scope struct {
	Key    string
	Limits Limits
	Filter ledger.ScopeFilter
}

// Limits are the effective per-period ceilings. Nil means unconfigured.
type Limits struct {
	Daily   *float64
	Weekly  *float64
	Monthly *float64
}

// ResolveScope finds the effective limits for a session. Lookup order:
// exact "cron:<jobId>", exact "agent:<agentId>", "cron:*", "agent:*",
// then the global config. First match wins; its partial override is
// merged onto the global limits.
func ResolveScope(sessionKey, jobID string, cfg *Config) Scope {
	agentID := attribution.AgentID(sessionKey)
	global := Limits{Daily: cfg.DailyLimitUSD, Weekly: cfg.WeeklyLimitUSD, Monthly: cfg.MonthlyLimitUSD}

	type candidate struct {
		key    string
		filter ledger.ScopeFilter
	}
	var candidates []candidate
	if jobID != "" {
		candidates = append(candidates, candidate{"cron:" + jobID, ledger.ScopeFilter{JobID: jobID}})
	}
	if agentID != "" {
		candidates = append(candidates, candidate{"agent:" + agentID, ledger.ScopeFilter{AgentID: agentID}})
	}
	if jobID != "" {
		candidates = append(candidates, candidate{"cron:*", ledger.ScopeFilter{JobID: jobID}})
	}
	if agentID != "" {
		candidates = append(candidates, candidate{"agent:*", ledger.ScopeFilter{AgentID: agentID}})
	}

	for _, c := range candidates {
		ov, ok := cfg.Scopes[c.key]
		if !ok {
			continue
		}
		return Scope{Key: c.key, Limits: mergeLimits(global, ov), Filter: c.filter}
	}

	return Scope{Limits: global}
}

// mergeLimits applies a partial override on top of the global limits.
func mergeLimits(global Limits, ov ScopeOverride) Limits {
	merged := global
	if ov.DailyLimitUSD != nil {
		merged.Daily = ov.DailyLimitUSD
	}
	if ov.WeeklyLimitUSD != nil {
		merged.Weekly = ov.WeeklyLimitUSD
	}
	if ov.MonthlyLimitUSD != nil {
		merged.Monthly = ov.MonthlyLimitUSD
	}
	return merged
}

// Check classifies current spend against the configured limits. When a
// session key is supplied, scope resolution runs first and its filter
// restricts the spend queries. Periods are evaluated strictly in the
// order daily, weekly, monthly; the first period that is not ok decides
// the result. Spend exactly at the limit is exceeded.
func (e *Evaluator) Check(ctx context.Context, cfg *Config, sessionKey, jobID string) (Result, error) {
	limits := Limits{Daily: cfg.DailyLimitUSD, Weekly: cfg.WeeklyLimitUSD, Monthly: cfg.MonthlyLimitUSD}
	filter := ledger.ScopeFilter{}
	if sessionKey != "" {
		scope := ResolveScope(sessionKey, jobID, cfg)
		limits = scope.Limits
		filter = scope.Filter
	}

	now := e.now()
	periods := []struct {
		period Period
		limit  *float64
		since  time.Time
	}{
		{PeriodDaily, limits.Daily, startOfDay(now)},
		{PeriodWeekly, limits.Weekly, now.Add(-7 * 24 * time.Hour)},
		{PeriodMonthly, limits.Monthly, startOfMonth(now)},
	}

	for _, p := range periods {
		if p.limit == nil {
			continue
		}
		sum, err := e.reader.TotalsSince(ctx, p.since.UnixMilli(), filter)
		if err != nil {
			return Result{}, fmt.Errorf("budget spend query (%s): %w", p.period, err)
		}
		if res, triggered := classify(cfg, p.period, sum.TotalCost, *p.limit); triggered {
			return res, nil
		}
	}

	return Result{Level: LevelOk}, nil
}

// classify maps one period's spend to a severity level, or reports no
// trigger so the caller moves to the next period.
func classify(cfg *Config, period Period, spend, limit float64) (Result, bool) {
	percent := 0.0
	if limit > 0 {
		percent = spend / limit
	}

	base := Result{Period: period, CurrentSpend: spend, Limit: limit, Percent: percent}
	label := periodLabel(period)

	switch {
	case percent >= 1:
		base.Level = LevelExceeded
		base.Message = fmt.Sprintf("%s budget exceeded: $%.2f / $%.2f", label, spend, limit)
		return base, true
	case cfg.ThrottleThreshold > 0 && cfg.ThrottleFallbackModel != "" && percent >= cfg.ThrottleThreshold:
		base.Level = LevelThrottle
		base.FallbackModel = cfg.ThrottleFallbackModel
		base.Message = fmt.Sprintf("%s budget %.0f%%: throttling to %s", label, percent*100, cfg.ThrottleFallbackModel)
		return base, true
	case percent >= cfg.warnThreshold():
		base.Level = LevelWarning
		base.Message = fmt.Sprintf("%s budget %.0f%%: $%.2f / $%.2f", label, percent*100, spend, limit)
		return base, true
	}
	return Result{}, false
}

func periodLabel(p Period) string {
	switch p {
	case PeriodDaily:
		return "Daily"
	case PeriodWeekly:
		return "Weekly"
	default:
		return "Monthly"
	}
}

// startOfDay is local midnight of the current day.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// startOfMonth is local midnight of the current month's first day.
func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}
