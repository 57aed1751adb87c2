package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blueif16/openclaw-costguard/pkg/ledger"
	"github.com/blueif16/openclaw-costguard/pkg/usage"
)

// Period selects the time window of a report.
type Period string

const (
	PeriodToday Period = "today"
	Period24h   Period = "24h"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod maps a user-supplied label to a Period. The empty string
// defaults to today.
func ParsePeriod(label string) (Period, error) {
	switch label {
	case "", "today":
		return PeriodToday, nil
	case "24h":
		return Period24h, nil
	case "week":
		return PeriodWeek, nil
	case "month":
		return PeriodMonth, nil
	default:
		return "", fmt.Errorf("unknown period %q (want today, 24h, week, or month)", label)
	}
}

// sinceMs is the inclusive window start for a period, in epoch ms.
// Today and month snap to local midnight; 24h and week are rolling.
func (p Period) sinceMs(now time.Time) int64 {
	switch p {
	case PeriodToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).UnixMilli()
	case PeriodWeek:
		return now.Add(-7 * 24 * time.Hour).UnixMilli()
	case PeriodMonth:
		y, m, _ := now.Date()
		return time.Date(y, m, 1, 0, 0, 0, 0, now.Location()).UnixMilli()
	default:
		return now.Add(-24 * time.Hour).UnixMilli()
	}
}

// Reader is the slice of the ledger the reports query.
type Reader interface {
	TotalsSince(ctx context.Context, sinceMs int64, filter ledger.ScopeFilter) (usage.Summary, error)
	ByModel(ctx context.Context, sinceMs int64) ([]usage.ModelSummary, error)
	BySource(ctx context.Context, sinceMs int64) ([]usage.SourceSummary, error)
	BySession(ctx context.Context, sinceMs int64, limit int) ([]usage.SessionSummary, error)
	TurnsForSession(ctx context.Context, sessionKey string) ([]usage.Turn, error)
	CronRunHistory(ctx context.Context, jobID string, limit int) ([]usage.CronRun, error)
	DailyTotals(ctx context.Context, days int) ([]usage.DailyTotal, error)
}

// Reporter renders reports from a ledger reader.
type Reporter struct {
	reader Reader

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// NewReporter creates a Reporter over the given reader.
func NewReporter(reader Reader) *Reporter {
	return &Reporter{reader: reader, now: time.Now}
}

// CostReport renders the period summary: totals, then per-model and
// per-source breakdowns ordered by spend.
func (r *Reporter) CostReport(ctx context.Context, period Period) (string, error) {
	since := period.sinceMs(r.now())

	summary, err := r.reader.TotalsSince(ctx, since, ledger.ScopeFilter{})
	if err != nil {
		return "", err
	}
	byModel, err := r.reader.ByModel(ctx, since)
	if err != nil {
		return "", err
	}
	bySource, err := r.reader.BySource(ctx, since)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Cost Report - %s\n\n", period)
	fmt.Fprintf(&b, "Total: %s across %d API calls\n", formatUSD(summary.TotalCost), summary.InvocationCount)
	fmt.Fprintf(&b, "Tokens: %s in / %s out\n", formatTokens(summary.TotalInputTokens), formatTokens(summary.TotalOutputTokens))

	if len(byModel) > 0 {
		b.WriteString("\nBy model:\n")
		for _, row := range byModel {
			fmt.Fprintf(&b, "  %s: %s (%d calls)\n", row.Model, formatUSD(row.TotalCost), row.InvocationCount)
		}
	}
	if len(bySource) > 0 {
		b.WriteString("\nBy source:\n")
		for _, row := range bySource {
			label := string(row.Source)
			if row.JobID != "" {
				label = "cron/" + row.JobID
			}
			fmt.Fprintf(&b, "  %s: %s (%d calls)\n", label, formatUSD(row.TotalCost), row.InvocationCount)
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// SessionReport renders the turn-by-turn history of one session with a
// running cumulative cost.
func (r *Reporter) SessionReport(ctx context.Context, sessionKey string) (string, error) {
	turns, err := r.reader.TurnsForSession(ctx, sessionKey)
	if err != nil {
		return "", err
	}
	if len(turns) == 0 {
		return fmt.Sprintf("No data for session: %s", sessionKey), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Session Autopsy - %s\n\n", sessionKey)

	cum := 0.0
	for _, t := range turns {
		cum += t.CostUSD
		ts := time.UnixMilli(t.Timestamp).Format("15:04:05")
		fmt.Fprintf(&b, "  %s  %s  %sin/%sout  %s  (cum: %s)  %dms\n",
			ts, t.Model,
			formatTokens(t.InputTokens), formatTokens(t.OutputTokens),
			formatUSD(t.CostUSD), formatUSD(cum), t.DurationMs)
	}
	fmt.Fprintf(&b, "\nTotal: %s across %d turns", formatUSD(cum), len(turns))
	return b.String(), nil
}

// CronReport renders a comparison of the most recent runs of one cron
// job, newest first.
func (r *Reporter) CronReport(ctx context.Context, jobID string, lastN int) (string, error) {
	if lastN <= 0 {
		lastN = 5
	}
	runs, err := r.reader.CronRunHistory(ctx, jobID, lastN)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return fmt.Sprintf("No data for cron job: %s", jobID), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Cron Job - %s (last %d runs)\n\n", jobID, len(runs))
	for _, run := range runs {
		start := time.UnixMilli(run.FirstTs).Format("2006-01-02 15:04")
		fmt.Fprintf(&b, "  %s  %d calls  %s  %s tokens\n",
			start, run.RunCount, formatUSD(run.TotalCost), formatTokens(run.TotalTokens))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// TopSessions renders the period's costliest sessions.
func (r *Reporter) TopSessions(ctx context.Context, period Period, limit int) (string, error) {
	if limit <= 0 {
		limit = 10
	}
	sessions, err := r.reader.BySession(ctx, period.sinceMs(r.now()), limit)
	if err != nil {
		return "", err
	}
	if len(sessions) == 0 {
		return fmt.Sprintf("No sessions found for period: %s", period), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Top %d Sessions - %s\n\n", len(sessions), period)
	for _, s := range sessions {
		fmt.Fprintf(&b, "  %s: %s (%d calls, %s tokens)\n",
			s.SessionKey, formatUSD(s.TotalCost), s.InvocationCount,
			formatTokens(s.TotalInputTokens+s.TotalOutputTokens))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// DailyReport renders per-day spend for the trailing N days, newest
// first as returned by the ledger.
func (r *Reporter) DailyReport(ctx context.Context, days int) (string, error) {
	if days <= 0 {
		days = 7
	}
	totals, err := r.reader.DailyTotals(ctx, days)
	if err != nil {
		return "", err
	}
	if len(totals) == 0 {
		return fmt.Sprintf("No usage in the last %d days", days), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Daily Spend - last %d days\n\n", days)
	for _, d := range totals {
		fmt.Fprintf(&b, "  %s  %s  %s tokens\n", d.Date, formatUSD(d.TotalCost), formatTokens(d.TotalTokens))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// formatUSD renders a dollar amount at sub-cent precision.
func formatUSD(n float64) string {
	return fmt.Sprintf("$%.4f", n)
}

// formatTokens renders a token count with K/M suffixes.
func formatTokens(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
