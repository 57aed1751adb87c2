package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/blueif16/openclaw-costguard/pkg/usage"
)

// ScopeFilter optionally restricts an aggregate query to one agent and/or
// one cron job. Both conditions are ANDed when set. The zero value applies
// no restriction.
type ScopeFilter struct {
	AgentID string
	JobID   string
}

// IsZero reports whether the filter applies no restriction.
func (f ScopeFilter) IsZero() bool {
	return f.AgentID == "" && f.JobID == ""
}

// TotalsSince sums cost, tokens, and invocation count over records with
// timestamp >= sinceMs, optionally restricted by the scope filter. An empty
// range yields all-zero totals, never an error.
func (s *Store) TotalsSince(ctx context.Context, sinceMs int64, filter ScopeFilter) (usage.Summary, error) {
	query := `
		SELECT
			COALESCE(SUM(cost_usd), 0),
			COALESCE(SUM(input_tokens), 0),
			COALESCE(SUM(output_tokens), 0),
			COUNT(*)
		FROM usage WHERE timestamp >= ?`
	args := []any{sinceMs}

	if filter.AgentID != "" {
		query += " AND agent_id = ?"
		args = append(args, filter.AgentID)
	}
	if filter.JobID != "" {
		query += " AND job_id = ?"
		args = append(args, filter.JobID)
	}

	var sum usage.Summary
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&sum.TotalCost, &sum.TotalInputTokens, &sum.TotalOutputTokens, &sum.InvocationCount,
	)
	if err != nil {
		return usage.Summary{}, newStorageError("totals_since", err)
	}
	return sum, nil
}

// TotalsInWindow sums cost over sinceMs <= timestamp <= untilMs, both ends
// inclusive.
func (s *Store) TotalsInWindow(ctx context.Context, sinceMs, untilMs int64) (float64, error) {
	var total float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(cost_usd), 0)
		FROM usage WHERE timestamp >= ? AND timestamp <= ?`,
		sinceMs, untilMs,
	).Scan(&total)
	if err != nil {
		return 0, newStorageError("totals_in_window", err)
	}
	return total, nil
}

// ByModel returns per-model aggregates since sinceMs, ordered by total cost
// descending.
func (s *Store) ByModel(ctx context.Context, sinceMs int64) ([]usage.ModelSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT model,
			COALESCE(SUM(cost_usd), 0),
			COALESCE(SUM(input_tokens), 0),
			COALESCE(SUM(output_tokens), 0),
			COUNT(*)
		FROM usage WHERE timestamp >= ?
		GROUP BY model ORDER BY SUM(cost_usd) DESC`,
		sinceMs,
	)
	if err != nil {
		return nil, newStorageError("by_model", err)
	}
	defer rows.Close()

	var out []usage.ModelSummary
	for rows.Next() {
		var m usage.ModelSummary
		if err := rows.Scan(&m.Model, &m.TotalCost, &m.TotalInputTokens, &m.TotalOutputTokens, &m.InvocationCount); err != nil {
			return nil, newStorageError("by_model", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, newStorageError("by_model", err)
	}
	return out, nil
}

// BySource returns per-(source, jobId) aggregates since sinceMs, ordered by
// total cost descending.
func (s *Store) BySource(ctx context.Context, sinceMs int64) ([]usage.SourceSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, job_id,
			COALESCE(SUM(cost_usd), 0),
			COALESCE(SUM(input_tokens), 0),
			COALESCE(SUM(output_tokens), 0),
			COUNT(*)
		FROM usage WHERE timestamp >= ?
		GROUP BY source, job_id ORDER BY SUM(cost_usd) DESC`,
		sinceMs,
	)
	if err != nil {
		return nil, newStorageError("by_source", err)
	}
	defer rows.Close()

	var out []usage.SourceSummary
	for rows.Next() {
		var (
			src   string
			jobID sql.NullString
			row   usage.SourceSummary
		)
		if err := rows.Scan(&src, &jobID, &row.TotalCost, &row.TotalInputTokens, &row.TotalOutputTokens, &row.InvocationCount); err != nil {
			return nil, newStorageError("by_source", err)
		}
		row.Source = usage.Source(src)
		row.JobID = jobID.String
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, newStorageError("by_source", err)
	}
	return out, nil
}

// BySession returns the top per-session aggregates since sinceMs, ordered by
// total cost descending, at most limit rows.
func (s *Store) BySession(ctx context.Context, sinceMs int64, limit int) ([]usage.SessionSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_key,
			COALESCE(SUM(cost_usd), 0),
			COALESCE(SUM(input_tokens), 0),
			COALESCE(SUM(output_tokens), 0),
			COUNT(*)
		FROM usage WHERE timestamp >= ?
		GROUP BY session_key ORDER BY SUM(cost_usd) DESC LIMIT ?`,
		sinceMs, limit,
	)
	if err != nil {
		return nil, newStorageError("by_session", err)
	}
	defer rows.Close()

	var out []usage.SessionSummary
	for rows.Next() {
		var row usage.SessionSummary
		if err := rows.Scan(&row.SessionKey, &row.TotalCost, &row.TotalInputTokens, &row.TotalOutputTokens, &row.InvocationCount); err != nil {
			return nil, newStorageError("by_session", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, newStorageError("by_session", err)
	}
	return out, nil
}

// TurnsForSession returns the full time-ordered record list for a session.
// This backs session autopsies and context-spike detection.
func (s *Store) TurnsForSession(ctx context.Context, sessionKey string) ([]usage.Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, model, input_tokens, output_tokens, cache_read_tokens,
			cost_usd, duration_ms, context_tokens, tool_name, tool_params_hash
		FROM usage WHERE session_key = ? ORDER BY timestamp ASC, id ASC`,
		sessionKey,
	)
	if err != nil {
		return nil, newStorageError("turns_for_session", err)
	}
	defer rows.Close()

	var out []usage.Turn
	for rows.Next() {
		var t usage.Turn
		if err := rows.Scan(&t.Timestamp, &t.Model, &t.InputTokens, &t.OutputTokens, &t.CacheReadTokens,
			&t.CostUSD, &t.DurationMs, &t.ContextTokens, &t.ToolName, &t.ToolParamsHash); err != nil {
			return nil, newStorageError("turns_for_session", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, newStorageError("turns_for_session", err)
	}
	return out, nil
}

// RecentToolCalls returns the most recent windowSize records for the session
// that carry a non-empty tool name, newest first.
func (s *Store) RecentToolCalls(ctx context.Context, sessionKey string, windowSize int) ([]usage.ToolCall, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, tool_name, tool_params_hash
		FROM usage WHERE session_key = ? AND tool_name != ''
		ORDER BY timestamp DESC, id DESC LIMIT ?`,
		sessionKey, windowSize,
	)
	if err != nil {
		return nil, newStorageError("recent_tool_calls", err)
	}
	defer rows.Close()

	var out []usage.ToolCall
	for rows.Next() {
		var c usage.ToolCall
		if err := rows.Scan(&c.Timestamp, &c.ToolName, &c.ToolParamsHash); err != nil {
			return nil, newStorageError("recent_tool_calls", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, newStorageError("recent_tool_calls", err)
	}
	return out, nil
}

// CronRunHistory returns per-session-key aggregates for a cron job, ordered
// by first-seen timestamp descending, at most limit runs.
func (s *Store) CronRunHistory(ctx context.Context, jobID string, limit int) ([]usage.CronRun, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_key,
			COUNT(*),
			COALESCE(SUM(cost_usd), 0),
			COALESCE(SUM(input_tokens + output_tokens), 0),
			MIN(timestamp), MAX(timestamp)
		FROM usage WHERE job_id = ?
		GROUP BY session_key ORDER BY MIN(timestamp) DESC LIMIT ?`,
		jobID, limit,
	)
	if err != nil {
		return nil, newStorageError("cron_run_history", err)
	}
	defer rows.Close()

	var out []usage.CronRun
	for rows.Next() {
		var r usage.CronRun
		if err := rows.Scan(&r.SessionKey, &r.RunCount, &r.TotalCost, &r.TotalTokens, &r.FirstTs, &r.LastTs); err != nil {
			return nil, newStorageError("cron_run_history", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, newStorageError("cron_run_history", err)
	}
	return out, nil
}

// CronRunContextStats returns the same per-run grouping as CronRunHistory
// with the minimum and maximum context token counts observed in each run.
func (s *Store) CronRunContextStats(ctx context.Context, jobID string, limit int) ([]usage.CronRun, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_key,
			COUNT(*),
			COALESCE(SUM(cost_usd), 0),
			COALESCE(SUM(input_tokens + output_tokens), 0),
			MIN(timestamp), MAX(timestamp),
			COALESCE(MIN(context_tokens), 0), COALESCE(MAX(context_tokens), 0)
		FROM usage WHERE job_id = ?
		GROUP BY session_key ORDER BY MIN(timestamp) DESC LIMIT ?`,
		jobID, limit,
	)
	if err != nil {
		return nil, newStorageError("cron_run_context_stats", err)
	}
	defer rows.Close()

	var out []usage.CronRun
	for rows.Next() {
		var r usage.CronRun
		if err := rows.Scan(&r.SessionKey, &r.RunCount, &r.TotalCost, &r.TotalTokens, &r.FirstTs, &r.LastTs,
			&r.MinContextTokens, &r.MaxContextTokens); err != nil {
			return nil, newStorageError("cron_run_context_stats", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, newStorageError("cron_run_context_stats", err)
	}
	return out, nil
}

// DailyTotals returns one row per local calendar day for the trailing days,
// oldest first.
func (s *Store) DailyTotals(ctx context.Context, days int) ([]usage.DailyTotal, error) {
	if days <= 0 {
		days = 30
	}
	sinceMs := time.Now().Add(-time.Duration(days) * 24 * time.Hour).UnixMilli()
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			DATE(timestamp / 1000, 'unixepoch', 'localtime'),
			COALESCE(SUM(cost_usd), 0),
			COALESCE(SUM(input_tokens + output_tokens), 0)
		FROM usage WHERE timestamp >= ?
		GROUP BY 1 ORDER BY 1 ASC`,
		sinceMs,
	)
	if err != nil {
		return nil, newStorageError("daily_totals", err)
	}
	defer rows.Close()

	var out []usage.DailyTotal
	for rows.Next() {
		var d usage.DailyTotal
		if err := rows.Scan(&d.Date, &d.TotalCost, &d.TotalTokens); err != nil {
			return nil, newStorageError("daily_totals", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, newStorageError("daily_totals", err)
	}
	return out, nil
}
