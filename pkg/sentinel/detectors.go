package sentinel

import (
	"context"
	"fmt"

	"github.com/blueif16/openclaw-costguard/pkg/usage"
)

// detectLoop fires when any (tool, params-hash) group in the session's
// recent tool calls reaches the repeat threshold. Records without a tool
// name are skipped.
func (e *Engine) detectLoop(ctx context.Context, rec *usage.Record, cfg *LoopConfig) (*Alert, error) {
	if rec.ToolName == "" {
		return nil, nil
	}

	calls, err := e.reader.RecentToolCalls(ctx, rec.SessionKey, cfg.WindowSize)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(calls))
	for _, c := range calls {
		counts[c.ToolName+"|"+c.ToolParamsHash]++
	}

	for _, c := range calls {
		key := c.ToolName + "|" + c.ToolParamsHash
		count := counts[key]
		if count < cfg.RepeatThreshold {
			continue
		}
		return &Alert{
			Detector:   "loop",
			Severity:   SeverityCritical,
			SessionKey: rec.SessionKey,
			Action:     cfg.Action,
			Message: fmt.Sprintf("Loop detected: %s called %d× with same params (hash: %s) in last %d calls",
				c.ToolName, count, c.ToolParamsHash, cfg.WindowSize),
			Data: map[string]any{
				"tool":   c.ToolName,
				"hash":   c.ToolParamsHash,
				"count":  count,
				"window": cfg.WindowSize,
			},
		}, nil
	}
	return nil, nil
}

// detectContextSpike fires when the last two turns' context token counts
// grew by both the configured percentage and the absolute floor. Skipped
// for records without a context count, sessions with fewer than two
// turns, and a zero prior value.
func (e *Engine) detectContextSpike(ctx context.Context, rec *usage.Record, cfg *ContextSpikeConfig) (*Alert, error) {
	if rec.ContextTokens == 0 {
		return nil, nil
	}

	turns, err := e.reader.TurnsForSession(ctx, rec.SessionKey)
	if err != nil {
		return nil, err
	}
	if len(turns) < 2 {
		return nil, nil
	}

	prev := turns[len(turns)-2].ContextTokens
	cur := turns[len(turns)-1].ContextTokens
	if prev == 0 {
		return nil, nil
	}

	absDelta := cur - prev
	growthPct := float64(absDelta) / float64(prev) * 100
	if growthPct < cfg.GrowthPercent || absDelta < cfg.AbsoluteMin {
		return nil, nil
	}

	return &Alert{
		Detector:   "contextSpike",
		Severity:   SeverityWarn,
		SessionKey: rec.SessionKey,
		Action:     cfg.Action,
		Message: fmt.Sprintf("Context spike: %d → %d (+%.0f%%, +%d tokens)",
			prev, cur, growthPct, absDelta),
		Data: map[string]any{
			"prev":      prev,
			"cur":       cur,
			"growthPct": growthPct,
			"absDelta":  absDelta,
		},
	}, nil
}

// detectCostVelocity fires when the cost-per-minute over the short window
// reaches the configured multiple of the trailing 24-hour rate. The
// baseline divides by a fixed 1440 minutes regardless of how much
// history actually exists, which understates the baseline right after a
// cold start; a zero baseline skips the check entirely.
func (e *Engine) detectCostVelocity(ctx context.Context, rec *usage.Record, cfg *CostVelocityConfig) (*Alert, error) {
	now := rec.Timestamp
	windowMs := int64(cfg.WindowMinutes) * 60_000

	recentCost, err := e.reader.TotalsInWindow(ctx, now-windowMs, now)
	if err != nil {
		return nil, err
	}
	recentRate := recentCost / float64(cfg.WindowMinutes)

	dayCost, err := e.reader.TotalsInWindow(ctx, now-86_400_000, now)
	if err != nil {
		return nil, err
	}
	dayRate := dayCost / 1440
	if dayRate == 0 {
		return nil, nil
	}

	ratio := recentRate / dayRate
	if ratio < cfg.Multiplier {
		return nil, nil
	}

	return &Alert{
		Detector:   "costVelocity",
		Severity:   SeverityWarn,
		SessionKey: rec.SessionKey,
		Action:     cfg.Action,
		Message: fmt.Sprintf("Cost velocity anomaly: $%.4f/min (%.1f× the 24h avg of $%.4f/min)",
			recentRate, ratio, dayRate),
		Data: map[string]any{
			"recentRate":    recentRate,
			"dayRate":       dayRate,
			"ratio":         ratio,
			"windowMinutes": cfg.WindowMinutes,
		},
	}, nil
}

// detectHeartbeatDrift fires when a cron job's latest run costs the
// configured percentage more than the mean of its older runs. Applies
// only to cron records with a job id; fewer than two runs or a zero mean
// skip the check.
func (e *Engine) detectHeartbeatDrift(ctx context.Context, rec *usage.Record, cfg *HeartbeatDriftConfig) (*Alert, error) {
	if rec.Source != usage.SourceCron || rec.JobID == "" {
		return nil, nil
	}

	runs, err := e.reader.CronRunHistory(ctx, rec.JobID, cfg.LookbackRuns)
	if err != nil {
		return nil, err
	}
	if len(runs) < 2 {
		return nil, nil
	}

	latest := runs[0].TotalCost
	var olderSum float64
	for _, r := range runs[1:] {
		olderSum += r.TotalCost
	}
	meanOlder := olderSum / float64(len(runs)-1)
	if meanOlder == 0 {
		return nil, nil
	}

	ratio := latest / meanOlder
	if ratio < 1+cfg.DriftPercent/100 {
		return nil, nil
	}

	return &Alert{
		Detector:   "heartbeatDrift",
		Severity:   SeverityWarn,
		SessionKey: rec.SessionKey,
		Action:     cfg.Action,
		Message: fmt.Sprintf("Heartbeat drift: latest run $%.4f is %.0f%% of avg $%.4f (%d prior runs)",
			latest, ratio*100, meanOlder, len(runs)-1),
		Data: map[string]any{
			"latest":   latest,
			"avgPrev":  meanOlder,
			"ratio":    ratio,
			"lookback": cfg.LookbackRuns,
		},
	}, nil
}
