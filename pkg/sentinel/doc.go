// Package sentinel runs streaming anomaly detectors over the usage ledger.
//
// # Detectors
//
// Four independent detectors evaluate each freshly written record against
// a bounded window of ledger history:
//
//   - loop: the same (tool, params-hash) pair repeating within the last N
//     tool calls of a session — a runaway agent loop.
//   - contextSpike: the session's context window growing by both a
//     relative percentage and an absolute token floor between turns.
//   - costVelocity: short-window cost-per-minute spiking relative to the
//     trailing 24-hour rate.
//   - heartbeatDrift: a cron job's latest run costing a configured
//     percentage more than the mean of its prior runs.
//
// Each detector runs only when its config section is present, and each
// carries skip conditions (cold starts, missing fields, zero baselines)
// so it never divides by zero or alerts without a meaningful comparison.
// One event can raise up to four alerts.
//
// # Deduplication
//
// A (detector, sessionKey) pair that fired within the last five minutes
// is suppressed. Suppression does not refresh the window; only a
// genuinely delivered firing updates the last-fired timestamp. The dedup
// table is explicit engine state, not a package global, so independent
// engines do not interfere.
package sentinel
