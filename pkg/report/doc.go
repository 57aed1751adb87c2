// Package report renders plain-text cost reports from ledger aggregates:
// period summaries, per-session turn histories, cron run comparisons, and
// top-spender rankings. Output is meant for chat surfaces and terminals,
// so formatting stays line-oriented with no markup.
package report
