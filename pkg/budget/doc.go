// Package budget classifies current spend against configured limits.
//
// # Scopes
//
// Limits can be overridden per scope: "cron:<jobId>", "agent:<agentId>",
// or the wildcards "cron:*" and "agent:*". Resolution tries exact keys
// before wildcards and falls back to the global config; the first match
// wins and its override is merged onto the global limits, with absent
// fields inheriting the global value. A miss is not an error — it simply
// means global limits apply.
//
// # Classification
//
// Spend is evaluated per period strictly in the order daily, weekly,
// monthly, returning on the first period that is not ok. Spend at exactly
// the limit classifies as exceeded. A throttle level sits between warning
// and exceeded and names a cheaper fallback model instead of blocking.
package budget
