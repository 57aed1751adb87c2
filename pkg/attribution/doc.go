// Package attribution classifies session keys into invocation sources.
//
// Session keys are opaque colon-delimited strings minted by the agent
// runtime. Observed patterns:
//
//	"agent:main:main"                          → user (interactive)
//	"agent:main:cron:<jobId>"                  → cron (no run id)
//	"agent:main:cron:<jobId>:run:<runId>"      → cron
//	"agent:main:subagent:<uuid>"               → subagent
//	"agent:main:acp:<connId>"                  → acp
//	"agent:main:heartbeat"                     → heartbeat
//
// Resolution is pure and total: no side effects, no errors, and any key
// that matches none of the patterns falls back to the user source.
package attribution
