package usage

// Source classifies why a model invocation happened, derived from the
// session key by the attribution resolver.
type Source string

const (
	// SourceUser is an interactive user session.
	SourceUser Source = "user"

	// SourceCron is a scheduled job run; JobID is meaningful only here.
	SourceCron Source = "cron"

	// SourceSubagent is a spawned subagent session.
	SourceSubagent Source = "subagent"

	// SourceACP is an agent-control-protocol session.
	SourceACP Source = "acp"

	// SourceHeartbeat is a background heartbeat session. Detection is
	// best-effort: there is no authoritative heartbeat flag upstream.
	SourceHeartbeat Source = "heartbeat"
)

// Record is one ledger row per model invocation. Immutable once written;
// retention and rotation are external concerns.
type Record struct {
	// Timestamp is the invocation time in milliseconds since the epoch.
	Timestamp int64

	// SessionKey is the opaque colon-delimited session identifier.
	SessionKey string

	// AgentID identifies the agent that made the call.
	AgentID string

	// Source is the attributed invocation source.
	Source Source

	// JobID is the cron job identifier; empty for non-cron sources.
	JobID string

	// Model is the raw model name as reported by the runtime.
	Model string

	// Provider is the upstream provider name.
	Provider string

	InputTokens      int64
	OutputTokens     int64
	CacheReadTokens  int64
	CacheWriteTokens int64

	// CostUSD is the estimated (or runtime-reported) cost of the call.
	CostUSD float64

	// DurationMs is the wall-clock duration of the call.
	DurationMs int64

	// ContextTokens is the context window size at this turn, 0 if unknown.
	ContextTokens int64

	// ToolName is the tool invoked this turn, empty if none.
	ToolName string

	// ToolParamsHash is a short digest of the tool's parameters, used only
	// for equality comparison. Empty when no tool was invoked.
	ToolParamsHash string
}

// Summary is the aggregate shape returned by time-scoped ledger queries.
type Summary struct {
	TotalCost         float64
	TotalInputTokens  int64
	TotalOutputTokens int64
	InvocationCount   int64
}

// ModelSummary is a per-model aggregate.
type ModelSummary struct {
	Model string
	Summary
}

// SourceSummary is a per-source aggregate. JobID is set for cron rows.
type SourceSummary struct {
	Source Source
	JobID  string
	Summary
}

// SessionSummary is a per-session aggregate.
type SessionSummary struct {
	SessionKey string
	Summary
}

// Turn is one row of a session's ordered history.
type Turn struct {
	Timestamp       int64
	Model           string
	InputTokens     int64
	OutputTokens    int64
	CacheReadTokens int64
	CostUSD         float64
	DurationMs      int64
	ContextTokens   int64
	ToolName        string
	ToolParamsHash  string
}

// CronRun is a per-session aggregate for one run of a cron job, grouped by
// session key and ordered by first-seen timestamp descending.
type CronRun struct {
	SessionKey  string
	RunCount    int64
	TotalCost   float64
	TotalTokens int64
	FirstTs     int64
	LastTs      int64

	// MinContextTokens and MaxContextTokens bound the context sizes
	// observed during the run, 0 when unreported.
	MinContextTokens int64
	MaxContextTokens int64
}

// DailyTotal is one calendar day's spend and token volume.
type DailyTotal struct {
	Date        string
	TotalCost   float64
	TotalTokens int64
}

// ToolCall is one tool invocation drawn from a session's recent history.
type ToolCall struct {
	Timestamp      int64
	ToolName       string
	ToolParamsHash string
}
