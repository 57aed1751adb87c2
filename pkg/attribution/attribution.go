package attribution

import (
	"strings"

	"github.com/blueif16/openclaw-costguard/pkg/usage"
)

// Attribution is the typed result of resolving a session key.
type Attribution struct {
	// Source is the classified invocation source.
	Source usage.Source

	// JobID is the cron job identifier, empty unless Source is cron.
	JobID string
}

// agentPrefix is the fixed leading marker of runtime-minted session keys.
const agentPrefix = "agent:"

// Resolve classifies a session key. Precedence, first match wins:
// heartbeat, cron, subagent, acp, then user as the fallback.
//
// Heartbeat detection is best-effort: heartbeat sessions currently reuse
// the main session key upstream and carry no dedicated flag, so the
// ":heartbeat" marker may simply never appear in practice.
func Resolve(sessionKey string) Attribution {
	if strings.Contains(sessionKey, ":heartbeat") {
		return Attribution{Source: usage.SourceHeartbeat}
	}

	if jobID, ok := cronJobID(sessionKey); ok {
		return Attribution{Source: usage.SourceCron, JobID: jobID}
	}

	if strings.Contains(sessionKey, ":subagent:") {
		return Attribution{Source: usage.SourceSubagent}
	}

	if strings.Contains(sessionKey, ":acp:") {
		return Attribution{Source: usage.SourceACP}
	}

	return Attribution{Source: usage.SourceUser}
}

// cronJobID extracts the job identifier from a ":cron:<jobId>" marker,
// with or without a trailing ":run:<runId>" suffix. The job identifier is
// the first colon-delimited segment after the marker; an empty segment
// (e.g. "agent:main:cron:") does not count as a match.
func cronJobID(sessionKey string) (string, bool) {
	const marker = ":cron:"
	idx := strings.Index(sessionKey, marker)
	if idx < 0 {
		return "", false
	}
	rest := sessionKey[idx+len(marker):]
	if end := strings.IndexByte(rest, ':'); end >= 0 {
		rest = rest[:end]
	}
	if rest == "" {
		return "", false
	}
	return rest, true
}

// AgentID extracts the agent identifier immediately following the leading
// "agent:" prefix, or empty if the key carries no such prefix. Used by
// budget scope resolution.
func AgentID(sessionKey string) string {
	if !strings.HasPrefix(sessionKey, agentPrefix) {
		return ""
	}
	rest := sessionKey[len(agentPrefix):]
	if end := strings.IndexByte(rest, ':'); end >= 0 {
		rest = rest[:end]
	}
	return rest
}
