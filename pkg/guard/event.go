package guard

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// UsageEvent is one model invocation as reported by the agent runtime.
// All fields except SessionKey and Model are optional; a zero Timestamp
// is stamped with the current time at processing.
type UsageEvent struct {
	// Timestamp is the invocation time in milliseconds since the epoch.
	Timestamp int64 `json:"timestamp,omitempty"`

	// SessionKey is the opaque colon-delimited session identifier.
	SessionKey string `json:"sessionKey"`

	// Model is the model name as reported by the runtime.
	Model string `json:"model"`

	// Provider is the upstream provider name, if the runtime knows it.
	Provider string `json:"provider,omitempty"`

	InputTokens      int64 `json:"inputTokens,omitempty"`
	OutputTokens     int64 `json:"outputTokens,omitempty"`
	CacheReadTokens  int64 `json:"cacheReadTokens,omitempty"`
	CacheWriteTokens int64 `json:"cacheWriteTokens,omitempty"`

	// CostUSD is the runtime-reported cost. When positive it is trusted
	// as-is and the price table is not consulted.
	CostUSD float64 `json:"costUsd,omitempty"`

	// DurationMs is the wall-clock duration of the call.
	DurationMs int64 `json:"durationMs,omitempty"`

	// ContextTokens is the context window size at this turn, 0 if unknown.
	ContextTokens int64 `json:"contextTokens,omitempty"`

	// ToolName is the tool invoked this turn, empty if none.
	ToolName string `json:"toolName,omitempty"`

	// ToolParams is the serialized tool parameter payload. Only its
	// digest is retained.
	ToolParams string `json:"toolParams,omitempty"`
}

// Validate rejects events the pipeline cannot attribute or price.
func (ev *UsageEvent) Validate() error {
	if ev.SessionKey == "" {
		return fmt.Errorf("usage event missing session key")
	}
	if ev.Model == "" {
		return fmt.Errorf("usage event missing model")
	}
	return nil
}

// hashHexLen is the retained prefix of the parameter digest. Sixteen hex
// characters are plenty for equality grouping inside one session window.
const hashHexLen = 16

// hashToolParams digests a tool parameter payload for loop detection.
// The raw payload is never stored.
func hashToolParams(params string) string {
	if params == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(params))
	return hex.EncodeToString(sum[:])[:hashHexLen]
}
