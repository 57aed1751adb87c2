package pricing

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// acceptThreshold is the minimum Dice score for a fuzzy match to count.
const acceptThreshold = 0.6

// RefreshSource names where a refresh got its table from.
type RefreshSource string

const (
	// SourceRemote means the table came from the live HTTPS fetch.
	SourceRemote RefreshSource = "remote"

	// SourceLocalCache means the remote fetch failed and the table came
	// from a fresh-enough on-disk cache.
	SourceLocalCache RefreshSource = "local-cache"

	// SourceNone means neither source was usable; the table is unchanged.
	SourceNone RefreshSource = "none"
)

// RefreshResult describes one refresh attempt.
type RefreshResult struct {
	Count  int
	Source RefreshSource
}

// Estimate is a resolved cost for one invocation. MatchedModel is empty
// when no price-table candidate cleared the acceptance threshold, in
// which case Cost is 0.
type Estimate struct {
	Cost         float64
	MatchedModel string
}

// match is a memoized lookup result. A nil entry pointer records a known
// miss so repeated lookups of unknown models stay cheap.
type match struct {
	key   string
	entry *Entry
}

// Estimator owns the process-wide price table and the per-model match
// memo. Both are explicit state on the struct: construct one Estimator
// per engine and thread it through, so separate instances (tests,
// multi-tenant hosts) do not interfere.
type Estimator struct {
	sourceURL string
	cachePath string
	client    *http.Client
	logger    *slog.Logger

	mu    sync.RWMutex
	table map[string]Entry
	memo  map[string]*match
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithSourceURL overrides the remote price document URL.
func WithSourceURL(url string) Option {
	return func(e *Estimator) { e.sourceURL = url }
}

// WithHTTPClient overrides the HTTP client used for refreshes.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Estimator) { e.client = c }
}

// NewEstimator creates an Estimator with an empty table. cachePath is the
// local price cache file; empty disables disk caching.
func NewEstimator(cachePath string, opts ...Option) *Estimator {
	e := &Estimator{
		sourceURL: DefaultSourceURL,
		cachePath: cachePath,
		client:    &http.Client{Timeout: 15 * time.Second},
		logger:    slog.Default().With("component", "pricing"),
		table:     map[string]Entry{},
		memo:      map[string]*match{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Refresh attempts to replace the price table from the remote source,
// falling back to the local cache when the fetch or parse fails. The
// table is replaced wholesale and the match memo invalidated on success;
// on total failure the table is left as it was. Refresh never returns an
// error: pricing unavailability degrades to zero-cost estimates.
func (e *Estimator) Refresh(ctx context.Context) RefreshResult {
	if payload, err := e.fetchRemote(ctx); err == nil {
		if table, perr := parsePayload(payload); perr == nil && len(table) > 0 {
			e.replaceTable(table)
			e.saveCache(payload)
			return RefreshResult{Count: len(table), Source: SourceRemote}
		}
	} else {
		e.logger.Warn("remote pricing fetch failed, trying local cache", "error", err)
	}

	if payload := e.loadCache(); payload != nil {
		if table, err := parsePayload(payload); err == nil && len(table) > 0 {
			e.replaceTable(table)
			return RefreshResult{Count: len(table), Source: SourceLocalCache}
		}
	}

	return RefreshResult{Count: 0, Source: SourceNone}
}

// replaceTable swaps in a new table and drops the match memo.
func (e *Estimator) replaceTable(table map[string]Entry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.table = table
	e.memo = map[string]*match{}
}

// Loaded reports whether the table holds any entries.
func (e *Estimator) Loaded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.table) > 0
}

// KnownModels returns the table's model keys in no particular order.
func (e *Estimator) KnownModels() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	keys := make([]string, 0, len(e.table))
	for k := range e.table {
		keys = append(keys, k)
	}
	return keys
}

// Estimate resolves a model name to a price entry and computes the cost of
// one invocation. An unknown model yields a zero estimate, never an error.
func (e *Estimator) Estimate(model string, inputTokens, outputTokens, cacheReadTokens, cacheWriteTokens int64) Estimate {
	m := e.lookup(model)
	if m == nil || m.entry == nil {
		return Estimate{}
	}

	p := m.entry
	cost := float64(inputTokens)/1e6*p.InputPerMillion +
		float64(outputTokens)/1e6*p.OutputPerMillion +
		float64(cacheReadTokens)/1e6*p.CacheReadPerMillion +
		float64(cacheWriteTokens)/1e6*p.CacheWritePerMillion

	return Estimate{Cost: cost, MatchedModel: m.key}
}

// matcher is one named resolution strategy. Strategies are tried in
// order; the first hit wins. Keeping them as an explicit list keeps the
// precedence auditable.
type matcher struct {
	name string
	fn   func(table map[string]Entry, model, norm string) (string, bool)
}

var matchers = []matcher{
	{"exact", matchExact},
	{"suffix", matchSuffix},
	{"fuzzy", matchFuzzy},
}

// lookup resolves a model name through the strategy list, memoizing both
// hits and misses until the table is next replaced.
func (e *Estimator) lookup(model string) *match {
	e.mu.RLock()
	if m, ok := e.memo[model]; ok {
		e.mu.RUnlock()
		return m
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if m, ok := e.memo[model]; ok {
		return m
	}

	norm := strings.ToLower(model)
	result := &match{}
	for _, m := range matchers {
		if key, ok := m.fn(e.table, model, norm); ok {
			entry := e.table[key]
			result = &match{key: key, entry: &entry}
			break
		}
	}
	e.memo[model] = result
	return result
}

// matchExact tries the normalized and raw names as literal table keys.
func matchExact(table map[string]Entry, model, norm string) (string, bool) {
	if _, ok := table[norm]; ok {
		return norm, true
	}
	if _, ok := table[model]; ok {
		return model, true
	}
	return "", false
}

// matchSuffix bridges provider-qualified and bare model names. A bare
// input matches a provider-qualified table key with the same trailing
// name ("claude-x" → "anthropic/claude-x"); a provider-qualified input
// matches a bare table key ("foo/gpt-x" → "gpt-x").
func matchSuffix(table map[string]Entry, _ string, norm string) (string, bool) {
	if idx := strings.LastIndexByte(norm, '/'); idx >= 0 {
		bare := norm[idx+1:]
		if _, ok := table[bare]; ok {
			return bare, true
		}
		return "", false
	}
	for key := range table {
		if idx := strings.LastIndexByte(key, '/'); idx >= 0 && key[idx+1:] == norm {
			return key, true
		}
	}
	return "", false
}

// matchFuzzy picks the best Dice-scoring table key, accepted only at or
// above the threshold.
func matchFuzzy(table map[string]Entry, _ string, norm string) (string, bool) {
	bestKey := ""
	bestScore := 0.0
	for key := range table {
		if score := diceCoefficient(norm, key); score > bestScore {
			bestKey, bestScore = key, score
		}
	}
	if bestScore >= acceptThreshold {
		return bestKey, true
	}
	return "", false
}
