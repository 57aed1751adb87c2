// Package pricing resolves raw model names to per-token prices and
// estimates invocation cost.
//
// # Price table
//
// The table is fetched from a LiteLLM-shaped JSON document (model key →
// per-single-token USD costs) over HTTPS, converted to per-million rates,
// and replaced wholesale on every refresh. The raw payload is persisted
// to a local cache file; when the remote fetch fails, the cache is used
// as long as it is under 24 hours old. If neither source is available the
// table stays as it was (empty on first run) and estimates degrade to
// zero cost — pricing unavailability never blocks ingestion.
//
// # Matching
//
// Model names rarely match table keys exactly. Lookup tries an explicit
// ordered list of strategies: exact key match, bare-name suffix match
// against provider-qualified keys, then bigram Dice-coefficient fuzzy
// matching accepted at a 0.6 score floor. Per-model match results
// (including misses) are memoized until the table is next replaced.
package pricing
