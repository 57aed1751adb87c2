// Package config loads and validates CostGuard configuration.
//
// Configuration is a single YAML document holding the budget limits,
// sentinel detector thresholds, pricing refresh settings, and logging
// options. Loading applies defaults, then optional OPENCLAW_* environment
// overrides, then validation. The state home directory (ledger file and
// price cache) comes from OPENCLAW_HOME, falling back to ~/.openclaw.
//
// A file watcher built on fsnotify supports hot reload of the budget and
// sentinel sections while the pipeline runs.
package config
