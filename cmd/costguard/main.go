// CostGuard is a cost attribution and budget enforcement sidecar for
// agent runtimes.
//
// It ingests per-invocation usage events, attributes them to a source
// (interactive, cron, subagent, acp, heartbeat), prices them against a
// live model price table, and persists them to a local SQLite ledger.
// Budgets and anomaly detectors run after every write.
//
// Usage:
//
//	# Ingest usage events as JSON lines on stdin
//	costguard run
//
//	# Ingest with a configuration file and hot reload
//	costguard run --config /path/to/costguard.yaml
//
//	# Period cost report
//	costguard report today
//
//	# Per-session turn history
//	costguard report --session agent:main:main
//
//	# Refresh the model price table
//	costguard pricing refresh
//
//	# Show version information
//	costguard version
package main

func main() {
	Execute()
}
