// Package usage defines the core data model shared by the CostGuard engine:
// the immutable UsageRecord written to the ledger, the invocation Source
// taxonomy, and the aggregate summary shapes returned by ledger queries.
//
// Records are owned exclusively by the ledger once written; every other
// component reads them through query results and never mutates them.
package usage
