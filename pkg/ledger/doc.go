// Package ledger provides the durable, indexed store of usage records.
//
// # Overview
//
// The ledger is an append-only SQLite table with one row per model
// invocation. Records are never updated or deleted by this package;
// retention and rotation are external concerns. All reads are aggregate
// or windowed queries scoped by time, session, model, source, or cron job.
//
// # Concurrency
//
// There is a single writer path per process: Append serializes writers
// through an in-process mutex on top of SQLite's own busy timeout, so a
// contended write fails with a StorageError after a bounded wait rather
// than hanging. Readers run concurrently with the writer under WAL mode
// and observe a consistent snapshot per query. No serialization is
// promised across separate query calls.
//
// # Errors
//
// Storage-medium failures (disk full, corruption, lock timeout) surface
// as *StorageError. The caller is expected to log and drop the event;
// the ledger never retries. Queries over empty ranges return zero-valued
// aggregates, not errors.
package ledger
