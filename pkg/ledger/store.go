package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/blueif16/openclaw-costguard/pkg/usage"
)

// Schema contains the SQL statements that create the usage table and its
// indexes. The triple index backs the loop detector's recent-tool-call scan.
const Schema = `
CREATE TABLE IF NOT EXISTS usage (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp INTEGER NOT NULL,
    session_key TEXT NOT NULL,
    agent_id TEXT NOT NULL,
    source TEXT NOT NULL,
    job_id TEXT,
    model TEXT NOT NULL,
    provider TEXT NOT NULL,
    input_tokens INTEGER NOT NULL,
    output_tokens INTEGER NOT NULL,
    cache_read_tokens INTEGER DEFAULT 0,
    cache_write_tokens INTEGER DEFAULT 0,
    cost_usd REAL NOT NULL,
    duration_ms INTEGER DEFAULT 0,
    context_tokens INTEGER DEFAULT 0,
    tool_name TEXT DEFAULT '',
    tool_params_hash TEXT DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_usage_timestamp ON usage(timestamp);
CREATE INDEX IF NOT EXISTS idx_usage_source ON usage(source);
CREATE INDEX IF NOT EXISTS idx_usage_model ON usage(model);
CREATE INDEX IF NOT EXISTS idx_usage_session ON usage(session_key);
CREATE INDEX IF NOT EXISTS idx_usage_job ON usage(job_id);
CREATE INDEX IF NOT EXISTS idx_usage_session_tool ON usage(session_key, tool_name, tool_params_hash);
`

// Config configures the ledger store.
type Config struct {
	// Path is the SQLite database file path.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds.
	BusyTimeout time.Duration
}

// Store is the SQLite-backed usage ledger. It is safe for concurrent use:
// a single in-process write lock serializes appends while readers proceed
// under WAL mode.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger

	// mu serializes the single writer path.
	mu        sync.Mutex
	closeOnce sync.Once

	insertStmt *sql.Stmt
}

// Open opens (creating if necessary) the ledger database at path with
// default settings.
func Open(path string) (*Store, error) {
	return OpenWithConfig(Config{Path: path})
}

// OpenWithConfig opens the ledger database with custom configuration.
func OpenWithConfig(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("ledger path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, newStorageError("open", err)
	}

	// SQLite supports a single writer; readers share the WAL snapshot.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(0)

	s := &Store{
		db:     db,
		path:   cfg.Path,
		logger: slog.Default().With("component", "ledger"),
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, newStorageError("init_schema", err)
	}

	s.insertStmt, err = db.Prepare(`
		INSERT INTO usage (timestamp, session_key, agent_id, source, job_id, model, provider,
			input_tokens, output_tokens, cache_read_tokens, cache_write_tokens,
			cost_usd, duration_ms, context_tokens, tool_name, tool_params_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		db.Close()
		return nil, newStorageError("prepare_insert", err)
	}

	s.logger.Info("ledger opened", "path", cfg.Path, "busy_timeout", cfg.BusyTimeout)
	return s, nil
}

// Close releases the database handle. Safe to call more than once.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.insertStmt != nil {
			s.insertStmt.Close()
		}
		err = s.db.Close()
	})
	return err
}

// Append inserts one record. It fails with a *StorageError if the medium
// is unavailable; the caller does not retry.
func (s *Store) Append(ctx context.Context, rec *usage.Record) error {
	if rec == nil {
		return newStorageError("append", fmt.Errorf("record cannot be nil"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var jobID any
	if rec.JobID != "" {
		jobID = rec.JobID
	}

	_, err := s.insertStmt.ExecContext(ctx,
		rec.Timestamp, rec.SessionKey, rec.AgentID, string(rec.Source), jobID,
		rec.Model, rec.Provider,
		rec.InputTokens, rec.OutputTokens, rec.CacheReadTokens, rec.CacheWriteTokens,
		rec.CostUSD, rec.DurationMs, rec.ContextTokens, rec.ToolName, rec.ToolParamsHash,
	)
	if err != nil {
		return newStorageError("append", err)
	}
	return nil
}
