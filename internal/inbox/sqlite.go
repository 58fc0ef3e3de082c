package inbox

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLite is the single-node ledger. It survives process restart, which is
// all the dedup contract needs when exactly one instance serves the fleet;
// it cannot arbitrate between instances.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite inbox path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite inbox: %w", err)
	}
	// One connection serializes writers; combined with busy_timeout no
	// Record call ever surfaces SQLITE_BUSY to a caller.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite inbox: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS inbox_entries (
			event_id   TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			backend_id TEXT NOT NULL,
			match_id   TEXT,
			payload    BLOB,
			arrived_at INTEGER NOT NULL
		)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure inbox table: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Record(ctx context.Context, e Entry) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO inbox_entries (event_id, event_type, backend_id, match_id, payload, arrived_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.EventID, e.EventType, e.BackendID, e.MatchID, e.Payload, e.ArrivedAt.UTC().UnixMilli())
	if err != nil {
		return false, fmt.Errorf("record event %s: %w", e.EventID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record event %s: %w", e.EventID, err)
	}
	return n == 1, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
