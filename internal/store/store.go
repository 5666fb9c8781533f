// Package store provides a SQLite-backed history of completed chat exchanges.
// Each exchange records who asked, under which role, and whether the answer
// was the degraded fallback, so users can review their recent questions and
// operators can audit generation health across restarts.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// MaxRecent caps the number of exchanges returned by Recent.
const MaxRecent = 100

// Exchange is one completed question and answer.
type Exchange struct {
	// ID is the database row identifier.
	ID int64 `json:"id"`
	// Username is the authenticated subject that asked.
	Username string `json:"username"`
	// Role is the role partition the answer was grounded in.
	Role string `json:"role"`
	// Query is the user's question.
	Query string `json:"query"`
	// Answer is the text returned to the user.
	Answer string `json:"answer"`
	// Degraded is true when Answer is the generation fallback.
	Degraded bool `json:"degraded"`
	// CreatedAt is when the exchange was persisted.
	CreatedAt time.Time `json:"created_at"`
}

// HistoryStore persists and retrieves chat exchanges keyed by username.
// Implementations must be safe for concurrent use.
type HistoryStore interface {
	// Append persists a single exchange. ID and CreatedAt are assigned by
	// the store.
	Append(ctx context.Context, e Exchange) error
	// Recent returns up to n of the user's exchanges, newest first.
	Recent(ctx context.Context, username string, n int) ([]Exchange, error)
	// Close releases any resources held by the store.
	Close() error
}

// SQLiteStore is a HistoryStore backed by a local SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
	// now is the clock used for CreatedAt.
	now func() time.Time
}

// DefaultDBPath returns the default path for the history database.
// It resolves to ~/.rolerag/history.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".rolerag")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "history.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// A single connection avoids SQLITE_BUSY under concurrent writes and
	// keeps ":memory:" databases on one shared connection.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS exchanges (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    username     TEXT    NOT NULL,
    role         TEXT    NOT NULL,
    query        TEXT    NOT NULL,
    answer       TEXT    NOT NULL,
    degraded     INTEGER NOT NULL CHECK(degraded IN (0, 1)),
    created_at   INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_exchanges_username_created
    ON exchanges (username, created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Append persists a single exchange.
func (s *SQLiteStore) Append(ctx context.Context, e Exchange) error {
	if e.Username == "" {
		return fmt.Errorf("store: append: username is required")
	}
	const q = `INSERT INTO exchanges (username, role, query, answer, degraded, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, e.Username, e.Role, e.Query, e.Answer, e.Degraded, s.now().Unix()); err != nil {
		return fmt.Errorf("store: append: %w", err)
	}
	return nil
}

// Recent returns up to n of the user's exchanges, newest first. n is clamped
// to [1, MaxRecent].
func (s *SQLiteStore) Recent(ctx context.Context, username string, n int) ([]Exchange, error) {
	n = max(1, min(n, MaxRecent))

	const q = `
SELECT id, username, role, query, answer, degraded, created_at
FROM   exchanges
WHERE  username = ?
ORDER  BY created_at DESC, id DESC
LIMIT  ?`

	rows, err := s.db.QueryContext(ctx, q, username, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	out := []Exchange{}
	for rows.Next() {
		var e Exchange
		var ts int64
		if err := rows.Scan(&e.ID, &e.Username, &e.Role, &e.Query, &e.Answer, &e.Degraded, &ts); err != nil {
			return nil, fmt.Errorf("store: recent scan: %w", err)
		}
		e.CreatedAt = time.Unix(ts, 0).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent rows: %w", err)
	}
	return out, nil
}

// Ping checks the database connection. It satisfies the server's readiness
// probe contract.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

// Name returns the readiness label.
func (s *SQLiteStore) Name() string { return "history" }

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
