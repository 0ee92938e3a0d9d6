// Package audit is an optional SQLite-backed trail of fired expansions.
// It is strictly an observability add-on: the capture and expansion core
// never import it, only a listener fed from the same capture.Signal/
// settings.Expansion choice that internal/expansion already produces.
package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pabueco/typls/internal/ipc"
)

const schema = `
CREATE TABLE IF NOT EXISTS expansions (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp_ns   INTEGER NOT NULL,
	abbr           TEXT NOT NULL,
	expansion_id   TEXT NOT NULL,
	process_path   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_expansions_timestamp ON expansions(timestamp_ns);
CREATE INDEX IF NOT EXISTS idx_expansions_abbr ON expansions(abbr, timestamp_ns);
`

// Entry is one recorded expansion firing.
type Entry struct {
	Timestamp   time.Time
	Abbr        string
	ExpansionID string
	ProcessPath string
}

// Store is the SQLite-backed expansion history trail.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("audit: create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("audit: open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record appends one expansion firing to the trail.
func (s *Store) Record(e Entry) error {
	_, err := s.db.Exec(
		`INSERT INTO expansions (timestamp_ns, abbr, expansion_id, process_path) VALUES (?, ?, ?, ?)`,
		e.Timestamp.UnixNano(), e.Abbr, e.ExpansionID, e.ProcessPath,
	)
	if err != nil {
		return fmt.Errorf("audit: insert expansion: %w", err)
	}
	return nil
}

// Recent returns the most recently recorded entries, newest first, capped
// at limit. It satisfies ipc.HistoryProvider.
func (s *Store) Recent(limit int) ([]ipc.HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(
		`SELECT timestamp_ns, abbr, expansion_id, process_path
		 FROM expansions ORDER BY timestamp_ns DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("audit: query recent: %w", err)
	}
	defer rows.Close()

	var entries []ipc.HistoryEntry
	for rows.Next() {
		var ts int64
		var e ipc.HistoryEntry
		if err := rows.Scan(&ts, &e.Abbr, &e.ExpansionID, &e.ProcessPath); err != nil {
			return nil, fmt.Errorf("audit: scan entry: %w", err)
		}
		e.Timestamp = time.Unix(0, ts).UTC().Format(time.RFC3339Nano)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate entries: %w", err)
	}
	return entries, nil
}
