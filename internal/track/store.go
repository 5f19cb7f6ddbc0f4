// Package track persists which sessions have already been synced, so
// repeated bulk runs only pick up new work.
package track

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS synced_sessions (
	session_id TEXT PRIMARY KEY,
	synced_at  TEXT NOT NULL
);
`

// Store records synced session IDs in a local SQLite database. A store
// that cannot reach disk degrades to an in-memory set so a broken
// tracking file never blocks a sync run.
type Store struct {
	db  *sql.DB
	mem map[string]struct{} // fallback when db is nil
}

// DefaultPath returns the tracking database location under the user's
// data directory.
func DefaultPath() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "sessync", "synced.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "synced.db")
	}
	return filepath.Join(home, ".local", "share", "sessync", "synced.db")
}

// Open opens or creates the tracking database at path. It never fails:
// a corrupt file is removed and recreated, and if even that fails the
// store runs memory-only for the lifetime of the process.
func Open(path string) *Store {
	if db, err := openDB(path); err == nil {
		return &Store{db: db}
	}

	// Corrupt or unreadable tracking file. Losing it only means some
	// sessions may be re-synced, which the remote store deduplicates.
	_ = os.Remove(path)
	if db, err := openDB(path); err == nil {
		return &Store{db: db}
	}

	log.Printf("track: cannot open %s, tracking in memory only", path)
	return &Store{mem: make(map[string]struct{})}
}

func openDB(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating tracking dir: %w", err)
	}

	dsn := path + "?_pragma=journal_mode(wal)&_pragma=synchronous(normal)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening tracking db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing tracking schema: %w", err)
	}

	return db, nil
}

// Load returns the set of session IDs recorded as synced.
func (s *Store) Load() (map[string]struct{}, error) {
	if s.db == nil {
		out := make(map[string]struct{}, len(s.mem))
		for id := range s.mem {
			out[id] = struct{}{}
		}
		return out, nil
	}

	rows, err := s.db.Query(`SELECT session_id FROM synced_sessions`)
	if err != nil {
		return nil, fmt.Errorf("loading synced sessions: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// Add records the given session IDs as synced.
func (s *Store) Add(ids ...string) error {
	if s.db == nil {
		for _, id := range ids {
			s.mem[id] = struct{}{}
		}
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, id := range ids {
		if _, err := tx.Exec(
			`INSERT INTO synced_sessions (session_id, synced_at) VALUES (?, ?)
			 ON CONFLICT(session_id) DO UPDATE SET synced_at = excluded.synced_at`,
			id, now,
		); err != nil {
			return fmt.Errorf("recording session %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// Clear forgets every recorded session.
func (s *Store) Clear() error {
	if s.db == nil {
		s.mem = make(map[string]struct{})
		return nil
	}
	_, err := s.db.Exec(`DELETE FROM synced_sessions`)
	return err
}

// LastUpdated reports the most recent sync time, or zero when nothing
// has been recorded.
func (s *Store) LastUpdated() time.Time {
	if s.db == nil {
		return time.Time{}
	}

	var raw sql.NullString
	err := s.db.QueryRow(`SELECT MAX(synced_at) FROM synced_sessions`).Scan(&raw)
	if err != nil || !raw.Valid {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, raw.String)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// Count reports how many sessions are recorded as synced.
func (s *Store) Count() int {
	if s.db == nil {
		return len(s.mem)
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM synced_sessions`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
