// Package store persists dump snapshots to SQLite so operators can
// inspect branch history after the fact.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration

	"github.com/branchtrace/lbrd/internal/engine"
)

// Store is an append-only history of dump snapshots.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates a snapshot store at the given path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot store: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			ts      TEXT NOT NULL,
			pid     INTEGER NOT NULL,
			filter  INTEGER NOT NULL,
			tos     INTEGER NOT NULL,
			cpu     INTEGER NOT NULL,
			entries TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_snapshots_pid ON snapshots(pid);
	`)
	if err != nil {
		return fmt.Errorf("creating snapshot tables: %w", err)
	}
	return nil
}

// Append records one snapshot.
func (s *Store) Append(snap *engine.Snapshot) error {
	entries, err := json.Marshal(snap.Entries)
	if err != nil {
		return fmt.Errorf("marshaling entries: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`
		INSERT INTO snapshots (ts, pid, filter, tos, cpu, entries)
		VALUES (?, ?, ?, ?, ?, ?)
	`, snap.Time.Format(time.RFC3339Nano), snap.Pid,
		int64(snap.Filter), int64(snap.Tos), snap.CPU, string(entries))
	if err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}
	return nil
}

// ListByPid returns up to limit snapshots for pid, newest first.
func (s *Store) ListByPid(pid uint32, limit int) ([]engine.Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT ts, pid, filter, tos, cpu, entries
		FROM snapshots WHERE pid = ?
		ORDER BY id DESC LIMIT ?
	`, pid, limit)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []engine.Snapshot
	for rows.Next() {
		var (
			ts          string
			snap        engine.Snapshot
			filter, tos int64
			entries     string
		)
		if err := rows.Scan(&ts, &snap.Pid, &filter, &tos, &snap.CPU, &entries); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snap.Filter = uint64(filter)
		snap.Tos = uint64(tos)
		if snap.Time, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parsing snapshot timestamp: %w", err)
		}
		if err := json.Unmarshal([]byte(entries), &snap.Entries); err != nil {
			return nil, fmt.Errorf("unmarshaling entries: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Count returns the total number of stored snapshots.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM snapshots`).Scan(&n)
	return n, err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
