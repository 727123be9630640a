// Package store archives run reports in a SQLite database so anomalies can
// be compared across runs.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store is the run archive.
type Store struct {
	db *sql.DB
}

// New opens or creates the archive at path.
func New(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One connection keeps the per-connection pragmas in effect.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %s: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id           TEXT PRIMARY KEY,
			target_url   TEXT NOT NULL,
			started_at   TEXT NOT NULL,
			finished_at  TEXT NOT NULL,
			passed       BOOLEAN NOT NULL,
			agent_count  INTEGER NOT NULL,
			issue_count  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
		`CREATE TABLE IF NOT EXISTS agent_results (
			run_id       TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position     INTEGER NOT NULL,
			name         TEXT NOT NULL,
			role         TEXT NOT NULL,
			client_index INTEGER NOT NULL DEFAULT 0,
			success      BOOLEAN NOT NULL,
			reason       TEXT,
			rounds       TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS issues (
			run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq         INTEGER NOT NULL,
			agent       TEXT NOT NULL,
			kind        TEXT NOT NULL,
			message     TEXT NOT NULL,
			ts          TEXT NOT NULL,
			screenshot  TEXT,
			url         TEXT,
			title       TEXT,
			PRIMARY KEY (run_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_issues_kind ON issues(kind)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}
