// Package audit keeps a local record of every remediation outcome.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/miradorstack/mirador-selfheal/internal/utils"
)

// Entry is one remediation outcome.
type Entry struct {
	ID         string
	Time       time.Time
	Action     string
	InstanceID string
	Outcome    string
	Message    string
	CommandID  string
	Notified   bool
}

// Recorder persists remediation outcomes.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Noop discards every entry.
type Noop struct{}

// Record does nothing.
func (Noop) Record(context.Context, Entry) error { return nil }

var migrations = []struct {
	version int
	sql     string
}{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS remediations (
    id          TEXT PRIMARY KEY,
    recorded_at TEXT NOT NULL,
    action      TEXT NOT NULL,
    instance_id TEXT NOT NULL DEFAULT '',
    outcome     TEXT NOT NULL,
    message     TEXT NOT NULL,
    command_id  TEXT NOT NULL DEFAULT '',
    notified    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_remediations_recorded_at ON remediations(recorded_at DESC);
`,
	},
}

// Store is a SQLite-backed Recorder.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the audit database at path and applies pending
// migrations. Pass ":memory:" for an in-memory store.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("audit path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_versions (
        version    INTEGER PRIMARY KEY,
        applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM schema_versions WHERE version = ?`, m.version).Scan(&count); err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if count > 0 {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_versions(version) VALUES(?)`, m.version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}

// Record inserts e, assigning an id and timestamp when missing.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	notified := 0
	if e.Notified {
		notified = 1
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO remediations(id, recorded_at, action, instance_id, outcome, message, command_id, notified)
        VALUES(?,?,?,?,?,?,?,?)`,
		e.ID, e.Time.UTC().Format(time.RFC3339Nano), e.Action, e.InstanceID, e.Outcome, e.Message, e.CommandID, notified,
	)
	if err != nil {
		return fmt.Errorf("record remediation %s: %w", e.ID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, recorded_at, action, instance_id, outcome, message, command_id, notified
        FROM remediations ORDER BY recorded_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			ts       string
			notified int
		)
		if err := rows.Scan(&e.ID, &ts, &e.Action, &e.InstanceID, &e.Outcome, &e.Message, &e.CommandID, &notified); err != nil {
			return nil, err
		}
		e.Time, _ = utils.ParseTimestamp(ts)
		e.Notified = notified != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }
