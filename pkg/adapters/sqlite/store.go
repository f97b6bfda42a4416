// Package sqlite persists session snapshots in a local SQLite file,
// for durable single-host deployments that need no external services.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aretw0/signalbox/pkg/domain"
	_ "github.com/mattn/go-sqlite3"
)

const sessionsTable = `CREATE TABLE IF NOT EXISTS 'sessions' (
session_id   TEXT PRIMARY KEY,
machine      TEXT NOT NULL DEFAULT '',
state        TEXT NOT NULL DEFAULT '',
armed        BOOLEAN NOT NULL DEFAULT 0 CHECK (armed IN (0, 1)),
remaining_ms INTEGER NOT NULL DEFAULT 0,
updated_at   DATETIME
)`

// Store implements ports.SnapshotStore using SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at path and ensures the schema.
// Use ":memory:" for an ephemeral store.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db %q: %w", path, err)
	}
	return NewFromDB(db)
}

// NewFromDB wraps an existing database handle and ensures the schema.
func NewFromDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(sessionsTable); err != nil {
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}
	return &Store{db: db}, nil
}

// Save upserts the snapshot.
func (s *Store) Save(ctx context.Context, snapshot domain.Snapshot) error {
	remaining, armed := snapshot.Countdown.Remaining()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, machine, state, armed, remaining_ms, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   machine = excluded.machine,
		   state = excluded.state,
		   armed = excluded.armed,
		   remaining_ms = excluded.remaining_ms,
		   updated_at = excluded.updated_at`,
		snapshot.SessionID, snapshot.Machine, string(snapshot.State),
		armed, remaining.Milliseconds(), snapshot.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", snapshot.SessionID, err)
	}
	return nil
}

// Load retrieves the snapshot for a session ID.
func (s *Store) Load(ctx context.Context, sessionID string) (domain.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT machine, state, armed, remaining_ms, updated_at
		 FROM sessions WHERE session_id = ?`, sessionID)

	var (
		machine     string
		state       string
		armed       bool
		remainingMS int64
		updatedAt   time.Time
	)
	if err := row.Scan(&machine, &state, &armed, &remainingMS, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return domain.Snapshot{}, domain.ErrSessionNotFound
		}
		return domain.Snapshot{}, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	snapshot := domain.Snapshot{
		SessionID: sessionID,
		Machine:   machine,
		State:     domain.State(state),
		UpdatedAt: updatedAt,
	}
	if armed {
		snapshot.Countdown = domain.ArmedCountdown(time.Duration(remainingMS) * time.Millisecond)
	}
	return snapshot, nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

// List returns the stored session IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_id FROM sessions ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		sessions = append(sessions, id)
	}
	return sessions, rows.Err()
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
