// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records the state of every fetch batch in SQLite so that an
// interrupted fetch can be resumed: finished batches are skipped and failed
// or interrupted ones are fetched again.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// FileName is the ledger database name inside the data directory.
const FileName = "batches.db"

// State is the lifecycle state of a batch.
type State string

const (
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Batch is one ledger row.
type Batch struct {
	ID        string    `json:"id" yaml:"id"`
	Size      int       `json:"size" yaml:"size"`
	State     State     `json:"state" yaml:"state"`
	Records   int       `json:"records" yaml:"records"`
	Attempts  int       `json:"attempts" yaml:"attempts"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Ledger is a SQLite-backed batch ledger.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger database at path.
func Open(path string) (*Ledger, error) {
	if path == "" {
		return nil, fmt.Errorf("ledger path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	l := &Ledger{db: db}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	_, err := l.db.Exec(`CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		size INTEGER NOT NULL,
		state TEXT NOT NULL,
		records INTEGER NOT NULL DEFAULT 0,
		attempts INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL
	)`)
	return err
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Start marks a batch as running and counts the attempt.
func (l *Ledger) Start(ctx context.Context, id string, size int) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO batches (id, size, state, attempts, updated_at) VALUES (?, ?, ?, 1, ?)
		 ON CONFLICT(id) DO UPDATE SET
			size=excluded.size, state=excluded.state, error='',
			attempts=batches.attempts+1, updated_at=excluded.updated_at`,
		id, size, StateRunning, now(),
	)
	if err != nil {
		return fmt.Errorf("starting batch %s: %w", id, err)
	}
	return nil
}

// Complete marks a batch as done with the number of records it produced.
func (l *Ledger) Complete(ctx context.Context, id string, records int) error {
	return l.finish(ctx, id, StateDone, records, "")
}

// Fail marks a batch as failed with cause.
func (l *Ledger) Fail(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return l.finish(ctx, id, StateFailed, 0, msg)
}

func (l *Ledger) finish(ctx context.Context, id string, state State, records int, msg string) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE batches SET state = ?, records = ?, error = ?, updated_at = ? WHERE id = ?`,
		state, records, msg, now(), id,
	)
	if err != nil {
		return fmt.Errorf("updating batch %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("batch %s was never started", id)
	}
	return nil
}

// Status returns the batch with id. The boolean is false when the ledger
// has no row for it.
func (l *Ledger) Status(ctx context.Context, id string) (Batch, bool, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT id, size, state, records, attempts, error, updated_at FROM batches WHERE id = ?`, id)
	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Batch{}, false, nil
	}
	if err != nil {
		return Batch{}, false, fmt.Errorf("reading batch %s: %w", id, err)
	}
	return b, true, nil
}

// List returns every batch ordered by id.
func (l *Ledger) List(ctx context.Context) ([]Batch, error) {
	return l.query(ctx, `SELECT id, size, state, records, attempts, error, updated_at FROM batches ORDER BY id`)
}

// Incomplete returns batches that are not done, ordered by id. A batch
// left running by an interrupted process counts as incomplete.
func (l *Ledger) Incomplete(ctx context.Context) ([]Batch, error) {
	return l.query(ctx,
		`SELECT id, size, state, records, attempts, error, updated_at FROM batches WHERE state != ? ORDER BY id`,
		StateDone)
}

func (l *Ledger) query(ctx context.Context, q string, args ...any) ([]Batch, error) {
	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying batches: %w", err)
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning batch: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(s scanner) (Batch, error) {
	var b Batch
	var state, updated string
	if err := s.Scan(&b.ID, &b.Size, &state, &b.Records, &b.Attempts, &b.Error, &updated); err != nil {
		return Batch{}, err
	}
	b.State = State(state)
	if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		b.UpdatedAt = t
	}
	return b, nil
}
