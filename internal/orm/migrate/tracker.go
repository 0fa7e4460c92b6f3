// Package migrate applies generated DDL to a database and keeps a history of
// the runs
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run is one recorded application of a set of DDL statements
type Run struct {
	ID             uuid.UUID
	Name           string
	StatementCount int
	AppliedAt      time.Time
}

// Tracker manages the run history table
type Tracker struct {
	db *sql.DB
}

// NewTracker creates a new run tracker
func NewTracker(db *sql.DB) *Tracker {
	return &Tracker{db: db}
}

// Initialize ensures the retarget_schema_runs table exists
func (t *Tracker) Initialize(ctx context.Context) error {
	query := `
CREATE TABLE IF NOT EXISTS retarget_schema_runs (
	id UUID PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	statement_count INTEGER NOT NULL,
	applied_at TIMESTAMP NOT NULL
)`
	if _, err := t.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to initialize runs table: %w", err)
	}
	return nil
}

// Record stores a run in a transaction
func (t *Tracker) Record(ctx context.Context, tx *sql.Tx, run *Run) error {
	query := `
INSERT INTO retarget_schema_runs (id, name, statement_count, applied_at)
VALUES ($1, $2, $3, $4)`
	_, err := tx.ExecContext(ctx, query, run.ID.String(), run.Name, run.StatementCount, run.AppliedAt)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// List returns all recorded runs, oldest first
func (t *Tracker) List(ctx context.Context) ([]*Run, error) {
	query := `
SELECT id, name, statement_count, applied_at
FROM retarget_schema_runs
ORDER BY applied_at ASC`
	rows, err := t.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		var id string
		if err := rows.Scan(&id, &run.Name, &run.StatementCount, &run.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("run %q has an invalid id: %w", id, err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}
