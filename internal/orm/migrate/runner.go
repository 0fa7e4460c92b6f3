package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Runner executes DDL statements with transaction support
type Runner struct {
	db      *sql.DB
	tracker *Tracker
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Runner
type Option func(*Runner)

// WithLogger sets the runner's logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a new runner
func NewRunner(db *sql.DB, opts ...Option) *Runner {
	r := &Runner{
		db:      db,
		tracker: NewTracker(db),
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Initialize sets up the run tracking table
func (r *Runner) Initialize(ctx context.Context) error {
	return r.tracker.Initialize(ctx)
}

// Runs returns the recorded run history
func (r *Runner) Runs(ctx context.Context) ([]*Run, error) {
	return r.tracker.List(ctx)
}

// Apply executes statements in a single transaction and records the run.
// Nothing is applied if any statement fails.
func (r *Runner) Apply(ctx context.Context, name string, statements []string) (*Run, error) {
	if len(statements) == 0 {
		return nil, fmt.Errorf("run %s has no statements", name)
	}

	start := r.now()
	run := &Run{
		ID:             uuid.New(),
		Name:           name,
		StatementCount: len(statements),
		AppliedAt:      start.UTC(),
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.logger.Warn("failed to rollback transaction", zap.Error(err))
		}
	}()

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("statement %d of %s failed: %w", i+1, name, err)
		}
	}

	if err := r.tracker.Record(ctx, tx, run); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Info("applied schema run",
		zap.String("id", run.ID.String()),
		zap.String("name", name),
		zap.Int("statements", len(statements)),
		zap.Duration("duration", time.Since(start)),
	)
	return run, nil
}
