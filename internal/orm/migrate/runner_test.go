package migrate

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newMockRunner(t *testing.T) (*Runner, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRunner(db, WithLogger(zaptest.NewLogger(t))), mock
}

func TestRunner_Initialize(t *testing.T) {
	runner, mock := newMockRunner(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS retarget_schema_runs")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, runner.Initialize(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunner_Apply(t *testing.T) {
	runner, mock := newMockRunner(t)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	runner.now = func() time.Time { return fixed }

	statements := []string{
		`CREATE TABLE IF NOT EXISTS "customer" ("id" UUID NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS "invoice" ("id" BIGINT NOT NULL)`,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(statements[0])).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(statements[1])).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO retarget_schema_runs")).
		WithArgs(sqlmock.AnyArg(), "initial", 2, fixed).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	run, err := runner.Apply(context.Background(), "initial", statements)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, run.ID)
	assert.Equal(t, "initial", run.Name)
	assert.Equal(t, 2, run.StatementCount)
	assert.Equal(t, fixed, run.AppliedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunner_Apply_RollsBackOnFailure(t *testing.T) {
	runner, mock := newMockRunner(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE a")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE b")).WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	_, err := runner.Apply(context.Background(), "broken", []string{"CREATE TABLE a", "CREATE TABLE b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 2 of broken failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunner_Apply_RecordFailure(t *testing.T) {
	runner, mock := newMockRunner(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE a")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO retarget_schema_runs")).
		WillReturnError(errors.New("no such table"))
	mock.ExpectRollback()

	_, err := runner.Apply(context.Background(), "unrecorded", []string{"CREATE TABLE a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunner_Apply_NoStatements(t *testing.T) {
	runner, mock := newMockRunner(t)

	_, err := runner.Apply(context.Background(), "empty", nil)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunner_Runs(t *testing.T) {
	runner, mock := newMockRunner(t)
	id := uuid.New()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, statement_count, applied_at")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "statement_count", "applied_at"}).
			AddRow(id.String(), "initial", 3, at))

	runs, err := runner.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, &Run{ID: id, Name: "initial", StatementCount: 3, AppliedAt: at}, runs[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunner_SQLite(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	// One connection so every statement sees the same in-memory database
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	runner := NewRunner(db)
	require.NoError(t, runner.Initialize(ctx))

	run, err := runner.Apply(ctx, "initial", []string{
		`CREATE TABLE "customer" ("id" UUID NOT NULL, PRIMARY KEY ("id"))`,
	})
	require.NoError(t, err)

	_, err = runner.Apply(ctx, "broken", []string{
		`CREATE TABLE "invoice" ("id" BIGINT NOT NULL)`,
		`CREATE TABLE "customer" ("id" UUID NOT NULL)`,
	})
	require.Error(t, err)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'invoice'`).Scan(&count))
	assert.Zero(t, count)

	runs, err := runner.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, 1, runs[0].StatementCount)
}
