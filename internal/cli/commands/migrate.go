package commands

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/retarget/internal/orm/migrate"

	_ "github.com/jackc/pgx/v5/stdlib" // driver "pgx"
	_ "github.com/lib/pq"              // driver "postgres"
	_ "github.com/mattn/go-sqlite3"    // driver "sqlite3"
)

// dangerousStatements are refused by migrate; only generated DDL is applied
var dangerousStatements = []string{
	"DROP DATABASE",
	"DROP SCHEMA",
	"TRUNCATE",
	"GRANT",
	"REVOKE",
}

// validateStatements rejects statements containing dangerous operations
func validateStatements(statements []string) error {
	for _, stmt := range statements {
		upper := strings.ToUpper(stmt)
		for _, pattern := range dangerousStatements {
			if strings.Contains(upper, pattern) {
				return fmt.Errorf("statement contains potentially dangerous operation: %s", pattern)
			}
		}
	}
	return nil
}

// categorizeDatabaseError returns a user-friendly error message based on the database error
// In verbose mode, it returns the full error; otherwise, it returns a categorized message
func categorizeDatabaseError(err error, verbose bool) string {
	if verbose {
		return err.Error()
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "syntax"):
		return "SQL syntax error - use --verbose for details"
	case strings.Contains(errStr, "constraint") || strings.Contains(errStr, "violates"):
		return "constraint violation - use --verbose for details"
	case strings.Contains(errStr, "does not exist"):
		return "referenced object does not exist - use --verbose for details"
	case strings.Contains(errStr, "already exists"):
		return "object already exists - use --verbose for details"
	case strings.Contains(errStr, "permission denied") || strings.Contains(errStr, "access denied"):
		return "permission denied - check database user privileges"
	default:
		return "migration failed - use --verbose for details"
	}
}

func newMigrateCommand(opts *globalOptions) *cobra.Command {
	var runName string

	cmd := &cobra.Command{
		Use:   "migrate [files...]",
		Short: "Apply the DDL for the resolved metadata",
		Long: `Generate the DDL for the resolved metadata and apply it to database.url in a
single transaction. Each successful run is recorded in retarget_schema_runs.

database.driver selects the driver: pgx, postgres, or sqlite3.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := newWorkspace(opts)
			if err != nil {
				return err
			}
			defer ws.close()

			url := ws.cfg.DatabaseURL()
			if url == "" {
				return fmt.Errorf("database.url is not set (or set DATABASE_URL)")
			}

			statements, err := ws.generateDDL(cmd, args)
			if err != nil {
				return err
			}
			if err := validateStatements(statements); err != nil {
				return err
			}

			db, err := sql.Open(ws.cfg.Database.Driver, url)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			ctx := cmd.Context()
			if err := db.PingContext(ctx); err != nil {
				return fmt.Errorf("failed to connect to database: %s", categorizeDatabaseError(err, opts.verbose))
			}

			runner := migrate.NewRunner(db, migrate.WithLogger(ws.logger))
			if err := runner.Initialize(ctx); err != nil {
				return errors.New(categorizeDatabaseError(err, opts.verbose))
			}

			run, err := runner.Apply(ctx, runName, statements)
			if err != nil {
				return errors.New(categorizeDatabaseError(err, opts.verbose))
			}

			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Applied %d statement(s) as %s (run %s)\n",
				run.StatementCount, run.Name, run.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&runName, "name", "schema", "name recorded for this run")
	return cmd
}
