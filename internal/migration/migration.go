package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	"goregime/internal/errors"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createRunsTable(ctx, db); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, err, "failed to create regime_runs table")
	}

	if err := r.createResultRowsTable(ctx, db); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, err, "failed to create regime_result_rows table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS regime_runs (
			id UUID PRIMARY KEY,
			command VARCHAR(64) NOT NULL,
			fingerprint CHAR(64) NOT NULL,
			manifest JSONB NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createResultRowsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS regime_result_rows (
			run_id UUID NOT NULL REFERENCES regime_runs(id) ON DELETE CASCADE,
			table_name VARCHAR(64) NOT NULL,
			row_index INTEGER NOT NULL,
			metric_id VARCHAR(255) NOT NULL DEFAULT '',
			subgroup VARCHAR(64) NOT NULL DEFAULT '',
			payload JSONB NOT NULL,
			PRIMARY KEY (run_id, table_name, row_index)
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_regime_runs_fingerprint ON regime_runs(fingerprint, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_regime_result_rows_metric ON regime_result_rows(metric_id, table_name)
	`)
	return err
}
