package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"goregime/domain/core"
	"goregime/domain/run"
	"goregime/ports"
)

// ResultRepository persists run manifests and result tables
type ResultRepository struct {
	db *sqlx.DB
}

var _ ports.LedgerPort = (*ResultRepository)(nil)

// Open connects to Postgres with lib/pq
func Open(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// NewResultRepository creates a new result repository
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// SaveRun stores the manifest of a run
func (r *ResultRepository) SaveRun(ctx context.Context, m *run.Manifest) error {
	manifestJSON, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	query := `
		INSERT INTO regime_runs (id, command, fingerprint, manifest, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET manifest = EXCLUDED.manifest`

	_, err = r.db.ExecContext(ctx, query,
		m.RunID.String(),
		m.Command,
		m.Fingerprint.Fingerprint.String(),
		manifestJSON,
		m.CreatedAt.Time(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// SaveTable stores every record of one output table in a single
// transaction, replacing any rows the run already has for that table.
func (r *ResultRepository) SaveTable(ctx context.Context, runID core.RunID, table string, header []string, records [][]string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM regime_result_rows WHERE run_id = $1 AND table_name = $2`,
		runID.String(), table); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}

	query := `
		INSERT INTO regime_result_rows (run_id, table_name, row_index, metric_id, subgroup, payload)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for i, rec := range records {
		cells := make(map[string]string, len(header))
		for j, h := range header {
			if j < len(rec) {
				cells[h] = rec[j]
			}
		}
		payload, err := json.Marshal(cells)
		if err != nil {
			return fmt.Errorf("failed to marshal row %d: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx, query, runID.String(), table, i, cells["metric_id"], cells["subgroup"], payload); err != nil {
			return fmt.Errorf("failed to insert row %d of %s: %w", i, table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", table, err)
	}
	return nil
}
