package ports

import (
	"context"

	"goregime/domain/core"
	"goregime/domain/run"
)

// LedgerPort stores run manifests and the tables each run wrote. Tables are
// opaque rows in header order, so every analysis shares one schema.
type LedgerPort interface {
	SaveRun(ctx context.Context, m *run.Manifest) error
	SaveTable(ctx context.Context, runID core.RunID, table string, header []string, records [][]string) error
}
