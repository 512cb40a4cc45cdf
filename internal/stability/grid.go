// Package stability reruns the wild-cluster bootstrap over a grid of seeds
// and draw counts to see whether a metric's p-value survives reseeding.
package stability

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"goregime/adapters/regression"
	"goregime/domain/core"
	"goregime/domain/result"
	"goregime/ports"
)

// Grid is the set of (seed, draws) cells to run
type Grid struct {
	Seeds []int64
	Draws []int
}

// Cells returns the grid in seed-major order
func (g Grid) Cells() []Cell {
	cells := make([]Cell, 0, len(g.Seeds)*len(g.Draws))
	for _, s := range g.Seeds {
		for _, d := range g.Draws {
			cells = append(cells, Cell{Seed: s, Draws: d})
		}
	}
	return cells
}

// Cell is one wild-cluster rerun configuration
type Cell struct {
	Seed  int64
	Draws int
}

// Metric is one metric's regression design
type Metric struct {
	ID     core.MetricID
	Design regression.Design
}

// Runner fans grid cells out over a bounded number of goroutines
type Runner struct {
	rng         ports.RNGPort
	concurrency *semaphore.Weighted
}

// NewRunner creates a runner; workers <= 0 uses the number of CPUs
func NewRunner(rng ports.RNGPort, workers int) *Runner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Runner{rng: rng, concurrency: semaphore.NewWeighted(int64(workers))}
}

// Run computes every (metric, cell) wild-cluster p. Each cell owns a
// generator seeded with its seed and walks the metrics in order, exactly as
// a single inference run with that seed would, so results do not depend on
// scheduling. Rows come back metric-major, then seed, then draws.
func (r *Runner) Run(ctx context.Context, metrics []Metric, grid Grid) ([]result.StabilityRow, error) {
	cells := grid.Cells()
	pvals := make([][]core.OptFloat, len(cells))

	betas := make([]core.OptFloat, len(metrics))
	for i, m := range metrics {
		if fit, err := regression.FitOLS(m.Design.Y, m.Design.D); err == nil {
			betas[i] = core.Some(fit.Beta)
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for ci, cell := range cells {
		if err := r.concurrency.Acquire(egCtx, 1); err != nil {
			break
		}
		eg.Go(func() error {
			defer r.concurrency.Release(1)

			rng, err := r.rng.SeededStream(egCtx, "wild_cluster", cell.Seed)
			if err != nil {
				return fmt.Errorf("cell seed=%d draws=%d: %w", cell.Seed, cell.Draws, err)
			}
			ps := make([]core.OptFloat, len(metrics))
			for mi, m := range metrics {
				if err := egCtx.Err(); err != nil {
					return err
				}
				ps[mi] = regression.WildClusterP(m.Design.Y, m.Design.D, m.Design.Clusters, cell.Draws, rng)
			}
			pvals[ci] = ps
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows := make([]result.StabilityRow, 0, len(metrics)*len(cells))
	for mi, m := range metrics {
		for ci, cell := range cells {
			rows = append(rows, result.StabilityRow{
				MetricID: m.ID,
				Seed:     cell.Seed,
				Draws:    cell.Draws,
				Beta:     betas[mi],
				WildP:    pvals[ci][mi],
			})
		}
	}
	return rows, nil
}
