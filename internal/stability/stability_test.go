package stability

import (
	"context"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"goregime/adapters/regression"
	rngadapter "goregime/adapters/rng"
	"goregime/domain/core"
	"goregime/domain/result"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func metricFixture(id string, effect float64, seed int64) Metric {
	rng := rand.New(rand.NewSource(seed))
	var d regression.Design
	for c := 0; c < 10; c++ {
		for i := 0; i < 2; i++ {
			flag := float64(i)
			d.Y = append(d.Y, effect*flag+rng.NormFloat64())
			d.D = append(d.D, flag)
			d.Clusters = append(d.Clusters, string(rune('a'+c)))
		}
	}
	return Metric{ID: core.MetricID(id), Design: d}
}

func TestRunner_MatchesSequentialRuns(t *testing.T) {
	metrics := []Metric{metricFixture("gdp", 2, 1), metricFixture("cpi", 0, 2)}
	grid := Grid{Seeds: []int64{11, 12, 13}, Draws: []int{49, 99}}

	rows, err := NewRunner(rngadapter.NewSeededAdapter(), 4).Run(context.Background(), metrics, grid)
	require.NoError(t, err)
	require.Len(t, rows, 12)

	// the same cells computed one at a time
	var want []result.StabilityRow
	seq := make(map[Cell][]core.OptFloat)
	for _, cell := range grid.Cells() {
		rng := rand.New(rand.NewSource(cell.Seed))
		for _, m := range metrics {
			seq[cell] = append(seq[cell], regression.WildClusterP(m.Design.Y, m.Design.D, m.Design.Clusters, cell.Draws, rng))
		}
	}
	for mi, m := range metrics {
		fit, err := regression.FitOLS(m.Design.Y, m.Design.D)
		require.NoError(t, err)
		for _, cell := range grid.Cells() {
			want = append(want, result.StabilityRow{
				MetricID: m.ID, Seed: cell.Seed, Draws: cell.Draws,
				Beta: core.Some(fit.Beta), WildP: seq[cell][mi],
			})
		}
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("concurrent grid differs from sequential (-want +got):\n%s", diff)
	}
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(rngadapter.NewSeededAdapter(), 2).Run(ctx, []Metric{metricFixture("gdp", 1, 1)}, Grid{Seeds: []int64{1, 2}, Draws: []int{9}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, result.RobustSignificant, Status([]float64{0.01, 0.04}, 0.05))
	assert.Equal(t, result.RobustNotSignificant, Status([]float64{0.05, 0.3}, 0.05))
	assert.Equal(t, result.Unstable, Status([]float64{0.04, 0.06}, 0.05))
	assert.Equal(t, result.StabilityMissing, Status(nil, 0.05))
}

func TestSummarize(t *testing.T) {
	rows := []result.StabilityRow{
		{MetricID: "gdp", WildP: core.Some(0.03)},
		{MetricID: "gdp", WildP: core.Some(0.07)},
		{MetricID: "cpi", WildP: core.Missing()},
		{MetricID: "gdp", WildP: core.Some(0.02)},
	}

	got := Summarize(rows)
	require.Len(t, got, 2)

	assert.Equal(t, result.StabilitySummaryRow{
		MetricID:  "gdp",
		NRuns:     3,
		MinP:      core.Some(0.02),
		MaxP:      core.Some(0.07),
		Status005: result.Unstable,
		Status010: result.RobustSignificant,
	}, got[0])
	assert.Equal(t, result.StabilityMissing, got[1].Status005)
	assert.Equal(t, 1, got[1].NRuns)
}
