package regression

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goregime/domain/core"
	"goregime/domain/observation"
	"goregime/domain/result"
	"goregime/internal/evidence"
)

var (
	stepY = []float64{1, 2, 3, 4, 5, 6}
	stepD = []float64{0, 0, 0, 1, 1, 1}
)

func TestFitOLS_DifferenceOfMeans(t *testing.T) {
	fit, err := FitOLS(stepY, stepD)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, fit.Alpha, 1e-12)
	assert.InDelta(t, 3.0, fit.Beta, 1e-12)
	assert.InDeltaSlice(t, []float64{-1, 0, 1, -1, 0, 1}, fit.Residuals, 1e-12)
}

func TestFitOLS_Degenerate(t *testing.T) {
	_, err := FitOLS([]float64{1, 2}, []float64{0, 1})
	assert.ErrorIs(t, err, core.ErrInsufficientData)

	_, err = FitOLS([]float64{1, 2, 3}, []float64{1, 1, 1})
	assert.ErrorIs(t, err, core.ErrNoVariation)

	_, err = FitOLS([]float64{1, 2, 3}, []float64{0, 1})
	assert.Error(t, err)
}

func TestNeweyWest(t *testing.T) {
	fit, err := FitOLS(stepY, stepD)
	require.NoError(t, err)

	t.Run("zero lags is heteroskedasticity-robust", func(t *testing.T) {
		est, err := fit.NeweyWest(0)
		require.NoError(t, err)
		assert.InDelta(t, 2.0/3.0, est.SE.Value, 1e-9)
		assert.InDelta(t, 4.5, est.Z.Value, 1e-9)
		assert.True(t, est.P.Valid)
		assert.Less(t, est.P.Value, 0.001)
	})

	t.Run("one lag Bartlett weight", func(t *testing.T) {
		est, err := fit.NeweyWest(1)
		require.NoError(t, err)
		assert.InDelta(t, math.Sqrt(5.0/9.0), est.SE.Value, 1e-9)
	})

	t.Run("lags clamp to n-1", func(t *testing.T) {
		a, err := fit.NeweyWest(5)
		require.NoError(t, err)
		b, err := fit.NeweyWest(50)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}

func TestClusterRobust(t *testing.T) {
	fit, err := FitOLS(stepY, stepD)
	require.NoError(t, err)

	t.Run("singleton clusters scale the robust variance", func(t *testing.T) {
		est, err := fit.ClusterRobust([]string{"a", "b", "c", "d", "e", "f"})
		require.NoError(t, err)
		// 4/9 * (6/5) * (5/4)
		assert.InDelta(t, math.Sqrt(2.0/3.0), est.SE.Value, 1e-9)
	})

	t.Run("one cluster is too few", func(t *testing.T) {
		_, err := fit.ClusterRobust([]string{"x", "x", "x", "x", "x", "x"})
		assert.ErrorIs(t, err, core.ErrTooFewClusters)
	})
}

func TestClusterCounts(t *testing.T) {
	a, b, total := ClusterCounts(stepD, []string{"p1", "p1", "p2", "p2", "p3", "p3"})
	assert.Equal(t, 2, a)
	assert.Equal(t, 2, b)
	assert.Equal(t, 3, total)
}

func TestPooledMDE(t *testing.T) {
	got := PooledMDE([]float64{1, 2, 3}, []float64{4, 5, 6})
	require.True(t, got.Valid)
	assert.InDelta(t, (1.959964+0.841621)*math.Sqrt(2.0/3.0), got.Value, 1e-9)

	assert.False(t, PooledMDE([]float64{1}, []float64{4, 5, 6}).Valid)
}

func TestOneSampleMDE(t *testing.T) {
	got := OneSampleMDE([]float64{1, 3})
	require.True(t, got.Valid)
	assert.InDelta(t, (1.959964+0.841621)*math.Sqrt2/math.Sqrt2, got.Value, 1e-9)

	assert.False(t, OneSampleMDE([]float64{1}).Valid)
}

func TestEffectOverMDE(t *testing.T) {
	assert.InDelta(t, 2.0, EffectOverMDE(core.Some(-4), core.Some(2)).Value, 1e-12)
	assert.False(t, EffectOverMDE(core.Some(1), core.Some(0)).Valid)
	assert.False(t, EffectOverMDE(core.Missing(), core.Some(1)).Valid)
}

func wildFixture() (y, d []float64, clusters []string) {
	rng := rand.New(rand.NewSource(3))
	for c := 0; c < 8; c++ {
		key := string(rune('a' + c))
		for i := 0; i < 4; i++ {
			flag := float64(i % 2)
			y = append(y, 0.8*flag+rng.NormFloat64())
			d = append(d, flag)
			clusters = append(clusters, key)
		}
	}
	return y, d, clusters
}

func TestWildClusterP(t *testing.T) {
	y, d, clusters := wildFixture()

	p1 := WildClusterP(y, d, clusters, 199, rand.New(rand.NewSource(42)))
	p2 := WildClusterP(y, d, clusters, 199, rand.New(rand.NewSource(42)))

	require.True(t, p1.Valid)
	assert.Equal(t, p1, p2, "same seed must give the same p")
	assert.Greater(t, p1.Value, 0.0)
	assert.LessOrEqual(t, p1.Value, 1.0)
	assert.GreaterOrEqual(t, p1.Value, 1.0/200.0)
}

func TestWildClusterP_Disabled(t *testing.T) {
	y, d, clusters := wildFixture()
	assert.False(t, WildClusterP(y, d, clusters, 0, rand.New(rand.NewSource(1))).Valid)
	assert.False(t, WildClusterP(y, d, clusters, 10, nil).Valid)

	one := make([]string, len(clusters))
	for i := range one {
		one[i] = "only"
	}
	assert.False(t, WildClusterP(y, d, one, 10, rand.New(rand.NewSource(1))).Valid)
}

func TestBuildDesign_OrdersByTime(t *testing.T) {
	day := func(y int) time.Time { return time.Date(y, 1, 20, 0, 0, 0, 0, time.UTC) }
	g := observation.MetricGroup{Obs: []observation.Observation{
		{Value: 3, Group: "D", BlockKey: core.SomeInt(1993), Start: day(1993), ClusterKey: "clinton"},
		{Value: 9, Group: "X", BlockKey: core.SomeInt(1980)},
		{Value: 1, Group: "R", BlockKey: core.SomeInt(1981), Start: day(1981), ClusterKey: "reagan"},
		{Value: 2, Group: "R", BlockKey: core.SomeInt(1989), Start: day(1989), ClusterKey: "bush"},
		{Value: 0, Group: "D"},
	}}

	d := BuildDesign(g, "D", "R")
	assert.Equal(t, []float64{0, 1, 2, 3}, d.Y)
	assert.Equal(t, []float64{1, 0, 0, 1}, d.D)
	assert.Equal(t, []string{"", "reagan", "bush", "clinton"}, d.Clusters)

	nA, nB := d.Counts()
	assert.Equal(t, 2, nA)
	assert.Equal(t, 2, nB)
}

func termGroup(id string, dEffect float64) observation.MetricGroup {
	g := observation.MetricGroup{Meta: observation.MetricMeta{ID: core.MetricID(id), Label: id}}
	for i := 0; i < 12; i++ {
		label, v := "R", float64(i%3)
		if i%2 == 0 {
			label, v = "D", v+dEffect
		}
		g.Obs = append(g.Obs, observation.Observation{
			MetricID:   core.MetricID(id),
			Value:      v,
			Group:      label,
			BlockKey:   core.SomeInt(1950 + 4*i),
			ClusterKey: string(rune('a' + i/2)),
		})
	}
	return g
}

func TestBuildInferenceTable(t *testing.T) {
	groups := []observation.MetricGroup{termGroup("gdp", 2), termGroup("cpi", -1)}
	perm := []result.PermutationRow{
		{Meta: groups[0].Meta, Subgroup: result.SubgroupAll, Observed: core.Some(2), P: core.Some(0.01), Q: core.Some(0.02), Tier: evidence.Confirmatory},
		{Meta: groups[1].Meta, Subgroup: result.SubgroupAll, Observed: core.Some(0.5), P: core.Some(0.3), Q: core.Some(0.3), Tier: evidence.Exploratory},
	}
	params := InferenceParams{GroupA: "D", GroupB: "R", NWLags: 2, WildDraws: 49, WildSeed: 7}

	rows, err := BuildInferenceTable(groups, perm, params, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	gdp := rows[0]
	assert.Equal(t, 12, gdp.NObs)
	assert.Equal(t, 6, gdp.NA)
	assert.InDelta(t, 2.0, gdp.Beta.Value, 1e-9)
	assert.True(t, gdp.HACP.Valid)
	assert.True(t, gdp.ClusterP.Valid)
	assert.True(t, gdp.WildP.Valid)
	assert.Equal(t, core.SomeBool(false), gdp.DirectionDisagree)
	assert.Equal(t, core.SomeBool(true), gdp.PermQLt005)
	assert.Equal(t, evidence.Confirmatory, gdp.PermTier)
	assert.Equal(t, len(result.InferenceHeader), len(gdp.Record()))

	cpi := rows[1]
	assert.InDelta(t, -1.0, cpi.Beta.Value, 1e-9)
	assert.Equal(t, core.SomeBool(true), cpi.DirectionDisagree)
}

func TestBuildInferenceTable_NoPermutationRow(t *testing.T) {
	rows, err := BuildInferenceTable([]observation.MetricGroup{termGroup("gdp", 1)}, nil,
		InferenceParams{GroupA: "D", GroupB: "R", NWLags: 1}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].PermQ.Valid)
	assert.False(t, rows[0].DirectionDisagree.Valid)
	assert.False(t, rows[0].SigDisagree005.Valid)
	assert.False(t, rows[0].WildP.Valid)
}

func TestEstimateFromVariance(t *testing.T) {
	tests := []struct {
		name    string
		v       float64
		wantErr error
		wantSE  core.OptFloat
		wantZ   bool
	}{
		{name: "positive", v: 0.25, wantSE: core.Some(0.5), wantZ: true},
		{name: "zero", v: 0, wantSE: core.Some(0)},
		{name: "rounding noise clamps to zero", v: -5e-13, wantSE: core.Some(0)},
		{name: "negative beyond tolerance", v: -1e-6, wantErr: core.ErrNegativeVariance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, err := estimateFromVariance(1.5, tt.v)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, est.SE.Valid)
				assert.False(t, est.Z.Valid)
				assert.False(t, est.P.Valid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSE, est.SE)
			assert.Equal(t, tt.wantZ, est.Z.Valid)
			assert.Equal(t, tt.wantZ, est.P.Valid)
			if tt.wantZ {
				assert.InDelta(t, 3.0, est.Z.Value, 1e-12)
			}
		})
	}
}

func TestRegress_DegenerateLeavesCellsMissing(t *testing.T) {
	onlyD := termGroup("gdp", 1).Filter(func(o observation.Observation) bool { return o.Group == "D" })
	params := InferenceParams{GroupA: "D", GroupB: "R", NWLags: 1, WildDraws: 19}

	row, err := Regress(onlyD, params, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 6, row.NObs)
	assert.Equal(t, 6, row.NA)
	assert.Equal(t, 0, row.NB)
	assert.False(t, row.Beta.Valid)
	assert.False(t, row.HACSE.Valid)
	assert.False(t, row.ClusterSE.Valid)
	assert.False(t, row.WildP.Valid)
}

func TestDegenerate(t *testing.T) {
	assert.NoError(t, degenerate(core.ErrNoVariation))
	assert.NoError(t, degenerate(core.ErrTooFewClusters))
	assert.NoError(t, degenerate(core.ErrNegativeVariance))

	invalid := core.NewValidationError("clusters", "length differs from observations")
	assert.Equal(t, invalid, degenerate(invalid))
}
