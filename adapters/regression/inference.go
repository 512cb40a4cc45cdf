package regression

import (
	"fmt"
	"math/rand"

	"goregime/domain/core"
	"goregime/domain/observation"
	"goregime/domain/result"
	"goregime/internal/numeric"
)

// InferenceParams configures the regression side of the inference table
type InferenceParams struct {
	GroupA    string
	GroupB    string
	NWLags    int
	WildDraws int // 0 disables the wild-cluster bootstrap
	WildSeed  int64
}

// Regress fits one metric and attaches HAC, cluster-robust and wild-cluster
// inference. Degenerate inputs leave the affected fields missing; any other
// failure is returned.
func Regress(g observation.MetricGroup, p InferenceParams, wildRNG *rand.Rand) (result.RegressionRow, error) {
	d := BuildDesign(g, p.GroupA, p.GroupB)
	row := result.RegressionRow{
		Meta:      g.Meta,
		NObs:      len(d.Y),
		HACLags:   p.NWLags,
		WildDraws: p.WildDraws,
		WildSeed:  p.WildSeed,
	}
	row.NA, row.NB = d.Counts()
	row.ClustersA, row.ClustersB, row.Clusters = ClusterCounts(d.D, d.Clusters)

	a, b := d.Sides()
	row.MDE = PooledMDE(a, b)

	fit, err := FitOLS(d.Y, d.D)
	if err != nil {
		return row, degenerate(err)
	}
	row.Beta = core.Some(fit.Beta)
	row.EffectOverMDE = EffectOverMDE(row.Beta, row.MDE)

	hac, err := fit.NeweyWest(p.NWLags)
	if err != nil {
		if err = degenerate(err); err != nil {
			return row, err
		}
	}
	row.HACSE, row.HACZ, row.HACP = hac.SE, hac.Z, hac.P

	cl, err := fit.ClusterRobust(d.Clusters)
	if err != nil {
		if err = degenerate(err); err != nil {
			return row, err
		}
	}
	row.ClusterSE, row.ClusterZ, row.ClusterP = cl.SE, cl.Z, cl.P

	row.WildP = WildClusterP(d.Y, d.D, d.Clusters, p.WildDraws, wildRNG)
	return row, nil
}

// degenerate swallows errors that only mean "no estimate"
func degenerate(err error) error {
	if core.IsDegenerate(err) {
		return nil
	}
	return err
}

// BuildInferenceTable regresses every metric in order and joins each with
// its permutation row, when one exists. One wild generator is shared across
// metrics in the order given.
func BuildInferenceTable(groups []observation.MetricGroup, perm []result.PermutationRow, p InferenceParams, wildRNG *rand.Rand) ([]result.InferenceRow, error) {
	byMetric := make(map[core.MetricID]result.PermutationRow, len(perm))
	for _, r := range perm {
		if r.Subgroup == "" || r.Subgroup == result.SubgroupAll {
			byMetric[r.Meta.ID] = r
		}
	}

	out := make([]result.InferenceRow, 0, len(groups))
	for _, g := range groups {
		reg, err := Regress(g, p, wildRNG)
		if err != nil {
			return nil, fmt.Errorf("metric %s: %w", g.Meta.ID, err)
		}
		row := result.InferenceRow{RegressionRow: reg}
		if pr, ok := byMetric[g.Meta.ID]; ok {
			row.PermEffect = pr.Observed
			row.PermP = pr.P
			row.PermQ = pr.Q
			row.PermTier = pr.Tier
		}
		annotate(&row)
		out = append(out, row)
	}
	return out, nil
}

func annotate(r *result.InferenceRow) {
	r.HACPLt005 = below(r.HACP, 0.05)
	r.HACPLt010 = below(r.HACP, 0.10)
	r.PermQLt005 = below(r.PermQ, 0.05)
	r.PermQLt010 = below(r.PermQ, 0.10)
	r.SigDisagree005 = differ(r.HACPLt005, r.PermQLt005)
	r.SigDisagree010 = differ(r.HACPLt010, r.PermQLt010)

	sb, sp := numeric.Sign(r.Beta), numeric.Sign(r.PermEffect)
	if sb != 0 && sp != 0 {
		r.DirectionDisagree = core.SomeBool(sb != sp)
	}
}

func below(v core.OptFloat, thr float64) core.OptBool {
	if !v.Valid {
		return core.OptBool{}
	}
	return core.SomeBool(v.Value < thr)
}

func differ(a, b core.OptBool) core.OptBool {
	if !a.Valid || !b.Valid {
		return core.OptBool{}
	}
	return core.SomeBool(a.Value != b.Value)
}
