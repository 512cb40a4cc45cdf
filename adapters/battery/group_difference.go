package battery

import (
	"math/rand"

	"goregime/adapters/regression"
	"goregime/domain/core"
	"goregime/domain/observation"
	"goregime/domain/result"
	"goregime/internal/evidence"
	"goregime/internal/multitest"
)

// GroupDifferenceParams configures one group-difference pass. The size gate
// is n >= Thresholds.MinN plus the optional per-group and per-subject minimums.
type GroupDifferenceParams struct {
	Analysis         result.Analysis
	Permutation      PermutationParams
	BootstrapSamples int
	Seed             int64
	Thresholds       evidence.Thresholds

	MinEachGroup        int // min(nA, nB) must reach this
	MinClustersWithBoth int // clusters observed under both labels
}

// RunGroupDifference tests every metric in the order given, then applies BH
// across the pass and assigns tiers. permRNG and bootRNG advance across
// metrics, so the order of groups is part of the result.
func RunGroupDifference(groups []observation.MetricGroup, p GroupDifferenceParams, permRNG, bootRNG *rand.Rand) []result.PermutationRow {
	referee := NewPermutationReferee(p.Permutation)
	a, b := p.Permutation.GroupA, p.Permutation.GroupB

	rows := make([]result.PermutationRow, 0, len(groups))
	for _, g := range groups {
		g = g.Filter(func(o observation.Observation) bool { return o.Group == a || o.Group == b })
		aVals, bVals := g.Split(a, b)

		null := referee.Test(g.Values(), g.Labels(), g.BlockKeys(), permRNG)
		lo, hi := BootstrapDiffCI(aVals, bVals, p.BootstrapSamples, bootRNG)
		minKey, maxKey := g.BlockYearRange()
		mde := regression.PooledMDE(aVals, bVals)

		rows = append(rows, result.PermutationRow{
			Analysis:         p.Analysis,
			Meta:             g.Meta,
			Subgroup:         result.SubgroupAll,
			GroupA:           a,
			GroupB:           b,
			NObs:             len(g.Obs),
			NA:               len(aVals),
			NB:               len(bVals),
			ClustersWithBoth: clustersWithBoth(g, a, b),
			Observed:         null.Observed,
			PermMean:         null.Mean,
			PermStd:          null.Std,
			Z:                null.Z,
			CILow:            lo,
			CIHigh:           hi,
			P:                null.P,
			MDE:              mde,
			EffectOverMDE:    regression.EffectOverMDE(null.Observed, mde),
			Thresholds:       p.Thresholds,
			Permutations:     p.Permutation.Permutations,
			BootstrapSamples: p.BootstrapSamples,
			Seed:             p.Seed,
			BlockSize:        p.Permutation.BlockSize,
			MinBlockKey:      minKey,
			MaxBlockKey:      maxKey,
		})
	}

	ps := make([]core.OptFloat, len(rows))
	for i := range rows {
		ps[i] = rows[i].P
	}
	qs := multitest.BenjaminiHochberg(ps)
	for i := range rows {
		r := &rows[i]
		r.Q = qs[i]
		c := evidence.ClassifySized(r.Q, r.CILow, r.CIHigh, sizeOK(*r, p), p.Thresholds)
		r.Tier, r.CIExcludesZero = c.Tier, c.CIExcludesZero
		if !r.Observed.Valid {
			r.Tier = evidence.Missing
		}
	}
	return rows
}

func sizeOK(r result.PermutationRow, p GroupDifferenceParams) bool {
	smaller := r.NA
	if r.NB < smaller {
		smaller = r.NB
	}
	return r.NObs >= p.Thresholds.MinN &&
		smaller >= p.MinEachGroup &&
		r.ClustersWithBoth >= p.MinClustersWithBoth
}

// clustersWithBoth counts non-empty cluster keys observed under both labels
func clustersWithBoth(g observation.MetricGroup, a, b string) int {
	seen := make(map[string][2]bool)
	for _, o := range g.Obs {
		if o.ClusterKey == "" {
			continue
		}
		s := seen[o.ClusterKey]
		if o.Group == a {
			s[0] = true
		} else {
			s[1] = true
		}
		seen[o.ClusterKey] = s
	}
	n := 0
	for _, s := range seen {
		if s[0] && s[1] {
			n++
		}
	}
	return n
}
