package battery

import (
	"math"
	"math/rand"
	"sort"

	"goregime/adapters/regression"
	"goregime/domain/core"
	"goregime/domain/observation"
	"goregime/domain/result"
	"goregime/internal/evidence"
	"goregime/internal/multitest"
	"goregime/internal/numeric"
)

// WithinParams configures the within-subject flag test. Group carries the
// flag and ClusterKey the subject.
type WithinParams struct {
	Permutations int
	FlagA        string
	FlagB        string
}

// WithinOutcome is the per-subject deltas and their permutation null
type WithinOutcome struct {
	Deltas    []float64 // one per subject observed under both flags, subjects in key order
	NSubjects int
	Null      NullSummary
}

// WithinReferee compares flag-A and flag-B windows inside each subject
type WithinReferee struct {
	params WithinParams
}

// NewWithinReferee creates a referee for the given parameters
func NewWithinReferee(params WithinParams) *WithinReferee {
	return &WithinReferee{params: params}
}

type subject struct {
	key string
	idx []int
}

// Test computes delta = weighted mean(A) - weighted mean(B) for each subject
// with both flags and reports the mean delta against a null that shuffles
// flags inside each such subject. Subjects are visited in key order.
func (wr *WithinReferee) Test(obs []observation.Observation, rng *rand.Rand) WithinOutcome {
	values := make([]float64, len(obs))
	weights := make([]float64, len(obs))
	flags := make([]string, len(obs))
	byKey := make(map[string][]int)
	for i, o := range obs {
		values[i] = o.Value
		weights[i] = o.Weight
		if weights[i] <= 0 {
			weights[i] = 1
		}
		flags[i] = o.Group
		byKey[o.ClusterKey] = append(byKey[o.ClusterKey], i)
	}

	subjects := make([]subject, 0, len(byKey))
	for k, idx := range byKey {
		subjects = append(subjects, subject{key: k, idx: idx})
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].key < subjects[j].key })

	deltas := wr.deltas(values, weights, flags, subjects)
	out := WithinOutcome{Deltas: deltas, NSubjects: len(deltas)}
	observed := numeric.Mean(deltas)
	if !observed.Valid || wr.params.Permutations <= 0 {
		out.Null = NullSummary{Observed: observed}
		return out
	}

	var mixed []subject
	for _, s := range subjects {
		if _, ok := wr.delta(values, weights, flags, s.idx); ok {
			mixed = append(mixed, s)
		}
	}

	perm := make([]string, len(flags))
	null := make([]float64, 0, wr.params.Permutations)
	for iter := 0; iter < wr.params.Permutations; iter++ {
		copy(perm, flags)
		for _, s := range mixed {
			shuffleAt(perm, s.idx, rng)
		}
		if m := numeric.Mean(wr.deltas(values, weights, perm, mixed)); m.Valid {
			null = append(null, m.Value)
		}
	}

	out.Null = SummarizeNull(observed, null)
	return out
}

func (wr *WithinReferee) deltas(values, weights []float64, flags []string, subjects []subject) []float64 {
	var out []float64
	for _, s := range subjects {
		if d, ok := wr.delta(values, weights, flags, s.idx); ok {
			out = append(out, d)
		}
	}
	return out
}

func (wr *WithinReferee) delta(values, weights []float64, flags []string, idx []int) (float64, bool) {
	var sa, wa, sb, wb float64
	for _, i := range idx {
		switch flags[i] {
		case wr.params.FlagA:
			sa += weights[i] * values[i]
			wa += weights[i]
		case wr.params.FlagB:
			sb += weights[i] * values[i]
			wb += weights[i]
		}
	}
	if wa == 0 || wb == 0 {
		return 0, false
	}
	return sa/wa - sb/wb, true
}

// WithinRunParams configures a within-subject pass over every metric
type WithinRunParams struct {
	Within           WithinParams
	BootstrapSamples int
	Seed             int64
	Thresholds       evidence.Thresholds
	MinWindowDays    int // 0 keeps every window; otherwise windows without days are dropped too
}

// RunWithin produces one row per (metric, subgroup): "all" first, then each
// subgroup in sorted order. BH runs jointly across every row of the pass.
func RunWithin(groups []observation.MetricGroup, p WithinRunParams, permRNG, bootRNG *rand.Rand) []result.WithinRow {
	referee := NewWithinReferee(p.Within)
	a, b := p.Within.FlagA, p.Within.FlagB

	var rows []result.WithinRow
	for _, g := range groups {
		g = g.Filter(func(o observation.Observation) bool {
			if o.Group != a && o.Group != b {
				return false
			}
			if p.MinWindowDays > 0 {
				return o.Days.Valid && o.Days.Value >= p.MinWindowDays
			}
			return true
		})

		subgroups := append([]string{result.SubgroupAll}, observation.Subgroups(g)...)
		for _, sg := range subgroups {
			sub := g
			if sg != result.SubgroupAll {
				sub = g.Filter(func(o observation.Observation) bool { return o.Subgroup == sg })
			}
			rows = append(rows, withinRow(referee, sub, sg, p, permRNG, bootRNG))
		}
	}

	ps := make([]core.OptFloat, len(rows))
	for i := range rows {
		ps[i] = rows[i].P
	}
	qs := multitest.BenjaminiHochberg(ps)
	for i := range rows {
		r := &rows[i]
		r.Q = qs[i]
		c := evidence.Classify(r.Q, r.CILow, r.CIHigh, r.NSubjects, p.Thresholds)
		r.Tier, r.CIExcludesZero = c.Tier, c.CIExcludesZero
		if !r.Observed.Valid {
			r.Tier = evidence.Missing
		}
	}
	return rows
}

func withinRow(referee *WithinReferee, g observation.MetricGroup, subgroup string, p WithinRunParams, permRNG, bootRNG *rand.Rand) result.WithinRow {
	outcome := referee.Test(g.Obs, permRNG)
	lo, hi := BootstrapMeanCI(outcome.Deltas, p.BootstrapSamples, bootRNG)
	aVals, bVals := g.Split(p.Within.FlagA, p.Within.FlagB)

	row := result.WithinRow{
		Meta:             g.Meta,
		Subgroup:         subgroup,
		FlagA:            p.Within.FlagA,
		FlagB:            p.Within.FlagB,
		NSubjects:        outcome.NSubjects,
		NWindows:         len(g.Obs),
		NWindowsA:        len(aVals),
		NWindowsB:        len(bVals),
		Observed:         outcome.Null.Observed,
		PermMean:         outcome.Null.Mean,
		PermStd:          outcome.Null.Std,
		Z:                outcome.Null.Z,
		CILow:            lo,
		CIHigh:           hi,
		P:                outcome.Null.P,
		MDE:              regression.OneSampleMDE(outcome.Deltas),
		Thresholds:       p.Thresholds,
		Permutations:     p.Within.Permutations,
		BootstrapSamples: p.BootstrapSamples,
		Seed:             p.Seed,
		MinWindowDays:    p.MinWindowDays,
	}
	if v := numeric.SampleVariance(outcome.Deltas); v.Valid {
		row.DeltaSD = core.Some(math.Sqrt(v.Value))
	}
	row.EffectOverMDE = regression.EffectOverMDE(row.Observed, row.MDE)
	return row
}
