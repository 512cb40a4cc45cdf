package observation

import (
	"sort"
	"time"

	"goregime/domain/core"
)

// Observation is one scalar value produced by the upstream aggregation layer:
// a (metric, president-term) or (metric, regime-window) row. The engine never
// mutates observations.
type Observation struct {
	MetricID   core.MetricID
	Value      float64
	Group      string       // e.g. "D"/"R" or "unified"/"divided"
	BlockKey   core.OptInt  // ordinal used for blocked permutation, e.g. start year
	Start      time.Time    // zero when unknown; orders rows for HAC lags
	ClusterKey string       // subject identity, e.g. president or term id
	Subgroup   string       // optional sub-population, e.g. the president's party
	Weight     float64      // within-subject weight (window days); 1 when absent
	Days       core.OptInt  // window length in days, when known
	Primary    bool
}

// MetricMeta is the immutable descriptive metadata of a metric
type MetricMeta struct {
	ID      core.MetricID
	Label   string
	Family  string
	AggKind string
	Units   string
}

// MetricGroup is every observation sharing a metric id
type MetricGroup struct {
	Meta MetricMeta
	Obs  []Observation
}

// Values returns observation values in input order
func (g MetricGroup) Values() []float64 {
	out := make([]float64, len(g.Obs))
	for i, o := range g.Obs {
		out[i] = o.Value
	}
	return out
}

// Labels returns group labels in input order
func (g MetricGroup) Labels() []string {
	out := make([]string, len(g.Obs))
	for i, o := range g.Obs {
		out[i] = o.Group
	}
	return out
}

// BlockKeys returns block keys in input order
func (g MetricGroup) BlockKeys() []core.OptInt {
	out := make([]core.OptInt, len(g.Obs))
	for i, o := range g.Obs {
		out[i] = o.BlockKey
	}
	return out
}

// Split returns the values labeled a and b, each in input order
func (g MetricGroup) Split(a, b string) (aVals, bVals []float64) {
	for _, o := range g.Obs {
		switch o.Group {
		case a:
			aVals = append(aVals, o.Value)
		case b:
			bVals = append(bVals, o.Value)
		}
	}
	return aVals, bVals
}

// Filter returns a copy of the group keeping observations for which keep is true
func (g MetricGroup) Filter(keep func(Observation) bool) MetricGroup {
	out := MetricGroup{Meta: g.Meta}
	for _, o := range g.Obs {
		if keep(o) {
			out.Obs = append(out.Obs, o)
		}
	}
	return out
}

// BlockYearRange reports the smallest and largest valid block key
func (g MetricGroup) BlockYearRange() (lo, hi core.OptInt) {
	for _, o := range g.Obs {
		if !o.BlockKey.Valid {
			continue
		}
		if !lo.Valid || o.BlockKey.Value < lo.Value {
			lo = o.BlockKey
		}
		if !hi.Valid || o.BlockKey.Value > hi.Value {
			hi = o.BlockKey
		}
	}
	return lo, hi
}

// Table is a flat observation feed plus the metadata of its metrics
type Table struct {
	Meta map[core.MetricID]MetricMeta
	Obs  []Observation
}

// GroupByMetric groups observations on metric id. Groups come back sorted by
// metric id so downstream random draws happen in a fixed order. Within a
// group, input order is preserved.
func GroupByMetric(t Table) []MetricGroup {
	index := make(map[core.MetricID]int)
	var groups []MetricGroup
	for _, o := range t.Obs {
		i, ok := index[o.MetricID]
		if !ok {
			meta, found := t.Meta[o.MetricID]
			if !found {
				meta = MetricMeta{ID: o.MetricID, Label: o.MetricID.String()}
			}
			groups = append(groups, MetricGroup{Meta: meta})
			i = len(groups) - 1
			index[o.MetricID] = i
		}
		groups[i].Obs = append(groups[i].Obs, o)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Meta.ID < groups[j].Meta.ID
	})
	return groups
}

// Subgroups lists the distinct non-empty subgroup values in sorted order
func Subgroups(g MetricGroup) []string {
	seen := make(map[string]bool)
	var out []string
	for _, o := range g.Obs {
		if o.Subgroup == "" || seen[o.Subgroup] {
			continue
		}
		seen[o.Subgroup] = true
		out = append(out, o.Subgroup)
	}
	sort.Strings(out)
	return out
}
