package regression

import (
	"sort"

	"goregime/domain/observation"
)

// Design is one metric's regression input in fitting order
type Design struct {
	Y        []float64
	D        []float64 // 1 for group a, 0 for group b
	Clusters []string
}

// BuildDesign keeps the observations labeled a or b and orders them by
// (block key, start date, cluster key) so that HAC lags run over time.
// Missing block keys and unknown start dates sort first.
func BuildDesign(g observation.MetricGroup, a, b string) Design {
	obs := make([]observation.Observation, 0, len(g.Obs))
	for _, o := range g.Obs {
		if o.Group == a || o.Group == b {
			obs = append(obs, o)
		}
	}
	sort.SliceStable(obs, func(i, j int) bool {
		ki, kj := obs[i].BlockKey, obs[j].BlockKey
		if ki.Valid != kj.Valid {
			return !ki.Valid
		}
		if ki.Value != kj.Value {
			return ki.Value < kj.Value
		}
		if !obs[i].Start.Equal(obs[j].Start) {
			return obs[i].Start.Before(obs[j].Start)
		}
		return obs[i].ClusterKey < obs[j].ClusterKey
	})

	d := Design{
		Y:        make([]float64, len(obs)),
		D:        make([]float64, len(obs)),
		Clusters: make([]string, len(obs)),
	}
	for i, o := range obs {
		d.Y[i] = o.Value
		if o.Group == a {
			d.D[i] = 1
		}
		d.Clusters[i] = o.ClusterKey
	}
	return d
}

// Counts returns the number of observations on each side
func (d Design) Counts() (nA, nB int) {
	for _, x := range d.D {
		if x == 1 {
			nA++
		} else {
			nB++
		}
	}
	return nA, nB
}

// Sides splits Y by indicator value
func (d Design) Sides() (a, b []float64) {
	for i, y := range d.Y {
		if d.D[i] == 1 {
			a = append(a, y)
		} else {
			b = append(b, y)
		}
	}
	return a, b
}
