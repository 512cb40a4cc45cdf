package stability

import (
	"goregime/domain/core"
	"goregime/domain/result"
)

// Summarize condenses rows per metric, in first-seen order. A metric is
// robust at alpha when every defined p falls on the same side of alpha,
// unstable when they straddle it, and missing when none is defined.
func Summarize(rows []result.StabilityRow) []result.StabilitySummaryRow {
	index := make(map[core.MetricID]int)
	var out []result.StabilitySummaryRow
	var ps [][]float64

	for _, r := range rows {
		i, ok := index[r.MetricID]
		if !ok {
			i = len(out)
			index[r.MetricID] = i
			out = append(out, result.StabilitySummaryRow{MetricID: r.MetricID})
			ps = append(ps, nil)
		}
		out[i].NRuns++
		if r.WildP.Valid {
			ps[i] = append(ps[i], r.WildP.Value)
		}
	}

	for i := range out {
		for _, p := range ps[i] {
			if !out[i].MinP.Valid || p < out[i].MinP.Value {
				out[i].MinP = core.Some(p)
			}
			if !out[i].MaxP.Valid || p > out[i].MaxP.Value {
				out[i].MaxP = core.Some(p)
			}
		}
		out[i].Status005 = Status(ps[i], 0.05)
		out[i].Status010 = Status(ps[i], 0.10)
	}
	return out
}

// Status classifies a set of p-values against alpha
func Status(ps []float64, alpha float64) result.StabilityStatus {
	if len(ps) == 0 {
		return result.StabilityMissing
	}
	below := 0
	for _, p := range ps {
		if p < alpha {
			below++
		}
	}
	switch below {
	case len(ps):
		return result.RobustSignificant
	case 0:
		return result.RobustNotSignificant
	}
	return result.Unstable
}
