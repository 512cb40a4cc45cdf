// Package multitest implements multiple-comparison corrections over the
// p-values of one analysis pass.
package multitest

import (
	"sort"

	"goregime/domain/core"
)

// BenjaminiHochberg returns one BH-adjusted q-value per input p-value.
//
// Present p-values are ranked ascending with a stable sort, so ties keep
// input order. Sweeping from the largest rank down, each q is
// min(previous q, p*m/rank), starting from 1. Missing p-values get missing
// q-values and do not count toward m.
func BenjaminiHochberg(ps []core.OptFloat) []core.OptFloat {
	qs := make([]core.OptFloat, len(ps))

	type item struct {
		idx int
		p   float64
	}
	items := make([]item, 0, len(ps))
	for i, p := range ps {
		if p.Valid {
			items = append(items, item{idx: i, p: p.Value})
		}
	}
	m := len(items)
	if m == 0 {
		return qs
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].p < items[j].p
	})

	prev := 1.0
	for k := m - 1; k >= 0; k-- {
		rank := float64(k + 1)
		q := items[k].p * float64(m) / rank
		if q > prev {
			q = prev
		}
		prev = q
		qs[items[k].idx] = core.Some(q)
	}
	return qs
}
