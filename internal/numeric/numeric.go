// Package numeric holds the small numeric primitives shared by the
// permutation, bootstrap and regression code. Every function returns a
// missing value instead of a number when its input is degenerate.
package numeric

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"goregime/domain/core"
)

// Mean returns the arithmetic mean, missing for empty input
func Mean(xs []float64) core.OptFloat {
	m, err := stats.Mean(xs)
	if err != nil {
		return core.Missing()
	}
	return core.Some(m)
}

// Median returns the median, missing for empty input
func Median(xs []float64) core.OptFloat {
	m, err := stats.Median(xs)
	if err != nil {
		return core.Missing()
	}
	return core.Some(m)
}

// StdPopulation returns the population standard deviation (divide by N)
func StdPopulation(xs []float64) core.OptFloat {
	sd, err := stats.StandardDeviationPopulation(xs)
	if err != nil {
		return core.Missing()
	}
	return core.Some(sd)
}

// SampleVariance returns the (n-1)-denominator variance; needs n >= 2
func SampleVariance(xs []float64) core.OptFloat {
	if len(xs) < 2 {
		return core.Missing()
	}
	v, err := stats.SampleVariance(xs)
	if err != nil {
		return core.Missing()
	}
	return core.Some(v)
}

// Percentile returns the q-quantile (q in [0,1], clamped) by linear
// interpolation between the order statistics around q*(n-1).
func Percentile(xs []float64, q float64) core.OptFloat {
	if len(xs) == 0 {
		return core.Missing()
	}
	ys := make([]float64, len(xs))
	copy(ys, xs)
	sort.Float64s(ys)
	if len(ys) == 1 {
		return core.Some(ys[0])
	}

	p := math.Max(0, math.Min(1, q)) * float64(len(ys)-1)
	lo := int(math.Floor(p))
	hi := int(math.Ceil(p))
	if lo == hi {
		return core.Some(ys[lo])
	}
	w := p - float64(lo)
	return core.Some(ys[lo]*(1-w) + ys[hi]*w)
}

// Sign returns -1, 0 or 1; a missing value has sign 0
func Sign(v core.OptFloat) int {
	if !v.Valid {
		return 0
	}
	switch {
	case v.Value > 0:
		return 1
	case v.Value < 0:
		return -1
	}
	return 0
}
