package regression

import (
	"math"

	"goregime/domain/core"
	"goregime/internal/numeric"
)

const mdeMultiplier = numeric.ZAlpha005TwoSided + numeric.ZPower080

// PooledMDE is the rough minimum detectable |mean(a) - mean(b)| at two-sided
// alpha 0.05 and power 0.80 under a pooled-variance normal approximation.
// Each group needs at least two values.
func PooledMDE(a, b []float64) core.OptFloat {
	nA, nB := len(a), len(b)
	if nA < 2 || nB < 2 {
		return core.Missing()
	}
	va := numeric.SampleVariance(a)
	vb := numeric.SampleVariance(b)
	if !va.Valid || !vb.Valid {
		return core.Missing()
	}
	pooled := ((float64(nA)-1)*va.Value + (float64(nB)-1)*vb.Value) / float64(nA+nB-2)
	return core.Some(mdeMultiplier * math.Sqrt(pooled) * math.Sqrt(1/float64(nA)+1/float64(nB)))
}

// OneSampleMDE is the same approximation for a mean of paired deltas
func OneSampleMDE(xs []float64) core.OptFloat {
	v := numeric.SampleVariance(xs)
	if !v.Valid {
		return core.Missing()
	}
	return core.Some(mdeMultiplier * math.Sqrt(v.Value) / math.Sqrt(float64(len(xs))))
}

// EffectOverMDE is |effect| / mde, missing when mde is missing or zero
func EffectOverMDE(effect, mde core.OptFloat) core.OptFloat {
	if !effect.Valid || !mde.Valid || mde.Value <= 0 {
		return core.Missing()
	}
	return core.Some(math.Abs(effect.Value) / mde.Value)
}
