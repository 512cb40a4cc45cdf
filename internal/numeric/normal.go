package numeric

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"goregime/domain/core"
)

// Fixed normal quantiles used by the rough MDE
const (
	ZAlpha005TwoSided = 1.959964
	ZPower080         = 0.841621
)

// NormalCDF is the standard normal cumulative distribution function
func NormalCDF(z float64) float64 {
	return distuv.UnitNormal.CDF(z)
}

// TwoSidedNormalP returns 2*(1-Phi(|z|)), missing when z is missing
func TwoSidedNormalP(z core.OptFloat) core.OptFloat {
	if !z.Valid {
		return core.Missing()
	}
	return core.Some(2 * distuv.UnitNormal.Survival(math.Abs(z.Value)))
}
