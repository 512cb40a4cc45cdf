// Package regression estimates the group gap as an OLS coefficient on a 0/1
// indicator and attaches serial-correlation and cluster-robust standard
// errors to it.
package regression

import (
	"math"

	"goregime/domain/core"
	"goregime/internal/numeric"
)

// Fit is y = alpha + beta*d + u estimated by OLS
type Fit struct {
	Alpha     float64
	Beta      float64
	D         []float64
	Residuals []float64
	XtXInv    numeric.Mat2
}

// N is the number of observations in the fit
func (f *Fit) N() int {
	return len(f.D)
}

// Estimate is a standard error with its normal z and two-sided p
type Estimate struct {
	SE core.OptFloat
	Z  core.OptFloat
	P  core.OptFloat
}

// FitOLS regresses y on an intercept and the indicator d. It needs at least
// three observations and both indicator values present.
func FitOLS(y, d []float64) (*Fit, error) {
	n := len(y)
	if n != len(d) {
		return nil, core.NewValidationError("d", "length differs from y")
	}
	if n < 3 {
		return nil, core.ErrInsufficientData
	}

	var sd, sdd, sy, sdy float64
	for i := range y {
		sd += d[i]
		sdd += d[i] * d[i]
		sy += y[i]
		sdy += d[i] * y[i]
	}
	if sd == 0 || sd == float64(n) {
		return nil, core.ErrNoVariation
	}

	inv, ok := numeric.Inv2(numeric.Mat2{{float64(n), sd}, {sd, sdd}})
	if !ok {
		return nil, core.ErrSingularMatrix
	}
	alpha := inv[0][0]*sy + inv[0][1]*sdy
	beta := inv[1][0]*sy + inv[1][1]*sdy

	resid := make([]float64, n)
	for i := range y {
		resid[i] = y[i] - alpha - beta*d[i]
	}
	return &Fit{Alpha: alpha, Beta: beta, D: d, Residuals: resid, XtXInv: inv}, nil
}

// estimateFromVariance turns Var(beta) into se/z/p. Tiny negative variances
// from rounding are clamped to zero; anything more negative is an error.
func estimateFromVariance(beta, v float64) (Estimate, error) {
	if v < 0 {
		if v < -numeric.SingularTolerance {
			return Estimate{}, core.ErrNegativeVariance
		}
		v = 0
	}
	est := Estimate{SE: core.Some(math.Sqrt(v))}
	if est.SE.Value > 0 {
		est.Z = core.Some(beta / est.SE.Value)
		est.P = numeric.TwoSidedNormalP(est.Z)
	}
	return est, nil
}

// score is x_i * u_i for x_i = (1, d_i)
func (f *Fit) score(i int, u float64) [2]float64 {
	return [2]float64{u, f.D[i] * u}
}
