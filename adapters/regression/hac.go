package regression

import (
	"goregime/internal/numeric"
)

// NeweyWest returns the HAC standard error of beta with Bartlett weights
// 1 - l/(L+1) for l = 1..L, L = min(lags, n-1). Observations must already be
// in time order.
func (f *Fit) NeweyWest(lags int) (Estimate, error) {
	n := f.N()
	L := lags
	if L > n-1 {
		L = n - 1
	}
	if L < 0 {
		L = 0
	}

	scores := make([][2]float64, n)
	for i, u := range f.Residuals {
		scores[i] = f.score(i, u)
	}

	var meat numeric.Mat2
	addOuter(&meat, scores, 0, 1)
	for l := 1; l <= L; l++ {
		w := 1 - float64(l)/float64(L+1)
		addOuter(&meat, scores, l, w)
	}

	v := numeric.Sandwich(f.XtXInv, meat)
	return estimateFromVariance(f.Beta, v[1][1])
}

// addOuter adds w * (Gamma_l + Gamma_l') to meat, where Gamma_l is the sum
// of s_t s_{t-l}'. For l = 0 the term is added once.
func addOuter(meat *numeric.Mat2, s [][2]float64, l int, w float64) {
	var g numeric.Mat2
	for t := l; t < len(s); t++ {
		for a := 0; a < 2; a++ {
			for b := 0; b < 2; b++ {
				g[a][b] += s[t][a] * s[t-l][b]
			}
		}
	}
	for a := 0; a < 2; a++ {
		for b := 0; b < 2; b++ {
			if l == 0 {
				meat[a][b] += w * g[a][b]
			} else {
				meat[a][b] += w * (g[a][b] + g[b][a])
			}
		}
	}
}
