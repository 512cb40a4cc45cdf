package regression

import (
	"sort"

	"goregime/domain/core"
	"goregime/internal/numeric"
)

// ClusterRobust returns the CR1 cluster-robust standard error of beta:
// scores are summed within cluster and the meat is scaled by
// G/(G-1) * (n-1)/(n-2). Fewer than two clusters is ErrTooFewClusters.
func (f *Fit) ClusterRobust(clusters []string) (Estimate, error) {
	n := f.N()
	if len(clusters) != n {
		return Estimate{}, core.NewValidationError("clusters", "length differs from observations")
	}

	sums := make(map[string][2]float64)
	for i, u := range f.Residuals {
		s := f.score(i, u)
		acc := sums[clusters[i]]
		acc[0] += s[0]
		acc[1] += s[1]
		sums[clusters[i]] = acc
	}
	g := len(sums)
	if g < 2 {
		return Estimate{}, core.ErrTooFewClusters
	}

	var meat numeric.Mat2
	for _, s := range sums {
		for a := 0; a < 2; a++ {
			for b := 0; b < 2; b++ {
				meat[a][b] += s[a] * s[b]
			}
		}
	}
	scale := float64(g) / float64(g-1) * float64(n-1) / float64(n-2)
	for a := 0; a < 2; a++ {
		for b := 0; b < 2; b++ {
			meat[a][b] *= scale
		}
	}

	v := numeric.Sandwich(f.XtXInv, meat)
	return estimateFromVariance(f.Beta, v[1][1])
}

// ClusterCounts reports distinct clusters on each side of the indicator and overall
func ClusterCounts(d []float64, clusters []string) (a, b, total int) {
	sa := make(map[string]bool)
	sb := make(map[string]bool)
	all := make(map[string]bool)
	for i, c := range clusters {
		all[c] = true
		if d[i] == 1 {
			sa[c] = true
		} else {
			sb[c] = true
		}
	}
	return len(sa), len(sb), len(all)
}

// sortedClusters lists distinct cluster keys in ascending order
func sortedClusters(clusters []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range clusters {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}
