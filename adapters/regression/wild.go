package regression

import (
	"math"
	"math/rand"

	"goregime/domain/core"
	"goregime/internal/numeric"
)

// WildClusterP is the wild-cluster bootstrap p-value of beta with the null
// imposed. Restricted residuals y - mean(y) are flipped by one Rademacher
// sign per cluster (clusters in ascending key order), the model is refit,
// and the cluster-robust t of each draw is compared with the observed t:
// p = (1 + #{|t*| >= |t|}) / (1 + usable draws). draws <= 0 disables it.
func WildClusterP(y, d []float64, clusters []string, draws int, rng *rand.Rand) core.OptFloat {
	if draws <= 0 || rng == nil {
		return core.Missing()
	}
	fit, err := FitOLS(y, d)
	if err != nil {
		return core.Missing()
	}
	obs, err := fit.ClusterRobust(clusters)
	if err != nil || !obs.Z.Valid {
		return core.Missing()
	}

	ybar := numeric.Mean(y).Value
	order := sortedClusters(clusters)
	pos := make(map[string]int, len(order))
	for i, c := range order {
		pos[c] = i
	}
	member := make([]int, len(y))
	for i, c := range clusters {
		member[i] = pos[c]
	}

	signs := make([]float64, len(order))
	ystar := make([]float64, len(y))
	tObs := math.Abs(obs.Z.Value)
	extreme, usable := 0, 0

	for b := 0; b < draws; b++ {
		for g := range signs {
			signs[g] = 1
			if rng.Intn(2) == 0 {
				signs[g] = -1
			}
		}
		for i := range y {
			ystar[i] = ybar + signs[member[i]]*(y[i]-ybar)
		}
		f, err := FitOLS(ystar, d)
		if err != nil {
			continue
		}
		est, err := f.ClusterRobust(clusters)
		if err != nil || !est.Z.Valid {
			continue
		}
		usable++
		if math.Abs(est.Z.Value) >= tObs {
			extreme++
		}
	}

	if usable == 0 {
		return core.Missing()
	}
	return core.Some(float64(1+extreme) / float64(1+usable))
}
