package battery

import (
	"math/rand"

	"goregime/domain/core"
	"goregime/internal/numeric"
)

// Percentiles of the reported 95% bootstrap interval
const (
	ciLowQuantile  = 0.025
	ciHighQuantile = 0.975
)

// BootstrapDiffCI resamples each group with replacement at its own size,
// group a first then group b, and returns the 2.5/97.5 percentiles of
// mean(a*) - mean(b*). Empty groups or samples <= 0 give missing bounds.
func BootstrapDiffCI(a, b []float64, samples int, rng *rand.Rand) (lo, hi core.OptFloat) {
	if len(a) == 0 || len(b) == 0 || samples <= 0 {
		return core.Missing(), core.Missing()
	}
	stats := make([]float64, 0, samples)
	for s := 0; s < samples; s++ {
		stats = append(stats, resampleMean(a, rng)-resampleMean(b, rng))
	}
	return numeric.Percentile(stats, ciLowQuantile), numeric.Percentile(stats, ciHighQuantile)
}

// BootstrapMeanCI is the single-sample variant: the percentile interval of
// the resampled mean.
func BootstrapMeanCI(xs []float64, samples int, rng *rand.Rand) (lo, hi core.OptFloat) {
	if len(xs) == 0 || samples <= 0 {
		return core.Missing(), core.Missing()
	}
	stats := make([]float64, 0, samples)
	for s := 0; s < samples; s++ {
		stats = append(stats, resampleMean(xs, rng))
	}
	return numeric.Percentile(stats, ciLowQuantile), numeric.Percentile(stats, ciHighQuantile)
}

func resampleMean(xs []float64, rng *rand.Rand) float64 {
	n := len(xs)
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += xs[rng.Intn(n)]
	}
	return sum / float64(n)
}
