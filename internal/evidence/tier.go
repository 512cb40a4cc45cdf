// Package evidence maps adjusted q-values and sample sizes to evidence tiers
// and compares tiers across robustness profiles.
package evidence

import (
	"strings"

	"goregime/domain/core"
)

// Tier is a coarse label summarizing statistical strength plus sample-size adequacy
type Tier string

const (
	Confirmatory Tier = "confirmatory"
	Supportive   Tier = "supportive"
	Exploratory  Tier = "exploratory"
	// Missing marks a row whose statistic could not be computed
	Missing Tier = "missing"
)

// Rank orders tiers: confirmatory=2 > supportive=1 > exploratory=0.
// Missing has rank -1 and is not comparable.
func (t Tier) Rank() int {
	switch t {
	case Confirmatory:
		return 2
	case Supportive:
		return 1
	case Exploratory:
		return 0
	}
	return -1
}

// ParseTier reads a tier cell; blank or unknown text is Missing
func ParseTier(s string) Tier {
	switch Tier(strings.TrimSpace(s)) {
	case Confirmatory:
		return Confirmatory
	case Supportive:
		return Supportive
	case Exploratory:
		return Exploratory
	}
	return Missing
}

// Thresholds are the run parameters of the classifier. They are echoed on
// every output row.
type Thresholds struct {
	QThreshold  float64 // confirmatory when q < QThreshold
	SupportiveQ float64 // supportive when q < SupportiveQ
	MinN        int
}

// Classification is a tier plus the CI diagnostic reported alongside it
type Classification struct {
	Tier           Tier
	CIExcludesZero core.OptBool
}

// Classify assigns a tier from q and n.
//
// The bootstrap CI is only used to compute CIExcludesZero, a diagnostic
// column. It never gates the tier: a row with q below threshold and a CI
// straddling zero is still confirmatory.
func Classify(q, ciLow, ciHigh core.OptFloat, n int, th Thresholds) Classification {
	return ClassifySized(q, ciLow, ciHigh, n >= th.MinN, th)
}

// ClassifySized is Classify with the sample-size check already decided by
// the caller, for analyses whose adequacy rule is not a single n >= MinN.
func ClassifySized(q, ciLow, ciHigh core.OptFloat, sizeOK bool, th Thresholds) Classification {
	c := Classification{CIExcludesZero: CIExcludesZero(ciLow, ciHigh), Tier: Exploratory}
	if !q.Valid || !sizeOK {
		return c
	}
	switch {
	case q.Value < th.QThreshold:
		c.Tier = Confirmatory
	case q.Value < th.SupportiveQ:
		c.Tier = Supportive
	}
	return c
}

// CIExcludesZero reports whether [lo, hi] lies strictly on one side of zero
func CIExcludesZero(lo, hi core.OptFloat) core.OptBool {
	if !lo.Valid || !hi.Valid {
		return core.OptBool{}
	}
	return core.SomeBool(lo.Value > 0 || hi.Value < 0)
}

// Delta labels how a strict-profile tier compares to the baseline tier
type Delta string

const (
	Stronger     Delta = "stronger"
	Weaker       Delta = "weaker"
	Same         Delta = "same"
	Incomparable Delta = "incomparable"
)

// Compare returns strict rank minus baseline rank and its label. The rank
// difference is missing when either tier is Missing.
func Compare(baseline, strict Tier) (core.OptInt, Delta) {
	if baseline.Rank() < 0 || strict.Rank() < 0 {
		return core.OptInt{}, Incomparable
	}
	d := strict.Rank() - baseline.Rank()
	switch {
	case d > 0:
		return core.SomeInt(d), Stronger
	case d < 0:
		return core.SomeInt(d), Weaker
	}
	return core.SomeInt(0), Same
}
