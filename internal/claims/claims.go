// Package claims reconciles baseline and strict analysis runs into one claims
// table and applies the publication gate to term-level rows.
package claims

import (
	"sort"

	"goregime/domain/core"
	"goregime/domain/result"
	"goregime/internal/evidence"
	"goregime/internal/numeric"
)

// Params configures reconciliation and the publication gate
type Params struct {
	PublicationMode bool
	HACPThreshold   float64 // confirmatory needs HAC p below this
	StabilityGate   bool    // downgrade rows whose wild-cluster p is unstable at 0.05
	MinN            int     // size threshold for source rows that carry none of their own
}

// Inputs are the analysis outputs joined into the claims table. Inference
// and Stability only matter in publication mode.
type Inputs struct {
	Baseline  []result.ClaimSource
	Strict    []result.ClaimSource
	Inference []result.InferenceRow
	Stability []result.StabilitySummaryRow
}

// Build joins baseline and strict rows on (analysis, metric, subgroup).
// A key present on one side only still yields a row; the other side's tier
// is missing. Rows are ordered by analysis, metric id, then subgroup with
// "all" first.
func Build(in Inputs, p Params) []result.ClaimRow {
	rows := make(map[result.ClaimKey]*result.ClaimRow)
	minN := make(map[result.ClaimKey]*[2]int)
	var keys []result.ClaimKey

	get := func(s result.ClaimSource) *result.ClaimRow {
		k := s.Key()
		if r, ok := rows[k]; ok {
			return r
		}
		r := &result.ClaimRow{
			Analysis:     s.Analysis,
			Meta:         s.Meta,
			Subgroup:     s.Subgroup,
			TierBaseline: evidence.Missing,
			TierStrict:   evidence.Missing,
		}
		rows[k] = r
		minN[k] = &[2]int{p.MinN, p.MinN}
		keys = append(keys, k)
		return r
	}
	threshold := func(s result.ClaimSource) int {
		if s.MinN.Valid {
			return s.MinN.Value
		}
		return p.MinN
	}

	for _, s := range in.Baseline {
		r := get(s)
		r.TierBaseline = tierOrMissing(s.Tier)
		r.EffectBaseline, r.QBaseline, r.NBaseline = s.Effect, s.Q, s.N
		r.MDEBaseline, r.EffectOverMDEBaseline = s.MDE, s.EffectOverMDE
		minN[s.Key()][0] = threshold(s)
	}
	for _, s := range in.Strict {
		r := get(s)
		r.TierStrict = tierOrMissing(s.Tier)
		r.EffectStrict, r.QStrict, r.NStrict = s.Effect, s.Q, s.N
		r.MDEStrict, r.EffectOverMDEStrict = s.MDE, s.EffectOverMDE
		minN[s.Key()][1] = threshold(s)
	}

	inference := make(map[core.MetricID]*result.InferenceRow, len(in.Inference))
	for i := range in.Inference {
		inference[in.Inference[i].Meta.ID] = &in.Inference[i]
	}
	stability := make(map[core.MetricID]result.StabilityStatus, len(in.Stability))
	for _, s := range in.Stability {
		stability[s.MetricID] = s.Status005
	}

	sort.Slice(keys, func(i, j int) bool { return lessKey(keys[i], keys[j]) })
	out := make([]result.ClaimRow, 0, len(keys))
	for _, k := range keys {
		r := rows[k]
		r.TierDeltaRank, r.TierDelta = evidence.Compare(r.TierBaseline, r.TierStrict)
		r.SmallCellWarning = smallCell(*r, minN[k][0], minN[k][1])
		if p.PublicationMode {
			applyGate(r, inference[k.MetricID], stability[k.MetricID], p)
		}
		out = append(out, *r)
	}
	return out
}

// PublicationTier gates one tier. Only confirmatory term-level rows can be
// downgraded: the regression row must exist, agree in sign with effect and
// have HAC p below the threshold, and with the stability gate on its
// wild-cluster p must not be unstable.
func PublicationTier(analysis result.Analysis, tier evidence.Tier, effect core.OptFloat, inf *result.InferenceRow, stability result.StabilityStatus, p Params) (evidence.Tier, result.GateReason) {
	if analysis != result.AnalysisTermParty {
		return tier, result.GateNotGated
	}
	if tier != evidence.Confirmatory {
		return tier, result.GateNotConfirmatory
	}
	if inf == nil {
		return evidence.Supportive, result.GateHACMissing
	}
	sb, se := numeric.Sign(inf.Beta), numeric.Sign(effect)
	if sb != 0 && se != 0 && sb != se {
		return evidence.Exploratory, result.GateDirectionDisagree
	}
	if !inf.HACP.Valid || inf.HACP.Value >= p.HACPThreshold {
		return evidence.Supportive, result.GateHACNotSignificant
	}
	if p.StabilityGate && stability == result.Unstable {
		return evidence.Supportive, result.GateUnstable
	}
	return evidence.Confirmatory, result.GatePassed
}

func applyGate(r *result.ClaimRow, inf *result.InferenceRow, stability result.StabilityStatus, p Params) {
	r.PublicationMode = true
	r.StabilityStatus = stability
	if inf != nil {
		r.HACBeta, r.HACP = inf.Beta, inf.HACP
	}
	r.TierBaselinePublication, r.ReasonBaselinePublication =
		PublicationTier(r.Analysis, r.TierBaseline, r.EffectBaseline, inf, stability, p)
	r.TierStrictPublication, r.ReasonStrictPublication =
		PublicationTier(r.Analysis, r.TierStrict, r.EffectStrict, inf, stability, p)
}

// smallCell flags rows where a side that produced a statistic did so on
// fewer observations than that side's own size threshold.
func smallCell(r result.ClaimRow, baselineMinN, strictMinN int) bool {
	if r.TierBaseline != evidence.Missing && r.NBaseline < baselineMinN {
		return true
	}
	return r.TierStrict != evidence.Missing && r.NStrict < strictMinN
}

func tierOrMissing(t evidence.Tier) evidence.Tier {
	if t == "" {
		return evidence.Missing
	}
	return t
}

func lessKey(a, b result.ClaimKey) bool {
	if a.Analysis != b.Analysis {
		return a.Analysis < b.Analysis
	}
	if a.MetricID != b.MetricID {
		return a.MetricID < b.MetricID
	}
	if (a.Subgroup == result.SubgroupAll) != (b.Subgroup == result.SubgroupAll) {
		return a.Subgroup == result.SubgroupAll
	}
	return a.Subgroup < b.Subgroup
}
