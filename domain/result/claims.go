package result

import (
	"strconv"

	"goregime/domain/core"
	"goregime/domain/observation"
	"goregime/internal/evidence"
)

// ClaimSource is the part of a permutation-style row that the claims stage
// needs. Rows read back from earlier runs are parsed into this shape.
type ClaimSource struct {
	Analysis      Analysis
	Meta          observation.MetricMeta
	Subgroup      string
	Effect        core.OptFloat
	Q             core.OptFloat
	N             int
	MinN          core.OptInt // the row's own size threshold, when recorded
	MDE           core.OptFloat
	EffectOverMDE core.OptFloat
	Tier          evidence.Tier
}

// ClaimKey identifies a claim row
type ClaimKey struct {
	Analysis Analysis
	MetricID core.MetricID
	Subgroup string
}

// Key returns the join key of the source row
func (s ClaimSource) Key() ClaimKey {
	return ClaimKey{Analysis: s.Analysis, MetricID: s.Meta.ID, Subgroup: s.Subgroup}
}

// GateReason records why a publication tier differs from, or equals, its input tier
type GateReason string

const (
	GatePassed            GateReason = "passed"
	GateNotConfirmatory   GateReason = "not_confirmatory"
	GateNotGated          GateReason = "not_gated"
	GateHACMissing        GateReason = "hac_missing"
	GateHACNotSignificant GateReason = "hac_not_significant"
	GateDirectionDisagree GateReason = "direction_disagree"
	GateUnstable          GateReason = "unstable_wild_cluster"
)

// ClaimRow joins the baseline and strict runs of one (analysis, metric, subgroup)
type ClaimRow struct {
	Analysis Analysis
	Meta     observation.MetricMeta
	Subgroup string

	TierBaseline  evidence.Tier
	TierStrict    evidence.Tier
	TierDeltaRank core.OptInt
	TierDelta     evidence.Delta

	EffectBaseline core.OptFloat
	EffectStrict   core.OptFloat
	QBaseline      core.OptFloat
	QStrict        core.OptFloat
	NBaseline      int
	NStrict        int

	MDEBaseline           core.OptFloat
	MDEStrict             core.OptFloat
	EffectOverMDEBaseline core.OptFloat
	EffectOverMDEStrict   core.OptFloat
	SmallCellWarning      bool

	PublicationMode           bool
	HACBeta                   core.OptFloat
	HACP                      core.OptFloat
	StabilityStatus           StabilityStatus
	TierBaselinePublication   evidence.Tier
	TierStrictPublication     evidence.Tier
	ReasonBaselinePublication GateReason
	ReasonStrictPublication   GateReason
}

// ClaimHeader is the column layout of ClaimRow tables
var ClaimHeader = []string{
	"analysis", "metric_id", "metric_label", "metric_family", "subgroup",
	"tier_baseline", "tier_strict", "tier_delta_rank", "tier_delta",
	"effect_baseline", "effect_strict", "q_baseline", "q_strict", "n_baseline", "n_strict",
	"mde_baseline", "mde_strict", "effect_over_mde_baseline", "effect_over_mde_strict", "mde_note",
	"small_cell_warning",
	"publication_mode", "hac_effect", "hac_p", "stability_status_005",
	"tier_baseline_publication", "tier_strict_publication",
	"publication_reason_baseline", "publication_reason_strict",
}

// Record renders the row in ClaimHeader order. Publication columns are blank
// outside publication mode.
func (r ClaimRow) Record() []string {
	rec := []string{
		string(r.Analysis), r.Meta.ID.String(), r.Meta.Label, r.Meta.Family, r.Subgroup,
		string(r.TierBaseline), string(r.TierStrict), r.TierDeltaRank.Format(), string(r.TierDelta),
		r.EffectBaseline.Format(), r.EffectStrict.Format(), r.QBaseline.Format(), r.QStrict.Format(),
		strconv.Itoa(r.NBaseline), strconv.Itoa(r.NStrict),
		r.MDEBaseline.Format(), r.MDEStrict.Format(), r.EffectOverMDEBaseline.Format(), r.EffectOverMDEStrict.Format(), MDENote,
		core.SomeBool(r.SmallCellWarning).Format(),
		core.SomeBool(r.PublicationMode).Format(),
	}
	if !r.PublicationMode {
		return append(rec, "", "", "", "", "", "", "")
	}
	return append(rec,
		r.HACBeta.Format(), r.HACP.Format(), string(r.StabilityStatus),
		string(r.TierBaselinePublication), string(r.TierStrictPublication),
		string(r.ReasonBaselinePublication), string(r.ReasonStrictPublication),
	)
}

// BestTier is the most specific tier available on the row: strict
// publication, then strict, then baseline publication, then baseline.
func (r ClaimRow) BestTier() evidence.Tier {
	for _, t := range []evidence.Tier{r.TierStrictPublication, r.TierStrict, r.TierBaselinePublication, r.TierBaseline} {
		if t != "" && t != evidence.Missing {
			return t
		}
	}
	return evidence.Missing
}
