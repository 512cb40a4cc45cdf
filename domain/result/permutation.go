// Package result defines the typed output rows of each analysis and their
// tabular column layout.
package result

import (
	"strconv"

	"goregime/domain/core"
	"goregime/domain/observation"
	"goregime/internal/evidence"
)

// Analysis names a family of rows that share one BH pass
type Analysis string

const (
	AnalysisTermParty     Analysis = "term_party"
	AnalysisWithinUnified Analysis = "within_unified"
	AnalysisUnifiedBinary Analysis = "congress_unified_binary"
)

// MDENote is written next to every MDE ratio. The ratio is a diagnostic of
// power, not a decision rule.
const MDENote = "diagnostic_only"

// SubgroupAll is the subgroup label of rows computed over every subject
const SubgroupAll = "all"

// PermutationRow is one metric of a group-difference permutation analysis
type PermutationRow struct {
	Analysis Analysis
	Meta     observation.MetricMeta
	Subgroup string
	GroupA   string
	GroupB   string

	NObs             int
	NA               int
	NB               int
	ClustersWithBoth int

	Observed core.OptFloat // mean(A) - mean(B)
	PermMean core.OptFloat
	PermStd  core.OptFloat
	Z        core.OptFloat
	CILow    core.OptFloat
	CIHigh   core.OptFloat
	P        core.OptFloat
	Q        core.OptFloat

	Tier           evidence.Tier
	CIExcludesZero core.OptBool
	MDE            core.OptFloat
	EffectOverMDE  core.OptFloat

	Thresholds       evidence.Thresholds
	Permutations     int
	BootstrapSamples int
	Seed             int64
	BlockSize        int
	MinBlockKey      core.OptInt
	MaxBlockKey      core.OptInt
}

// PermutationHeader is the column layout of PermutationRow tables
var PermutationHeader = []string{
	"analysis", "metric_id", "metric_label", "metric_family", "agg_kind", "units", "subgroup",
	"group_a", "group_b", "n_obs", "n_a", "n_b", "clusters_with_both",
	"observed_effect", "perm_mean", "perm_std", "z_score",
	"bootstrap_ci95_low", "bootstrap_ci95_high", "ci_excludes_zero",
	"p_two_sided", "q_bh_fdr", "evidence_tier",
	"rough_mde_abs_alpha005_power080", "rough_effect_over_mde_abs", "mde_note",
	"q_threshold", "supportive_q_threshold", "min_n_threshold",
	"permutations", "bootstrap_samples", "seed", "block_size",
	"min_block_key", "max_block_key",
}

// Record renders the row in PermutationHeader order
func (r PermutationRow) Record() []string {
	return []string{
		string(r.Analysis), r.Meta.ID.String(), r.Meta.Label, r.Meta.Family, r.Meta.AggKind, r.Meta.Units, r.Subgroup,
		r.GroupA, r.GroupB, strconv.Itoa(r.NObs), strconv.Itoa(r.NA), strconv.Itoa(r.NB), strconv.Itoa(r.ClustersWithBoth),
		r.Observed.Format(), r.PermMean.Format(), r.PermStd.Format(), r.Z.Format(),
		r.CILow.Format(), r.CIHigh.Format(), r.CIExcludesZero.Format(),
		r.P.Format(), r.Q.Format(), string(r.Tier),
		r.MDE.Format(), r.EffectOverMDE.Format(), MDENote,
		core.Some(r.Thresholds.QThreshold).Format(), core.Some(r.Thresholds.SupportiveQ).Format(), strconv.Itoa(r.Thresholds.MinN),
		strconv.Itoa(r.Permutations), strconv.Itoa(r.BootstrapSamples), strconv.FormatInt(r.Seed, 10), strconv.Itoa(r.BlockSize),
		r.MinBlockKey.Format(), r.MaxBlockKey.Format(),
	}
}

// ClaimSource projects the row onto the fields the claims stage joins on
func (r PermutationRow) ClaimSource() ClaimSource {
	return ClaimSource{
		Analysis:      r.Analysis,
		Meta:          r.Meta,
		Subgroup:      r.Subgroup,
		Effect:        r.Observed,
		Q:             r.Q,
		N:             r.NObs,
		MinN:          core.SomeInt(r.Thresholds.MinN),
		MDE:           r.MDE,
		EffectOverMDE: r.EffectOverMDE,
		Tier:          r.Tier,
	}
}

// WithinRow is one (metric, subgroup) of the within-subject flag test
type WithinRow struct {
	Meta     observation.MetricMeta
	Subgroup string
	FlagA    string
	FlagB    string

	NSubjects int // subjects observed under both flags
	NWindows  int
	NWindowsA int
	NWindowsB int

	Observed core.OptFloat // mean over subjects of mean(A) - mean(B)
	DeltaSD  core.OptFloat
	PermMean core.OptFloat
	PermStd  core.OptFloat
	Z        core.OptFloat
	CILow    core.OptFloat
	CIHigh   core.OptFloat
	P        core.OptFloat
	Q        core.OptFloat

	Tier           evidence.Tier
	CIExcludesZero core.OptBool
	MDE            core.OptFloat
	EffectOverMDE  core.OptFloat

	Thresholds       evidence.Thresholds
	Permutations     int
	BootstrapSamples int
	Seed             int64
	MinWindowDays    int
}

// WithinHeader is the column layout of WithinRow tables
var WithinHeader = []string{
	"analysis", "metric_id", "metric_label", "metric_family", "agg_kind", "units", "subgroup",
	"flag_a", "flag_b", "n_subjects", "n_windows", "n_windows_a", "n_windows_b",
	"observed_effect", "delta_sd", "perm_mean", "perm_std", "z_score",
	"bootstrap_ci95_low", "bootstrap_ci95_high", "ci_excludes_zero",
	"p_two_sided", "q_bh_fdr", "evidence_tier",
	"rough_mde_abs_alpha005_power080", "rough_effect_over_mde_abs", "mde_note",
	"q_threshold", "supportive_q_threshold", "min_n_threshold",
	"permutations", "bootstrap_samples", "seed", "min_window_days",
}

// Record renders the row in WithinHeader order
func (r WithinRow) Record() []string {
	return []string{
		string(AnalysisWithinUnified), r.Meta.ID.String(), r.Meta.Label, r.Meta.Family, r.Meta.AggKind, r.Meta.Units, r.Subgroup,
		r.FlagA, r.FlagB, strconv.Itoa(r.NSubjects), strconv.Itoa(r.NWindows), strconv.Itoa(r.NWindowsA), strconv.Itoa(r.NWindowsB),
		r.Observed.Format(), r.DeltaSD.Format(), r.PermMean.Format(), r.PermStd.Format(), r.Z.Format(),
		r.CILow.Format(), r.CIHigh.Format(), r.CIExcludesZero.Format(),
		r.P.Format(), r.Q.Format(), string(r.Tier),
		r.MDE.Format(), r.EffectOverMDE.Format(), MDENote,
		core.Some(r.Thresholds.QThreshold).Format(), core.Some(r.Thresholds.SupportiveQ).Format(), strconv.Itoa(r.Thresholds.MinN),
		strconv.Itoa(r.Permutations), strconv.Itoa(r.BootstrapSamples), strconv.FormatInt(r.Seed, 10), strconv.Itoa(r.MinWindowDays),
	}
}

// ClaimSource projects the row onto the fields the claims stage joins on
func (r WithinRow) ClaimSource() ClaimSource {
	return ClaimSource{
		Analysis:      AnalysisWithinUnified,
		Meta:          r.Meta,
		Subgroup:      r.Subgroup,
		Effect:        r.Observed,
		Q:             r.Q,
		N:             r.NSubjects,
		MinN:          core.SomeInt(r.Thresholds.MinN),
		MDE:           r.MDE,
		EffectOverMDE: r.EffectOverMDE,
		Tier:          r.Tier,
	}
}
