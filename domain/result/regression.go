package result

import (
	"strconv"

	"goregime/domain/core"
	"goregime/domain/observation"
	"goregime/internal/evidence"
)

// RegressionRow is the OLS coefficient on the group indicator with two
// independent variance estimates.
type RegressionRow struct {
	Meta observation.MetricMeta
	NObs int
	NA   int
	NB   int

	Beta core.OptFloat

	HACLags int
	HACSE   core.OptFloat
	HACZ    core.OptFloat
	HACP    core.OptFloat

	ClusterSE core.OptFloat
	ClusterZ  core.OptFloat
	ClusterP  core.OptFloat
	ClustersA int
	ClustersB int
	Clusters  int

	WildDraws int
	WildSeed  int64
	WildP     core.OptFloat

	MDE           core.OptFloat
	EffectOverMDE core.OptFloat
}

// InferenceRow joins a RegressionRow with the permutation row of the same
// metric and records where the two disagree.
type InferenceRow struct {
	RegressionRow

	PermEffect core.OptFloat
	PermP      core.OptFloat
	PermQ      core.OptFloat
	PermTier   evidence.Tier

	HACPLt005         core.OptBool
	HACPLt010         core.OptBool
	PermQLt005        core.OptBool
	PermQLt010        core.OptBool
	SigDisagree005    core.OptBool
	SigDisagree010    core.OptBool
	DirectionDisagree core.OptBool
}

// InferenceHeader is the column layout of InferenceRow tables
var InferenceHeader = []string{
	"metric_id", "metric_label", "metric_family", "agg_kind", "units",
	"n_obs", "n_a", "n_b", "effect_a_minus_b",
	"hac_nw_lags", "hac_nw_se", "hac_nw_z", "hac_nw_p_two_sided_norm",
	"cluster_se", "cluster_z", "cluster_p_two_sided_norm", "clusters_a", "clusters_b", "clusters_total",
	"wild_cluster_draws", "wild_cluster_seed", "wild_cluster_p",
	"rough_mde_abs_alpha005_power080", "rough_effect_over_mde_abs", "mde_note",
	"hac_nw_p_lt_005", "hac_nw_p_lt_010",
	"perm_effect_a_minus_b", "perm_p_two_sided", "perm_q_bh_fdr", "perm_tier",
	"perm_q_lt_005", "perm_q_lt_010",
	"sig_disagree_005", "sig_disagree_010", "direction_disagree",
}

// Record renders the row in InferenceHeader order
func (r InferenceRow) Record() []string {
	permTier := ""
	if r.PermTier != "" {
		permTier = string(r.PermTier)
	}
	return []string{
		r.Meta.ID.String(), r.Meta.Label, r.Meta.Family, r.Meta.AggKind, r.Meta.Units,
		strconv.Itoa(r.NObs), strconv.Itoa(r.NA), strconv.Itoa(r.NB), r.Beta.Format(),
		strconv.Itoa(r.HACLags), r.HACSE.Format(), r.HACZ.Format(), r.HACP.Format(),
		r.ClusterSE.Format(), r.ClusterZ.Format(), r.ClusterP.Format(),
		strconv.Itoa(r.ClustersA), strconv.Itoa(r.ClustersB), strconv.Itoa(r.Clusters),
		strconv.Itoa(r.WildDraws), strconv.FormatInt(r.WildSeed, 10), r.WildP.Format(),
		r.MDE.Format(), r.EffectOverMDE.Format(), MDENote,
		r.HACPLt005.Format(), r.HACPLt010.Format(),
		r.PermEffect.Format(), r.PermP.Format(), r.PermQ.Format(), permTier,
		r.PermQLt005.Format(), r.PermQLt010.Format(),
		r.SigDisagree005.Format(), r.SigDisagree010.Format(), r.DirectionDisagree.Format(),
	}
}

// StabilityRow is the wild-cluster p of one metric under one (seed, draws) cell
type StabilityRow struct {
	MetricID core.MetricID
	Seed     int64
	Draws    int
	Beta     core.OptFloat
	WildP    core.OptFloat
}

// StabilityHeader is the column layout of StabilityRow tables
var StabilityHeader = []string{"metric_id", "seed", "draws", "effect_a_minus_b", "wild_cluster_p"}

// Record renders the row in StabilityHeader order
func (r StabilityRow) Record() []string {
	return []string{
		r.MetricID.String(), strconv.FormatInt(r.Seed, 10), strconv.Itoa(r.Draws), r.Beta.Format(), r.WildP.Format(),
	}
}

// StabilityStatus summarizes a metric's wild-cluster p across reruns
type StabilityStatus string

const (
	RobustSignificant    StabilityStatus = "robust_significant"
	RobustNotSignificant StabilityStatus = "robust_not_significant"
	Unstable             StabilityStatus = "unstable"
	StabilityMissing     StabilityStatus = "missing"
)

// StabilitySummaryRow condenses the StabilityRows of one metric
type StabilitySummaryRow struct {
	MetricID  core.MetricID
	NRuns     int
	MinP      core.OptFloat
	MaxP      core.OptFloat
	Status005 StabilityStatus
	Status010 StabilityStatus
}

// StabilitySummaryHeader is the column layout of StabilitySummaryRow tables
var StabilitySummaryHeader = []string{"metric_id", "n_runs", "min_p", "max_p", "status_005", "status_010"}

// Record renders the row in StabilitySummaryHeader order
func (r StabilitySummaryRow) Record() []string {
	return []string{
		r.MetricID.String(), strconv.Itoa(r.NRuns), r.MinP.Format(), r.MaxP.Format(), string(r.Status005), string(r.Status010),
	}
}
