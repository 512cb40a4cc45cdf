package tabular

import (
	"strconv"

	"goregime/domain/core"
	"goregime/domain/observation"
	"goregime/domain/result"
	"goregime/internal/evidence"
)

// ReadClaimSources reads a permutation or within table written by an
// earlier run. Rows without an analysis column take fallback.
func ReadClaimSources(path string, fallback result.Analysis) ([]result.ClaimSource, error) {
	s, err := ReadCSV(path)
	if err != nil {
		return nil, err
	}
	return ClaimSourcesFromSheet(s, fallback)
}

// ClaimSourcesFromSheet is ReadClaimSources over an already-read sheet
func ClaimSourcesFromSheet(s *Sheet, fallback result.Analysis) ([]result.ClaimSource, error) {
	idCol, err := s.Require("metric_id")
	if err != nil {
		return nil, err
	}
	tierCol, err := s.Require("evidence_tier", "tier")
	if err != nil {
		return nil, err
	}
	effectCol, err := s.Require("observed_effect", "effect")
	if err != nil {
		return nil, err
	}
	analysisCol, _ := s.Column("analysis")
	subgroupCol, _ := s.Column("subgroup")
	nCol, _ := s.Column("n_subjects", "n_obs")

	out := make([]result.ClaimSource, 0, len(s.Rows))
	for _, r := range s.Rows {
		id, err := core.ParseMetricID(r[idCol])
		if err != nil {
			continue
		}
		analysis := fallback
		if analysisCol != "" && r[analysisCol] != "" {
			analysis = result.Analysis(r[analysisCol])
		}
		subgroup := result.SubgroupAll
		if subgroupCol != "" && r[subgroupCol] != "" {
			subgroup = r[subgroupCol]
		}
		n := 0
		if nCol != "" {
			n, _ = strconv.Atoi(r[nCol])
		}
		out = append(out, result.ClaimSource{
			Analysis: analysis,
			Meta: observation.MetricMeta{
				ID:     id,
				Label:  firstNonEmpty(r["metric_label"], id.String()),
				Family: r["metric_family"],
			},
			Subgroup:      subgroup,
			Effect:        core.ParseOptFloat(r[effectCol]),
			Q:             core.ParseOptFloat(r["q_bh_fdr"]),
			N:             n,
			MinN:          core.ParseOptInt(r["min_n_threshold"]),
			MDE:           core.ParseOptFloat(r["rough_mde_abs_alpha005_power080"]),
			EffectOverMDE: core.ParseOptFloat(r["rough_effect_over_mde_abs"]),
			Tier:          evidence.ParseTier(r[tierCol]),
		})
	}
	return out, nil
}

// ReadPermutationRows reads back the fields of a permutation table that the
// inference table joins on
func ReadPermutationRows(path string) ([]result.PermutationRow, error) {
	s, err := ReadCSV(path)
	if err != nil {
		return nil, err
	}
	sources, err := ClaimSourcesFromSheet(s, result.AnalysisTermParty)
	if err != nil {
		return nil, err
	}
	pCol, err := s.Require("p_two_sided")
	if err != nil {
		return nil, err
	}

	out := make([]result.PermutationRow, 0, len(sources))
	i := 0
	for _, r := range s.Rows {
		if _, err := core.ParseMetricID(r["metric_id"]); err != nil {
			continue
		}
		src := sources[i]
		i++
		out = append(out, result.PermutationRow{
			Analysis: src.Analysis,
			Meta:     src.Meta,
			Subgroup: src.Subgroup,
			NObs:     src.N,
			Observed: src.Effect,
			P:        core.ParseOptFloat(r[pCol]),
			Q:        src.Q,
			Tier:     src.Tier,
		})
	}
	return out, nil
}

// ReadInferenceRows reads back the fields of an inference table that the
// publication gate uses.
func ReadInferenceRows(path string) ([]result.InferenceRow, error) {
	s, err := ReadCSV(path)
	if err != nil {
		return nil, err
	}
	idCol, err := s.Require("metric_id")
	if err != nil {
		return nil, err
	}
	betaCol, err := s.Require("effect_a_minus_b")
	if err != nil {
		return nil, err
	}
	hacCol, err := s.Require("hac_nw_p_two_sided_norm")
	if err != nil {
		return nil, err
	}

	var out []result.InferenceRow
	for _, r := range s.Rows {
		id, err := core.ParseMetricID(r[idCol])
		if err != nil {
			continue
		}
		n, _ := strconv.Atoi(r["n_obs"])
		out = append(out, result.InferenceRow{RegressionRow: result.RegressionRow{
			Meta:  observation.MetricMeta{ID: id, Label: firstNonEmpty(r["metric_label"], id.String())},
			NObs:  n,
			Beta:  core.ParseOptFloat(r[betaCol]),
			HACP:  core.ParseOptFloat(r[hacCol]),
			WildP: core.ParseOptFloat(r["wild_cluster_p"]),
		}})
	}
	return out, nil
}

// ReadStabilitySummary reads a stability summary table
func ReadStabilitySummary(path string) ([]result.StabilitySummaryRow, error) {
	s, err := ReadCSV(path)
	if err != nil {
		return nil, err
	}
	idCol, err := s.Require("metric_id")
	if err != nil {
		return nil, err
	}
	statusCol, err := s.Require("status_005")
	if err != nil {
		return nil, err
	}

	var out []result.StabilitySummaryRow
	for _, r := range s.Rows {
		id, err := core.ParseMetricID(r[idCol])
		if err != nil {
			continue
		}
		n, _ := strconv.Atoi(r["n_runs"])
		out = append(out, result.StabilitySummaryRow{
			MetricID:  id,
			NRuns:     n,
			MinP:      core.ParseOptFloat(r["min_p"]),
			MaxP:      core.ParseOptFloat(r["max_p"]),
			Status005: parseStatus(r[statusCol]),
			Status010: parseStatus(r["status_010"]),
		})
	}
	return out, nil
}

func parseStatus(s string) result.StabilityStatus {
	switch st := result.StabilityStatus(s); st {
	case result.RobustSignificant, result.RobustNotSignificant, result.Unstable:
		return st
	}
	return result.StabilityMissing
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
