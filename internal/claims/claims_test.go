package claims

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goregime/domain/core"
	"goregime/domain/observation"
	"goregime/domain/result"
	"goregime/internal/evidence"
)

func source(analysis result.Analysis, id, subgroup string, tier evidence.Tier, effect float64, n int) result.ClaimSource {
	return result.ClaimSource{
		Analysis: analysis,
		Meta:     observation.MetricMeta{ID: core.MetricID(id), Label: id},
		Subgroup: subgroup,
		Effect:   core.Some(effect),
		Q:        core.Some(0.01),
		N:        n,
		Tier:     tier,
	}
}

func inference(id string, beta, hacP float64) result.InferenceRow {
	return result.InferenceRow{RegressionRow: result.RegressionRow{
		Meta: observation.MetricMeta{ID: core.MetricID(id)},
		Beta: core.Some(beta),
		HACP: core.Some(hacP),
	}}
}

func TestBuild_TierDeltas(t *testing.T) {
	in := Inputs{
		Baseline: []result.ClaimSource{
			source(result.AnalysisTermParty, "gdp", "all", evidence.Supportive, 1, 20),
			source(result.AnalysisTermParty, "cpi", "all", evidence.Confirmatory, 1, 20),
			source(result.AnalysisWithinUnified, "gdp", "R", evidence.Exploratory, 1, 4),
			source(result.AnalysisWithinUnified, "gdp", "all", evidence.Exploratory, 1, 8),
		},
		Strict: []result.ClaimSource{
			source(result.AnalysisTermParty, "gdp", "all", evidence.Confirmatory, 1, 20),
			source(result.AnalysisTermParty, "cpi", "all", evidence.Missing, 1, 20),
			source(result.AnalysisWithinUnified, "gdp", "all", evidence.Exploratory, 1, 8),
		},
	}

	rows := Build(in, Params{MinN: 6})
	require.Len(t, rows, 4)

	assert.Equal(t, core.MetricID("cpi"), rows[0].Meta.ID)
	assert.Equal(t, evidence.Incomparable, rows[0].TierDelta)
	assert.False(t, rows[0].TierDeltaRank.Valid)

	assert.Equal(t, core.MetricID("gdp"), rows[1].Meta.ID)
	assert.Equal(t, evidence.Stronger, rows[1].TierDelta)
	assert.Equal(t, core.SomeInt(1), rows[1].TierDeltaRank)

	assert.Equal(t, result.AnalysisWithinUnified, rows[2].Analysis)
	assert.Equal(t, "all", rows[2].Subgroup)
	assert.Equal(t, evidence.Same, rows[2].TierDelta)
	assert.False(t, rows[2].SmallCellWarning)

	r := rows[3]
	assert.Equal(t, "R", r.Subgroup)
	assert.Equal(t, evidence.Missing, r.TierStrict, "strict side absent")
	assert.Equal(t, evidence.Incomparable, r.TierDelta)
	assert.True(t, r.SmallCellWarning)

	for _, row := range rows {
		assert.False(t, row.PublicationMode)
		assert.Len(t, row.Record(), len(result.ClaimHeader))
	}
}

func TestPublicationTier(t *testing.T) {
	p := Params{PublicationMode: true, HACPThreshold: 0.05}
	ok := inference("gdp", 1.5, 0.01)
	flipped := inference("gdp", -1.5, 0.01)
	weak := inference("gdp", 1.5, 0.2)
	noP := result.InferenceRow{RegressionRow: result.RegressionRow{Beta: core.Some(1)}}

	cases := []struct {
		name     string
		analysis result.Analysis
		tier     evidence.Tier
		inf      *result.InferenceRow
		stab     result.StabilityStatus
		gate     bool
		want     evidence.Tier
		reason   result.GateReason
	}{
		{"passes", result.AnalysisTermParty, evidence.Confirmatory, &ok, "", false, evidence.Confirmatory, result.GatePassed},
		{"no regression row", result.AnalysisTermParty, evidence.Confirmatory, nil, "", false, evidence.Supportive, result.GateHACMissing},
		{"sign flip", result.AnalysisTermParty, evidence.Confirmatory, &flipped, "", false, evidence.Exploratory, result.GateDirectionDisagree},
		{"hac too large", result.AnalysisTermParty, evidence.Confirmatory, &weak, "", false, evidence.Supportive, result.GateHACNotSignificant},
		{"hac missing p", result.AnalysisTermParty, evidence.Confirmatory, &noP, "", false, evidence.Supportive, result.GateHACNotSignificant},
		{"unstable ignored without gate", result.AnalysisTermParty, evidence.Confirmatory, &ok, result.Unstable, false, evidence.Confirmatory, result.GatePassed},
		{"unstable with gate", result.AnalysisTermParty, evidence.Confirmatory, &ok, result.Unstable, true, evidence.Supportive, result.GateUnstable},
		{"supportive untouched", result.AnalysisTermParty, evidence.Supportive, nil, "", false, evidence.Supportive, result.GateNotConfirmatory},
		{"within not gated", result.AnalysisWithinUnified, evidence.Confirmatory, nil, "", true, evidence.Confirmatory, result.GateNotGated},
		{"binary not gated", result.AnalysisUnifiedBinary, evidence.Confirmatory, &flipped, "", true, evidence.Confirmatory, result.GateNotGated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pp := p
			pp.StabilityGate = tc.gate
			tier, reason := PublicationTier(tc.analysis, tc.tier, core.Some(2), tc.inf, tc.stab, pp)
			assert.Equal(t, tc.want, tier)
			assert.Equal(t, tc.reason, reason)
		})
	}
}

func TestBuild_PublicationMode(t *testing.T) {
	in := Inputs{
		Baseline: []result.ClaimSource{
			source(result.AnalysisTermParty, "gdp", "all", evidence.Confirmatory, 2, 20),
			source(result.AnalysisTermParty, "sp500", "all", evidence.Confirmatory, 2, 20),
		},
		Strict: []result.ClaimSource{
			source(result.AnalysisTermParty, "gdp", "all", evidence.Confirmatory, 2, 20),
			source(result.AnalysisTermParty, "sp500", "all", evidence.Confirmatory, -2, 20),
		},
		Inference: []result.InferenceRow{inference("gdp", 2, 0.01), inference("sp500", 2, 0.01)},
		Stability: []result.StabilitySummaryRow{
			{MetricID: "gdp", Status005: result.RobustSignificant},
			{MetricID: "sp500", Status005: result.Unstable},
		},
	}

	rows := Build(in, Params{PublicationMode: true, HACPThreshold: 0.05, StabilityGate: true, MinN: 10})
	require.Len(t, rows, 2)

	gdp := rows[0]
	assert.True(t, gdp.PublicationMode)
	assert.Equal(t, core.Some(2), gdp.HACBeta)
	assert.Equal(t, result.RobustSignificant, gdp.StabilityStatus)
	assert.Equal(t, evidence.Confirmatory, gdp.TierStrictPublication)
	assert.Equal(t, result.GatePassed, gdp.ReasonStrictPublication)
	assert.Equal(t, evidence.Confirmatory, gdp.BestTier())

	sp := rows[1]
	assert.Equal(t, evidence.Supportive, sp.TierBaselinePublication)
	assert.Equal(t, result.GateUnstable, sp.ReasonBaselinePublication)
	assert.Equal(t, evidence.Exploratory, sp.TierStrictPublication)
	assert.Equal(t, result.GateDirectionDisagree, sp.ReasonStrictPublication)
	assert.Equal(t, evidence.Exploratory, sp.BestTier())
}

func TestBuild_SmallCellUsesRowThreshold(t *testing.T) {
	sized := func(s result.ClaimSource, minN int) result.ClaimSource {
		s.MinN = core.SomeInt(minN)
		return s
	}
	in := Inputs{
		Baseline: []result.ClaimSource{
			sized(source(result.AnalysisTermParty, "gdp", "all", evidence.Supportive, 1, 10), 12),
			sized(source(result.AnalysisWithinUnified, "gdp", "D", evidence.Confirmatory, 1, 7), 5),
			source(result.AnalysisWithinUnified, "gdp", "R", evidence.Confirmatory, 1, 7),
		},
		Strict: []result.ClaimSource{
			sized(source(result.AnalysisTermParty, "gdp", "all", evidence.Supportive, 1, 16), 12),
			sized(source(result.AnalysisWithinUnified, "gdp", "D", evidence.Confirmatory, 1, 4), 3),
		},
	}

	rows := Build(in, Params{MinN: 12})
	require.Len(t, rows, 3)

	assert.Equal(t, result.AnalysisTermParty, rows[0].Analysis)
	assert.True(t, rows[0].SmallCellWarning, "baseline n=10 is below its own min_n=12")

	assert.Equal(t, "D", rows[1].Subgroup)
	assert.False(t, rows[1].SmallCellWarning, "within sides clear their own min_n")

	assert.Equal(t, "R", rows[2].Subgroup)
	assert.True(t, rows[2].SmallCellWarning, "no recorded min_n falls back to Params.MinN")
}
