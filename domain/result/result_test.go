package result

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"goregime/domain/core"
	"goregime/domain/observation"
	"goregime/internal/evidence"
)

func TestRecordsMatchHeaders(t *testing.T) {
	assert.Len(t, PermutationRow{}.Record(), len(PermutationHeader))
	assert.Len(t, WithinRow{}.Record(), len(WithinHeader))
	assert.Len(t, InferenceRow{}.Record(), len(InferenceHeader))
	assert.Len(t, StabilityRow{}.Record(), len(StabilityHeader))
	assert.Len(t, StabilitySummaryRow{}.Record(), len(StabilitySummaryHeader))
	assert.Len(t, ClaimRow{}.Record(), len(ClaimHeader))
	assert.Len(t, ClaimRow{PublicationMode: true}.Record(), len(ClaimHeader))
}

func TestPermutationRow_MissingRendersBlank(t *testing.T) {
	row := PermutationRow{
		Analysis: AnalysisTermParty,
		Meta:     observation.MetricMeta{ID: "gdp"},
		Tier:     evidence.Missing,
		Observed: core.Missing(),
	}
	rec := row.Record()
	col := indexOf(PermutationHeader, "observed_effect")
	assert.Equal(t, "", rec[col])
	assert.Equal(t, "missing", rec[indexOf(PermutationHeader, "evidence_tier")])
	assert.Equal(t, MDENote, rec[indexOf(PermutationHeader, "mde_note")])
}

func TestClaimRow_BestTier(t *testing.T) {
	r := ClaimRow{TierBaseline: evidence.Supportive, TierStrict: evidence.Missing}
	assert.Equal(t, evidence.Supportive, r.BestTier())

	r.TierStrictPublication = evidence.Exploratory
	assert.Equal(t, evidence.Exploratory, r.BestTier())

	assert.Equal(t, evidence.Missing, ClaimRow{}.BestTier())
}

func indexOf(header []string, col string) int {
	for i, h := range header {
		if h == col {
			return i
		}
	}
	return -1
}
