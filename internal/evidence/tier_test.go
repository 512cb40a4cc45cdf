package evidence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"goregime/domain/core"
)

var defaultThresholds = Thresholds{QThreshold: 0.05, SupportiveQ: 0.10, MinN: 10}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		q    core.OptFloat
		n    int
		want Tier
	}{
		{"confirmatory", core.Some(0.01), 20, Confirmatory},
		{"boundary q is not below threshold", core.Some(0.05), 20, Supportive},
		{"supportive", core.Some(0.07), 20, Supportive},
		{"exploratory", core.Some(0.2), 20, Exploratory},
		{"small n caps at exploratory", core.Some(0.001), 9, Exploratory},
		{"missing q", core.Missing(), 50, Exploratory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.q, core.Missing(), core.Missing(), tt.n, defaultThresholds)
			assert.Equal(t, tt.want, got.Tier)
		})
	}
}

func TestClassify_CIDoesNotGate(t *testing.T) {
	got := Classify(core.Some(0.01), core.Some(-1), core.Some(2), 30, defaultThresholds)
	assert.Equal(t, Confirmatory, got.Tier)
	assert.Equal(t, "0", got.CIExcludesZero.Format())

	got = Classify(core.Some(0.5), core.Some(0.5), core.Some(2), 30, defaultThresholds)
	assert.Equal(t, Exploratory, got.Tier)
	assert.Equal(t, "1", got.CIExcludesZero.Format())
}

func TestClassify_MonotoneInQ(t *testing.T) {
	for n := 0; n < 20; n += 3 {
		prev := -1
		for q := 1.0; q >= 0; q -= 0.005 {
			rank := Classify(core.Some(q), core.Missing(), core.Missing(), n, defaultThresholds).Tier.Rank()
			assert.GreaterOrEqual(t, rank, prev, "q=%f n=%d", q, n)
			prev = rank
		}
	}
}

func TestCompare(t *testing.T) {
	d, label := Compare(Supportive, Confirmatory)
	assert.Equal(t, 1, d.Value)
	assert.Equal(t, Stronger, label)

	d, label = Compare(Confirmatory, Exploratory)
	assert.Equal(t, -2, d.Value)
	assert.Equal(t, Weaker, label)

	_, label = Compare(Exploratory, Exploratory)
	assert.Equal(t, Same, label)

	d, label = Compare(Missing, Exploratory)
	assert.False(t, d.Valid)
	assert.Equal(t, Incomparable, label)
}

func TestParseTier(t *testing.T) {
	assert.Equal(t, Confirmatory, ParseTier(" confirmatory "))
	assert.Equal(t, Missing, ParseTier(""))
	assert.Equal(t, Missing, ParseTier("bogus"))
}
