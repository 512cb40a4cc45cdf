package observation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goregime/domain/core"
)

func TestGroupByMetric_SortedAndStable(t *testing.T) {
	table := Table{
		Meta: map[core.MetricID]MetricMeta{
			"zeta": {ID: "zeta", Label: "Zeta", Family: "growth"},
		},
		Obs: []Observation{
			{MetricID: "zeta", Value: 1, Group: "D"},
			{MetricID: "alpha", Value: 2, Group: "R"},
			{MetricID: "zeta", Value: 3, Group: "R"},
			{MetricID: "alpha", Value: 4, Group: "D"},
		},
	}

	groups := GroupByMetric(table)
	require.Len(t, groups, 2)
	assert.Equal(t, core.MetricID("alpha"), groups[0].Meta.ID)
	assert.Equal(t, "alpha", groups[0].Meta.Label, "label falls back to id")
	assert.Equal(t, []float64{2, 4}, groups[0].Values())
	assert.Equal(t, "Zeta", groups[1].Meta.Label)
	assert.Equal(t, []string{"D", "R"}, groups[1].Labels())
}

func TestMetricGroup_SplitAndRange(t *testing.T) {
	g := MetricGroup{Obs: []Observation{
		{Value: 1, Group: "D", BlockKey: core.SomeInt(1961)},
		{Value: 2, Group: "R", BlockKey: core.SomeInt(1953)},
		{Value: 3, Group: "X"},
		{Value: 4, Group: "D", BlockKey: core.SomeInt(2009)},
	}}

	a, b := g.Split("D", "R")
	assert.Equal(t, []float64{1, 4}, a)
	assert.Equal(t, []float64{2}, b)

	lo, hi := g.BlockYearRange()
	assert.Equal(t, 1953, lo.Value)
	assert.Equal(t, 2009, hi.Value)
}

func TestSubgroups(t *testing.T) {
	g := MetricGroup{Obs: []Observation{
		{Subgroup: "R"}, {Subgroup: ""}, {Subgroup: "D"}, {Subgroup: "R"},
	}}
	assert.Equal(t, []string{"D", "R"}, Subgroups(g))
}
