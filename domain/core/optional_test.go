package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptFloat_Format(t *testing.T) {
	assert.Equal(t, "", Missing().Format())
	assert.Equal(t, "2.000000", Some(2).Format())
	assert.Equal(t, "-0.123457", Some(-0.1234567).Format())
}

func TestSome_RejectsNonFinite(t *testing.T) {
	assert.False(t, Some(math.NaN()).Valid)
	assert.False(t, Some(math.Inf(1)).Valid)
	assert.True(t, Some(0).Valid)
}

func TestParseOptFloat(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
		want  float64
	}{
		{"", false, 0},
		{"   ", false, 0},
		{"abc", false, 0},
		{"1.5", true, 1.5},
		{" -3 ", true, -3},
		{"NaN", false, 0},
	}
	for _, tt := range tests {
		got := ParseOptFloat(tt.in)
		assert.Equal(t, tt.valid, got.Valid, "input %q", tt.in)
		if tt.valid {
			assert.Equal(t, tt.want, got.Value, "input %q", tt.in)
		}
	}
}

func TestOptBool_RoundTrip(t *testing.T) {
	assert.Equal(t, "1", ParseOptBool("true").Format())
	assert.Equal(t, "0", ParseOptBool("0").Format())
	assert.Equal(t, "", ParseOptBool("maybe").Format())
}

func TestParseISODate(t *testing.T) {
	d, ok := ParseISODate("1993-01-20T12:00:00Z")
	assert.True(t, ok)
	assert.Equal(t, 1993, d.Year())

	_, ok = ParseISODate("20-01-1993")
	assert.False(t, ok)
}
