package core

import "testing"

func TestNewRunID_Unique(t *testing.T) {
	a := NewRunID()
	b := NewRunID()
	if a == b {
		t.Fatalf("expected distinct run IDs, got %s twice", a)
	}
	if ID(a).IsEmpty() {
		t.Fatal("run ID should not be empty")
	}
}

func TestParseMetricID(t *testing.T) {
	id, err := ParseMetricID("  gdp_growth ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "gdp_growth" {
		t.Errorf("expected trimmed id, got %q", id)
	}
	if _, err := ParseMetricID("   "); err == nil {
		t.Error("expected error for blank metric id")
	}
}
