package testkit

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"goregime/adapters/tabular"
	"goregime/ports"
)

// RegimeGeneratorConfig configures the synthetic term and window tables
type RegimeGeneratorConfig struct {
	Metrics         []string
	Presidents      int     // two terms each, parties alternate D, R, D, ...
	WindowsPerTerm  int     // alternating unified/divided windows within a term
	PartyEffect     float64 // added to D terms of the first metric
	UnifiedEffect   float64 // added to unified windows of the first metric
	Noise           float64 // standard deviation of the Gaussian noise
	FirstTermYear   int
	Seed            int64
	DropSecondValue bool // blank the value of the second row, to exercise skipping
}

// DefaultRegimeConfig returns a small table with a clear party effect on the
// first metric and pure noise on the rest
func DefaultRegimeConfig() RegimeGeneratorConfig {
	return RegimeGeneratorConfig{
		Metrics:        []string{"gdp_growth", "sp500_return", "unemployment_change"},
		Presidents:     8,
		WindowsPerTerm: 2,
		PartyEffect:    3.0,
		UnifiedEffect:  1.5,
		Noise:          0.5,
		FirstTermYear:  1953,
		Seed:           42,
	}
}

// RegimeGenerator writes synthetic president-term and regime-window tables
type RegimeGenerator struct {
	config RegimeGeneratorConfig
	rng    ports.RNGPort
}

// NewRegimeGenerator creates a generator drawing from rng
func NewRegimeGenerator(config RegimeGeneratorConfig, rng ports.RNGPort) *RegimeGenerator {
	return &RegimeGenerator{config: config, rng: rng}
}

var termHeader = []string{
	"metric_id", "metric_label", "metric_family", "agg_kind", "units", "metric_primary",
	"party_abbrev", "value", "term_start", "cluster_key", "term_id",
}

var windowHeader = []string{
	"metric_id", "metric_label", "metric_family", "agg_kind", "units", "metric_primary",
	"congress_regime", "value", "window_start", "window_days", "cluster_key", "president_party",
}

type term struct {
	president string
	party     string
	id        string
	start     time.Time
}

func (g *RegimeGenerator) terms() []term {
	var out []term
	year := g.config.FirstTermYear
	for p := 0; p < g.config.Presidents; p++ {
		party := "D"
		if p%2 == 1 {
			party = "R"
		}
		name := fmt.Sprintf("p%02d", p+1)
		for t := 0; t < 2; t++ {
			out = append(out, term{
				president: name,
				party:     party,
				id:        fmt.Sprintf("%s_%d", name, t+1),
				start:     time.Date(year, 1, 20, 0, 0, 0, 0, time.UTC),
			})
			year += 4
		}
	}
	return out
}

// TermRecords returns the president-term table
func (g *RegimeGenerator) TermRecords(ctx context.Context) ([]string, [][]string, error) {
	var records [][]string
	for mi, metric := range g.config.Metrics {
		rng, err := g.rng.Stream(ctx, "terms", metric, g.config.Seed)
		if err != nil {
			return nil, nil, err
		}
		for _, t := range g.terms() {
			v := rng.NormFloat64() * g.config.Noise
			if mi == 0 && t.party == "D" {
				v += g.config.PartyEffect
			}
			records = append(records, []string{
				metric, metric, "synthetic", "mean", "pct", "1",
				t.party, formatValue(v), t.start.Format("2006-01-02"), t.president, t.id,
			})
		}
	}
	g.dropSecond(records, 7)
	return termHeader, records, nil
}

// WindowRecords returns the regime-window table. Each term is split into
// WindowsPerTerm windows that alternate unified and divided, so every
// president is observed under both regimes.
func (g *RegimeGenerator) WindowRecords(ctx context.Context) ([]string, [][]string, error) {
	n := g.config.WindowsPerTerm
	if n < 1 {
		n = 1
	}
	days := 4 * 365 / n

	var records [][]string
	for mi, metric := range g.config.Metrics {
		rng, err := g.rng.Stream(ctx, "windows", metric, g.config.Seed)
		if err != nil {
			return nil, nil, err
		}
		for ti, t := range g.terms() {
			for w := 0; w < n; w++ {
				regime := "unified"
				if (ti+w)%2 == 1 {
					regime = "divided"
				}
				v := rng.NormFloat64() * g.config.Noise
				if mi == 0 && regime == "unified" {
					v += g.config.UnifiedEffect
				}
				start := t.start.AddDate(0, 0, w*days)
				records = append(records, []string{
					metric, metric, "synthetic", "mean", "pct", "1",
					regime, formatValue(v), start.Format("2006-01-02"), strconv.Itoa(days), t.president, t.party,
				})
			}
		}
	}
	g.dropSecond(records, 7)
	return windowHeader, records, nil
}

// WriteFixtures writes terms.csv and windows.csv into dir
func (g *RegimeGenerator) WriteFixtures(ctx context.Context, dir string) (termsPath, windowsPath string, err error) {
	header, records, err := g.TermRecords(ctx)
	if err != nil {
		return "", "", err
	}
	termsPath = filepath.Join(dir, "terms.csv")
	if err := tabular.WriteCSV(termsPath, header, records); err != nil {
		return "", "", err
	}

	header, records, err = g.WindowRecords(ctx)
	if err != nil {
		return "", "", err
	}
	windowsPath = filepath.Join(dir, "windows.csv")
	if err := tabular.WriteCSV(windowsPath, header, records); err != nil {
		return "", "", err
	}
	return termsPath, windowsPath, nil
}

func (g *RegimeGenerator) dropSecond(records [][]string, valueCol int) {
	if g.config.DropSecondValue && len(records) > 1 {
		records[1][valueCol] = ""
	}
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
