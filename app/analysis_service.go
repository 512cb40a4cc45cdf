package app

import (
	"context"
	"encoding/json"
	"math/rand"
	"os"

	"goregime/adapters/battery"
	"goregime/adapters/regression"
	"goregime/adapters/tabular"
	"goregime/domain/core"
	"goregime/domain/result"
	"goregime/domain/run"
	"goregime/internal"
	"goregime/internal/claims"
	"goregime/internal/config"
	"goregime/internal/errors"
	"goregime/internal/evidence"
	"goregime/internal/stability"
	"goregime/ports"
)

// Command names, also used as manifest and workbook file stems
const (
	CommandRandomize          = "randomize"
	CommandWithin             = "within"
	CommandUnifiedBinary      = "unified_binary"
	CommandInference          = "inference"
	CommandInferenceStability = "inference_stability"
	CommandClaims             = "claims"
	CommandRunAll             = "run_all"
)

// Table stems
const (
	TableInference        = "inference"
	TableStability        = "inference_stability"
	TableStabilitySummary = "inference_stability_summary"
	TableClaims           = "claims"
)

// Profile selects baseline or strict analysis settings
type Profile string

const (
	Baseline Profile = "baseline"
	Strict   Profile = "strict"
)

// TableName is the stem of an analysis table for a profile
func TableName(a result.Analysis, p Profile) string {
	return string(a) + "_" + string(p)
}

// AnalysisService runs the analyses of one configuration
type AnalysisService struct {
	cfg         *config.Config
	rngPort     ports.RNGPort
	stageRunner *StageRunner
	logger      *internal.Logger
	codeVersion string
}

// NewAnalysisService creates an analysis service
func NewAnalysisService(cfg *config.Config, rngPort ports.RNGPort, stageRunner *StageRunner, logger *internal.Logger, codeVersion string) *AnalysisService {
	return &AnalysisService{
		cfg:         cfg,
		rngPort:     rngPort,
		stageRunner: stageRunner,
		logger:      logger,
		codeVersion: codeVersion,
	}
}

// TermResult holds both profiles of the term-level permutation test
type TermResult struct {
	Baseline []result.PermutationRow
	Strict   []result.PermutationRow
}

// WithinResult holds both profiles of the within-subject test
type WithinResult struct {
	Baseline []result.WithinRow
	Strict   []result.WithinRow
}

// StabilityResult is the stability grid and its per-metric summary
type StabilityResult struct {
	Rows    []result.StabilityRow
	Summary []result.StabilitySummaryRow
}

// Randomize runs the term-level party permutation test under both profiles
func (s *AnalysisService) Randomize(ctx context.Context) (*TermResult, error) {
	in, err := LoadInput(s.cfg.Paths.Terms, s.cfg.Run.IncludeNonPrimary, s.logger)
	if err != nil {
		return nil, err
	}
	res, err := s.randomize(ctx, in)
	if err != nil {
		return nil, err
	}
	m := s.manifest(CommandRandomize, in)
	return res, s.stageRunner.Persist(ctx, m, []Output{
		permutationOutput(result.AnalysisTermParty, Baseline, res.Baseline),
		permutationOutput(result.AnalysisTermParty, Strict, res.Strict),
	})
}

func (s *AnalysisService) randomize(ctx context.Context, in *Input) (*TermResult, error) {
	res := &TermResult{}
	for _, profile := range []Profile{Baseline, Strict} {
		permRNG, bootRNG, err := s.generators(ctx, "term_party")
		if err != nil {
			return nil, err
		}
		rows := battery.RunGroupDifference(in.Groups, s.termParams(profile), permRNG, bootRNG)
		s.logTiers(string(result.AnalysisTermParty), profile, tiersOf(rows))
		if profile == Baseline {
			res.Baseline = rows
		} else {
			res.Strict = rows
		}
	}
	return res, nil
}

// Within runs the within-subject unified-vs-divided test under both profiles
func (s *AnalysisService) Within(ctx context.Context) (*WithinResult, error) {
	in, err := LoadInput(s.cfg.Paths.Windows, s.cfg.Run.IncludeNonPrimary, s.logger)
	if err != nil {
		return nil, err
	}
	res, err := s.within(ctx, in)
	if err != nil {
		return nil, err
	}
	m := s.manifest(CommandWithin, in)
	return res, s.stageRunner.Persist(ctx, m, []Output{
		withinOutput(Baseline, res.Baseline),
		withinOutput(Strict, res.Strict),
	})
}

func (s *AnalysisService) within(ctx context.Context, in *Input) (*WithinResult, error) {
	res := &WithinResult{}
	for _, profile := range []Profile{Baseline, Strict} {
		permRNG, bootRNG, err := s.generators(ctx, "within_unified")
		if err != nil {
			return nil, err
		}
		rows := battery.RunWithin(in.Groups, s.withinParams(profile), permRNG, bootRNG)
		tiers := make([]evidence.Tier, len(rows))
		for i, r := range rows {
			tiers[i] = r.Tier
		}
		s.logTiers(string(result.AnalysisWithinUnified), profile, tiers)
		if profile == Baseline {
			res.Baseline = rows
		} else {
			res.Strict = rows
		}
	}
	return res, nil
}

// UnifiedBinary runs the window-level unified-vs-divided permutation test
func (s *AnalysisService) UnifiedBinary(ctx context.Context) (*TermResult, error) {
	in, err := LoadInput(s.cfg.Paths.Windows, s.cfg.Run.IncludeNonPrimary, s.logger)
	if err != nil {
		return nil, err
	}
	res, err := s.unifiedBinary(ctx, in)
	if err != nil {
		return nil, err
	}
	m := s.manifest(CommandUnifiedBinary, in)
	return res, s.stageRunner.Persist(ctx, m, []Output{
		permutationOutput(result.AnalysisUnifiedBinary, Baseline, res.Baseline),
		permutationOutput(result.AnalysisUnifiedBinary, Strict, res.Strict),
	})
}

func (s *AnalysisService) unifiedBinary(ctx context.Context, in *Input) (*TermResult, error) {
	res := &TermResult{}
	for _, profile := range []Profile{Baseline, Strict} {
		permRNG, bootRNG, err := s.generators(ctx, "unified_binary")
		if err != nil {
			return nil, err
		}
		days := s.cfg.Binary.MinWindowDays
		if profile == Strict {
			days = s.cfg.Strict.WithinMinWindowDays
		}
		rows := battery.RunGroupDifference(minDays(in.Groups, days), s.binaryParams(profile), permRNG, bootRNG)
		s.logTiers(string(result.AnalysisUnifiedBinary), profile, tiersOf(rows))
		if profile == Baseline {
			res.Baseline = rows
		} else {
			res.Strict = rows
		}
	}
	return res, nil
}

// Inference regresses every term-level metric and joins the baseline
// permutation table, read back from the output directory when present
func (s *AnalysisService) Inference(ctx context.Context) ([]result.InferenceRow, error) {
	in, err := LoadInput(s.cfg.Paths.Terms, s.cfg.Run.IncludeNonPrimary, s.logger)
	if err != nil {
		return nil, err
	}

	var perm []result.PermutationRow
	permPath := s.stageRunner.Path(TableName(result.AnalysisTermParty, Baseline))
	if _, statErr := os.Stat(permPath); statErr == nil {
		perm, err = tabular.ReadPermutationRows(permPath)
		if err != nil {
			return nil, errors.IOError(permPath, err)
		}
	} else {
		s.logger.Warn("%s not found; permutation columns will be empty", permPath)
	}

	rows, err := s.inference(ctx, in, perm)
	if err != nil {
		return nil, err
	}
	m := s.manifest(CommandInference, in)
	return rows, s.stageRunner.Persist(ctx, m, []Output{
		{Name: TableInference, Header: result.InferenceHeader, Records: tabular.Records(rows)},
	})
}

func (s *AnalysisService) inference(ctx context.Context, in *Input, perm []result.PermutationRow) ([]result.InferenceRow, error) {
	wildRNG, err := s.rngPort.SeededStream(ctx, "wild_cluster", s.cfg.Inference.WildSeed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to seed wild-cluster generator")
	}
	rows, err := regression.BuildInferenceTable(in.Groups, perm, s.inferenceParams(), wildRNG)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build inference table")
	}

	disagree := 0
	for _, r := range rows {
		if r.DirectionDisagree.Valid && r.DirectionDisagree.Value {
			disagree++
		}
	}
	s.logger.Info("inference: %d metrics, %d with direction disagreement", len(rows), disagree)
	return rows, nil
}

// InferenceStability reruns the wild-cluster bootstrap over the seed x draws grid
func (s *AnalysisService) InferenceStability(ctx context.Context) (*StabilityResult, error) {
	in, err := LoadInput(s.cfg.Paths.Terms, s.cfg.Run.IncludeNonPrimary, s.logger)
	if err != nil {
		return nil, err
	}
	res, err := s.inferenceStability(ctx, in)
	if err != nil {
		return nil, err
	}
	m := s.manifest(CommandInferenceStability, in)
	return res, s.stageRunner.Persist(ctx, m, stabilityOutputs(res))
}

func (s *AnalysisService) inferenceStability(ctx context.Context, in *Input) (*StabilityResult, error) {
	metrics := make([]stability.Metric, len(in.Groups))
	for i, g := range in.Groups {
		metrics[i] = stability.Metric{
			ID:     g.Meta.ID,
			Design: regression.BuildDesign(g, s.cfg.Term.GroupA, s.cfg.Term.GroupB),
		}
	}

	grid := stability.Grid{Seeds: s.cfg.Stability.Seeds, Draws: s.cfg.Stability.Draws}
	rows, err := stability.NewRunner(s.rngPort, s.cfg.Stability.Workers).Run(ctx, metrics, grid)
	if err != nil {
		return nil, errors.Wrap(err, "stability grid failed")
	}
	summary := stability.Summarize(rows)

	unstable := 0
	for _, r := range summary {
		if r.Status005 == result.Unstable {
			unstable++
		}
	}
	s.logger.Info("inference stability: %d metrics x %d cells, %d unstable at 0.05", len(metrics), len(grid.Cells()), unstable)
	return &StabilityResult{Rows: rows, Summary: summary}, nil
}

// Claims reconciles the baseline and strict tables found in the output
// directory. In publication mode the inference table and, with the
// stability gate on, the stability summary are read as well.
func (s *AnalysisService) Claims(ctx context.Context) ([]result.ClaimRow, error) {
	in := claims.Inputs{}
	analyses := []result.Analysis{result.AnalysisTermParty, result.AnalysisWithinUnified, result.AnalysisUnifiedBinary}
	for _, a := range analyses {
		for _, profile := range []Profile{Baseline, Strict} {
			path := s.stageRunner.Path(TableName(a, profile))
			if _, err := os.Stat(path); err != nil {
				s.logger.Debug("%s not found, skipping", path)
				continue
			}
			sources, err := tabular.ReadClaimSources(path, a)
			if err != nil {
				return nil, errors.IOError(path, err)
			}
			if profile == Baseline {
				in.Baseline = append(in.Baseline, sources...)
			} else {
				in.Strict = append(in.Strict, sources...)
			}
		}
	}
	if len(in.Baseline) == 0 && len(in.Strict) == 0 {
		return nil, errors.NotFound("analysis tables in " + s.cfg.Paths.OutputDir)
	}

	if s.cfg.Claims.PublicationMode {
		path := s.stageRunner.Path(TableInference)
		rows, err := tabular.ReadInferenceRows(path)
		if err != nil {
			s.logger.Warn("publication mode without inference table %s: term rows gate to hac_missing", path)
		} else {
			in.Inference = rows
		}
		if s.cfg.Claims.StabilityGate {
			path := s.stageRunner.Path(TableStabilitySummary)
			summary, err := tabular.ReadStabilitySummary(path)
			if err != nil {
				s.logger.Warn("stability gate on without summary %s", path)
			} else {
				in.Stability = summary
			}
		}
	}

	rows := s.claims(in)
	m := run.NewManifest(CommandClaims, s.params(), nil, s.seeds(), s.codeVersion)
	return rows, s.stageRunner.Persist(ctx, m, []Output{claimsOutput(rows)})
}

func (s *AnalysisService) claims(in claims.Inputs) []result.ClaimRow {
	rows := claims.Build(in, s.claimsParams())
	downgraded := 0
	for _, r := range rows {
		if r.PublicationMode && r.TierBaselinePublication != r.TierBaseline {
			downgraded++
		}
	}
	s.logger.Info("claims: %d rows, %d downgraded by publication gate", len(rows), downgraded)
	return rows
}

// RunAll runs every analysis on the configured inputs and reconciles them
// in memory. Window analyses are skipped when no window table is configured.
func (s *AnalysisService) RunAll(ctx context.Context) ([]result.ClaimRow, error) {
	terms, err := LoadInput(s.cfg.Paths.Terms, s.cfg.Run.IncludeNonPrimary, s.logger)
	if err != nil {
		return nil, err
	}
	inputs := []*Input{terms}
	var outputs []Output
	in := claims.Inputs{}

	term, err := s.randomize(ctx, terms)
	if err != nil {
		return nil, err
	}
	outputs = append(outputs,
		permutationOutput(result.AnalysisTermParty, Baseline, term.Baseline),
		permutationOutput(result.AnalysisTermParty, Strict, term.Strict))
	in.Baseline = append(in.Baseline, claimSources(term.Baseline)...)
	in.Strict = append(in.Strict, claimSources(term.Strict)...)

	if s.cfg.Paths.Windows != "" {
		windows, err := LoadInput(s.cfg.Paths.Windows, s.cfg.Run.IncludeNonPrimary, s.logger)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, windows)

		within, err := s.within(ctx, windows)
		if err != nil {
			return nil, err
		}
		binary, err := s.unifiedBinary(ctx, windows)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs,
			withinOutput(Baseline, within.Baseline),
			withinOutput(Strict, within.Strict),
			permutationOutput(result.AnalysisUnifiedBinary, Baseline, binary.Baseline),
			permutationOutput(result.AnalysisUnifiedBinary, Strict, binary.Strict))
		for _, r := range within.Baseline {
			in.Baseline = append(in.Baseline, r.ClaimSource())
		}
		for _, r := range within.Strict {
			in.Strict = append(in.Strict, r.ClaimSource())
		}
		in.Baseline = append(in.Baseline, claimSources(binary.Baseline)...)
		in.Strict = append(in.Strict, claimSources(binary.Strict)...)
	} else {
		s.logger.Warn("no window table configured; skipping within and unified-binary analyses")
	}

	inf, err := s.inference(ctx, terms, term.Baseline)
	if err != nil {
		return nil, err
	}
	in.Inference = inf
	outputs = append(outputs, Output{Name: TableInference, Header: result.InferenceHeader, Records: tabular.Records(inf)})

	if s.cfg.Claims.StabilityGate {
		stab, err := s.inferenceStability(ctx, terms)
		if err != nil {
			return nil, err
		}
		in.Stability = stab.Summary
		outputs = append(outputs, stabilityOutputs(stab)...)
	}

	rows := s.claims(in)
	outputs = append(outputs, claimsOutput(rows))

	m := s.manifest(CommandRunAll, inputs...)
	return rows, s.stageRunner.Persist(ctx, m, outputs)
}

// generators returns the permutation and bootstrap generators of one pass.
// Each pass starts from the configured seeds, so profiles and commands are
// reproducible on their own.
func (s *AnalysisService) generators(ctx context.Context, name string) (perm, boot *rand.Rand, err error) {
	perm, err = s.rngPort.SeededStream(ctx, name+"_permutation", s.cfg.Run.Seed)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to seed permutation generator")
	}
	boot, err = s.rngPort.SeededStream(ctx, name+"_bootstrap", s.cfg.Run.BootstrapSeed())
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to seed bootstrap generator")
	}
	return perm, boot, nil
}

func (s *AnalysisService) thresholds(minN int) evidence.Thresholds {
	return evidence.Thresholds{
		QThreshold:  s.cfg.Run.QThreshold,
		SupportiveQ: s.cfg.Run.SupportiveQ,
		MinN:        minN,
	}
}

func (s *AnalysisService) termParams(profile Profile) battery.GroupDifferenceParams {
	blockSize := s.cfg.Term.BlockSize
	if profile == Strict {
		blockSize = s.cfg.Strict.TermBlockSize
	}
	return battery.GroupDifferenceParams{
		Analysis: result.AnalysisTermParty,
		Permutation: battery.PermutationParams{
			Permutations: s.cfg.Run.Permutations,
			BlockSize:    blockSize,
			GroupA:       s.cfg.Term.GroupA,
			GroupB:       s.cfg.Term.GroupB,
		},
		BootstrapSamples: s.cfg.Run.BootstrapSamples,
		Seed:             s.cfg.Run.Seed,
		Thresholds:       s.thresholds(s.cfg.Term.MinN),
	}
}

func (s *AnalysisService) withinParams(profile Profile) battery.WithinRunParams {
	days := s.cfg.Within.MinWindowDays
	if profile == Strict {
		days = s.cfg.Strict.WithinMinWindowDays
	}
	return battery.WithinRunParams{
		Within: battery.WithinParams{
			Permutations: s.cfg.Run.Permutations,
			FlagA:        s.cfg.Within.FlagA,
			FlagB:        s.cfg.Within.FlagB,
		},
		BootstrapSamples: s.cfg.Run.BootstrapSamples,
		Seed:             s.cfg.Run.Seed,
		Thresholds:       s.thresholds(s.cfg.Within.MinSubjects),
		MinWindowDays:    days,
	}
}

func (s *AnalysisService) binaryParams(profile Profile) battery.GroupDifferenceParams {
	blockSize := s.cfg.Term.BlockSize
	if profile == Strict {
		blockSize = s.cfg.Strict.TermBlockSize
	}
	return battery.GroupDifferenceParams{
		Analysis: result.AnalysisUnifiedBinary,
		Permutation: battery.PermutationParams{
			Permutations: s.cfg.Run.Permutations,
			BlockSize:    blockSize,
			GroupA:       s.cfg.Within.FlagA,
			GroupB:       s.cfg.Within.FlagB,
		},
		BootstrapSamples:    s.cfg.Run.BootstrapSamples,
		Seed:                s.cfg.Run.Seed,
		Thresholds:          s.thresholds(0),
		MinEachGroup:        s.cfg.Binary.MinWindowsEach,
		MinClustersWithBoth: s.cfg.Binary.MinSubjectsWithBoth,
	}
}

func (s *AnalysisService) inferenceParams() regression.InferenceParams {
	return regression.InferenceParams{
		GroupA:    s.cfg.Term.GroupA,
		GroupB:    s.cfg.Term.GroupB,
		NWLags:    s.cfg.Inference.NWLags,
		WildDraws: s.cfg.Inference.WildDraws,
		WildSeed:  s.cfg.Inference.WildSeed,
	}
}

func (s *AnalysisService) claimsParams() claims.Params {
	return claims.Params{
		PublicationMode: s.cfg.Claims.PublicationMode,
		HACPThreshold:   s.cfg.Claims.HACPThreshold,
		StabilityGate:   s.cfg.Claims.StabilityGate,
		MinN:            s.cfg.Term.MinN,
	}
}

func (s *AnalysisService) seeds() run.Seeds {
	return run.Seeds{
		Permutation: s.cfg.Run.Seed,
		Bootstrap:   s.cfg.Run.BootstrapSeed(),
		Wild:        s.cfg.Inference.WildSeed,
	}
}

// params flattens the configuration for the manifest. The database URL is
// left out since it may carry credentials.
func (s *AnalysisService) params() map[string]interface{} {
	cfg := *s.cfg
	cfg.Database = config.DatabaseConfig{}
	data, err := json.Marshal(cfg)
	if err != nil {
		return map[string]interface{}{}
	}
	out := make(map[string]interface{})
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}

func (s *AnalysisService) manifest(command string, inputs ...*Input) *run.Manifest {
	hashes := make(map[string]core.Hash, len(inputs))
	for _, in := range inputs {
		hashes[in.Path] = in.Hash
	}
	return run.NewManifest(command, s.params(), hashes, s.seeds(), s.codeVersion)
}

func (s *AnalysisService) logTiers(analysis string, profile Profile, tiers []evidence.Tier) {
	counts := make(map[evidence.Tier]int)
	for _, t := range tiers {
		counts[t]++
	}
	s.logger.With("analysis", analysis).With("profile", string(profile)).Info(
		"%d rows: %d confirmatory, %d supportive, %d exploratory, %d missing",
		len(tiers), counts[evidence.Confirmatory], counts[evidence.Supportive], counts[evidence.Exploratory], counts[evidence.Missing])
}

func tiersOf(rows []result.PermutationRow) []evidence.Tier {
	out := make([]evidence.Tier, len(rows))
	for i, r := range rows {
		out[i] = r.Tier
	}
	return out
}

func claimSources(rows []result.PermutationRow) []result.ClaimSource {
	out := make([]result.ClaimSource, len(rows))
	for i, r := range rows {
		out[i] = r.ClaimSource()
	}
	return out
}

func permutationOutput(a result.Analysis, p Profile, rows []result.PermutationRow) Output {
	return Output{Name: TableName(a, p), Header: result.PermutationHeader, Records: tabular.Records(rows)}
}

func withinOutput(p Profile, rows []result.WithinRow) Output {
	return Output{Name: TableName(result.AnalysisWithinUnified, p), Header: result.WithinHeader, Records: tabular.Records(rows)}
}

func stabilityOutputs(res *StabilityResult) []Output {
	return []Output{
		{Name: TableStability, Header: result.StabilityHeader, Records: tabular.Records(res.Rows)},
		{Name: TableStabilitySummary, Header: result.StabilitySummaryHeader, Records: tabular.Records(res.Summary)},
	}
}

func claimsOutput(rows []result.ClaimRow) Output {
	return Output{Name: TableClaims, Header: result.ClaimHeader, Records: tabular.Records(rows)}
}
