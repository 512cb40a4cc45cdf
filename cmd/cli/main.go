package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"goregime/adapters/postgres"
	"goregime/adapters/rng"
	"goregime/app"
	"goregime/internal"
	"goregime/internal/config"
	"goregime/internal/migration"
	"goregime/ports"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configFile string
	dotEnv     string
}

func main() {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:   "regime",
		Short: "Randomization and inference engine for partisan-regime comparisons",
		Long: `Permutation tests, bootstrap intervals, BH-FDR, HAC and cluster-robust
regressions and a publication-gated claims table over president-term and
regime-window observation tables.

Configuration is read from defaults, then --config (YAML), then .env and
REGIME_* environment variables, then command-line flags.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML configuration profile")
	rootCmd.PersistentFlags().StringVar(&opts.dotEnv, "dotenv", ".env", "dotenv file; missing files are ignored")
	rootCmd.PersistentFlags().String("terms", "", "president-term observation table (CSV or XLSX)")
	rootCmd.PersistentFlags().String("windows", "", "regime-window observation table (CSV or XLSX)")
	rootCmd.PersistentFlags().String("out", "", "output directory")
	rootCmd.PersistentFlags().Bool("workbook", false, "also write an XLSX workbook per command")
	rootCmd.PersistentFlags().String("database-url", "", "Postgres URL of the optional result sink")
	rootCmd.PersistentFlags().String("log-level", "", "ERROR, WARN, INFO, DEBUG or TRACE")
	rootCmd.PersistentFlags().Int64("seed", 0, "permutation seed; bootstrap uses seed + offset")
	rootCmd.PersistentFlags().Int("permutations", 0, "permutations per metric")
	rootCmd.PersistentFlags().Int("bootstrap-samples", 0, "bootstrap resamples per metric")
	rootCmd.PersistentFlags().Float64("q-threshold", 0, "confirmatory BH q threshold")
	rootCmd.PersistentFlags().Float64("supportive-q", 0, "supportive BH q threshold")
	rootCmd.PersistentFlags().Bool("include-non-primary", false, "keep rows with metric_primary = 0")

	rootCmd.AddCommand(
		newRandomizeCmd(opts),
		newWithinCmd(opts),
		newUnifiedBinaryCmd(opts),
		newInferenceCmd(opts),
		newInferenceStabilityCmd(opts),
		newClaimsCmd(opts),
		newRunAllCmd(opts),
		newMigrateCmd(opts),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// flagKeys maps command-line flags to configuration keys
var flagKeys = map[string]string{
	"terms":                  "paths.terms",
	"windows":                "paths.windows",
	"out":                    "paths.output_dir",
	"workbook":               "paths.workbook",
	"database-url":           "database.url",
	"log-level":              "log_level",
	"seed":                   "run.seed",
	"permutations":           "run.permutations",
	"bootstrap-samples":      "run.bootstrap_samples",
	"q-threshold":            "run.q_threshold",
	"supportive-q":           "run.supportive_q",
	"include-non-primary":    "run.include_non_primary",
	"block-size":             "term.block_size",
	"strict-block-size":      "strict.term_block_size",
	"min-n":                  "term.min_n",
	"min-window-days":        "within.min_window_days",
	"strict-min-window-days": "strict.within_min_window_days",
	"min-subjects":           "within.min_subjects",
	"min-windows-each":       "binary.min_windows_each",
	"min-subjects-with-both": "binary.min_subjects_with_both",
	"nw-lags":                "inference.nw_lags",
	"wild-draws":             "inference.wild_draws",
	"wild-seed":              "inference.wild_seed",
	"stability-seeds":        "stability.seeds",
	"stability-draws":        "stability.draws",
	"workers":                "stability.workers",
	"publication-mode":       "claims.publication_mode",
	"hac-p-threshold":        "claims.hac_p_threshold",
	"stability-gate":         "claims.stability_gate",
}

// overrides collects the flags the user actually set
func overrides(cmd *cobra.Command) map[string]interface{} {
	out := make(map[string]interface{})
	cmd.Flags().Visit(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		switch v := f.Value.(type) {
		case pflag.SliceValue:
			out[key] = v.GetSlice()
		default:
			out[key] = f.Value.String()
		}
	})
	return out
}

func loadConfig(cmd *cobra.Command, opts *globalOptions) (*config.Config, error) {
	return config.Load(config.LoadOptions{
		ConfigFile: opts.configFile,
		DotEnv:     opts.dotEnv,
		Overrides:  overrides(cmd),
	})
}

// withService loads configuration, connects the optional sink and runs fn
func withService(cmd *cobra.Command, opts *globalOptions, fn func(ctx context.Context, svc *app.AnalysisService) error) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	logger := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))
	ctx := cmd.Context()

	var sink ports.LedgerPort
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := migration.NewRunner().Run(ctx, db); err != nil {
			return err
		}
		sink = postgres.NewResultRepository(db)
		logger.Info("storing results in Postgres")
	}

	runner := app.NewStageRunner(cfg.Paths.OutputDir, cfg.Paths.Workbook, sink, logger)
	svc := app.NewAnalysisService(cfg, rng.NewSeededAdapter(), runner, logger, version)
	return fn(ctx, svc)
}

func addTermFlags(cmd *cobra.Command) {
	cmd.Flags().Int("block-size", 0, "baseline block size in years; 0 is one global block")
	cmd.Flags().Int("strict-block-size", 0, "strict profile block size in years")
	cmd.Flags().Int("min-n", 0, "minimum observations for a confirmatory or supportive tier")
}

func addWindowFlags(cmd *cobra.Command) {
	cmd.Flags().Int("min-window-days", 0, "baseline minimum window length in days")
	cmd.Flags().Int("strict-min-window-days", 0, "strict profile minimum window length in days")
}

func addInferenceFlags(cmd *cobra.Command) {
	cmd.Flags().Int("nw-lags", 0, "Newey-West lags")
	cmd.Flags().Int("wild-draws", 0, "wild-cluster bootstrap draws; 0 disables")
	cmd.Flags().Int64("wild-seed", 0, "wild-cluster bootstrap seed")
}

func addClaimsFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("publication-mode", false, "gate term-level confirmatory claims on HAC inference")
	cmd.Flags().Float64("hac-p-threshold", 0, "HAC p threshold of the publication gate")
	cmd.Flags().Bool("stability-gate", false, "downgrade claims whose wild-cluster p is unstable")
}

func addStabilityFlags(cmd *cobra.Command) {
	cmd.Flags().Int64Slice("stability-seeds", nil, "wild-cluster seeds of the stability grid")
	cmd.Flags().IntSlice("stability-draws", nil, "wild-cluster draw counts of the stability grid")
	cmd.Flags().Int("workers", 0, "concurrent grid cells; 0 uses the number of CPUs")
}

func newRandomizeCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "randomize",
		Short: "Term-level party permutation test, baseline and strict",
		Example: `  regime randomize --terms data/terms.csv --out reports
  regime randomize --terms data/terms.xlsx --permutations 20000 --seed 7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *app.AnalysisService) error {
				res, err := svc.Randomize(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("term_party: %d baseline rows, %d strict rows\n", len(res.Baseline), len(res.Strict))
				return nil
			})
		},
	}
	addTermFlags(cmd)
	return cmd
}

func newWithinCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "within",
		Short:   "Within-president unified-vs-divided permutation test",
		Example: `  regime within --windows data/windows.csv --strict-min-window-days 180`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *app.AnalysisService) error {
				res, err := svc.Within(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("within_unified: %d baseline rows, %d strict rows\n", len(res.Baseline), len(res.Strict))
				return nil
			})
		},
	}
	addWindowFlags(cmd)
	cmd.Flags().Int("min-subjects", 0, "minimum presidents with both regimes for a tier")
	return cmd
}

func newUnifiedBinaryCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unified-binary",
		Short: "Window-level unified-vs-divided permutation test",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *app.AnalysisService) error {
				res, err := svc.UnifiedBinary(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("congress_unified_binary: %d baseline rows, %d strict rows\n", len(res.Baseline), len(res.Strict))
				return nil
			})
		},
	}
	addTermFlags(cmd)
	cmd.Flags().Int("min-windows-each", 0, "minimum windows in each regime for a tier")
	cmd.Flags().Int("min-subjects-with-both", 0, "minimum presidents with both regimes for a tier")
	return cmd
}

func newInferenceCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inference",
		Short: "OLS with HAC, cluster-robust and wild-cluster inference per metric",
		Long: `Regress each metric on a party indicator and join the baseline term-level
permutation table from the output directory when one exists.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *app.AnalysisService) error {
				rows, err := svc.Inference(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("inference: %d rows\n", len(rows))
				return nil
			})
		},
	}
	addInferenceFlags(cmd)
	return cmd
}

func newInferenceStabilityCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "inference-stability",
		Short:   "Rerun the wild-cluster bootstrap over a grid of seeds and draws",
		Example: `  regime inference-stability --terms data/terms.csv --stability-seeds 1,2,3 --stability-draws 999,1999`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *app.AnalysisService) error {
				res, err := svc.InferenceStability(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("inference_stability: %d grid rows, %d metrics\n", len(res.Rows), len(res.Summary))
				return nil
			})
		},
	}
	addStabilityFlags(cmd)
	return cmd
}

func newClaimsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claims",
		Short: "Reconcile baseline and strict tables into the claims table",
		Long: `Join the baseline and strict tables found in the output directory. With
--publication-mode, term-level confirmatory claims are gated on the
inference table, and with --stability-gate on the stability summary.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *app.AnalysisService) error {
				rows, err := svc.Claims(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("claims: %d rows\n", len(rows))
				return nil
			})
		},
	}
	addClaimsFlags(cmd)
	return cmd
}

func newRunAllCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run-all",
		Short:   "Run every analysis and write the claims table",
		Example: `  regime run-all --terms data/terms.csv --windows data/windows.csv --publication-mode --stability-gate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *app.AnalysisService) error {
				rows, err := svc.RunAll(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("run-all: %d claims\n", len(rows))
				return nil
			})
		},
	}
	addTermFlags(cmd)
	addWindowFlags(cmd)
	addInferenceFlags(cmd)
	addStabilityFlags(cmd)
	addClaimsFlags(cmd)
	return cmd
}

func newMigrateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the result sink tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return fmt.Errorf("database url is required (--database-url or REGIME_DATABASE_URL)")
			}
			db, err := postgres.Open(cmd.Context(), cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			runner := migration.NewRunner()
			if err := runner.Run(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Printf("schema %s is up to date\n", runner.Version())
			return nil
		},
	}
}
