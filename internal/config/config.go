package config

import (
	stderrors "errors"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"goregime/internal/errors"
)

// EnvPrefix is prepended to every environment override, e.g. REGIME_RUN_SEED
const EnvPrefix = "REGIME"

// Config represents the complete application configuration
type Config struct {
	Run       RunConfig       `mapstructure:"run"`
	Term      TermConfig      `mapstructure:"term"`
	Within    WithinConfig    `mapstructure:"within"`
	Binary    BinaryConfig    `mapstructure:"binary"`
	Strict    StrictConfig    `mapstructure:"strict"`
	Inference InferenceConfig `mapstructure:"inference"`
	Stability StabilityConfig `mapstructure:"stability"`
	Claims    ClaimsConfig    `mapstructure:"claims"`
	Paths     PathConfig      `mapstructure:"paths"`
	Database  DatabaseConfig  `mapstructure:"database"`
	LogLevel  string          `mapstructure:"log_level" validate:"omitempty,oneof=ERROR WARN INFO DEBUG TRACE error warn info debug trace"`
}

// RunConfig holds the knobs shared by every randomization analysis
type RunConfig struct {
	Permutations        int     `mapstructure:"permutations" validate:"min=1"`
	BootstrapSamples    int     `mapstructure:"bootstrap_samples" validate:"min=0"`
	Seed                int64   `mapstructure:"seed"`
	BootstrapSeedOffset int64   `mapstructure:"bootstrap_seed_offset"`
	QThreshold          float64 `mapstructure:"q_threshold" validate:"gt=0,lt=1"`
	SupportiveQ         float64 `mapstructure:"supportive_q" validate:"gtefield=QThreshold,lt=1"`
	IncludeNonPrimary   bool    `mapstructure:"include_non_primary"`
}

// BootstrapSeed is the seed of the bootstrap generator
func (r RunConfig) BootstrapSeed() int64 {
	return r.Seed + r.BootstrapSeedOffset
}

// TermConfig holds term-level group-difference settings
type TermConfig struct {
	GroupA    string `mapstructure:"group_a" validate:"required"`
	GroupB    string `mapstructure:"group_b" validate:"required,nefield=GroupA"`
	BlockSize int    `mapstructure:"block_size" validate:"min=0"`
	MinN      int    `mapstructure:"min_n" validate:"min=0"`
}

// WithinConfig holds within-subject flag test settings
type WithinConfig struct {
	FlagA         string `mapstructure:"flag_a" validate:"required"`
	FlagB         string `mapstructure:"flag_b" validate:"required,nefield=FlagA"`
	MinWindowDays int    `mapstructure:"min_window_days" validate:"min=0"`
	MinSubjects   int    `mapstructure:"min_subjects" validate:"min=0"`
}

// BinaryConfig holds window-level unified-vs-divided settings
type BinaryConfig struct {
	MinWindowsEach      int `mapstructure:"min_windows_each" validate:"min=0"`
	MinSubjectsWithBoth int `mapstructure:"min_subjects_with_both" validate:"min=0"`
	MinWindowDays       int `mapstructure:"min_window_days" validate:"min=0"`
}

// StrictConfig is what the strict profile changes relative to baseline
type StrictConfig struct {
	TermBlockSize       int `mapstructure:"term_block_size" validate:"min=0"`
	WithinMinWindowDays int `mapstructure:"within_min_window_days" validate:"min=0"`
}

// InferenceConfig holds regression settings
type InferenceConfig struct {
	NWLags    int   `mapstructure:"nw_lags" validate:"min=0"`
	WildDraws int   `mapstructure:"wild_draws" validate:"min=0"`
	WildSeed  int64 `mapstructure:"wild_seed"`
}

// StabilityConfig is the wild-cluster rerun grid
type StabilityConfig struct {
	Seeds   []int64 `mapstructure:"seeds" validate:"min=1"`
	Draws   []int   `mapstructure:"draws" validate:"min=1,dive,min=1"`
	Workers int     `mapstructure:"workers" validate:"min=0"`
}

// ClaimsConfig holds publication gating settings
type ClaimsConfig struct {
	PublicationMode bool    `mapstructure:"publication_mode"`
	HACPThreshold   float64 `mapstructure:"hac_p_threshold" validate:"gt=0,lt=1"`
	StabilityGate   bool    `mapstructure:"stability_gate"`
}

// PathConfig holds file system paths. Terms is the president-term table,
// Windows the regime-window table; either may be CSV or XLSX.
type PathConfig struct {
	Terms     string `mapstructure:"terms"`
	Windows   string `mapstructure:"windows"`
	OutputDir string `mapstructure:"output_dir" validate:"required"`
	Workbook  bool   `mapstructure:"workbook"` // also write one XLSX per command
}

// DatabaseConfig holds the optional result sink connection
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// LoadOptions selects the sources Load reads, lowest precedence first:
// defaults, ConfigFile, DotEnv and the process environment, Overrides.
type LoadOptions struct {
	ConfigFile string
	DotEnv     string
	Overrides  map[string]interface{} // viper keys, e.g. "run.seed"
}

// Load reads configuration and validates it. Every failure is CONFIG_INVALID.
func Load(opts LoadOptions) (*Config, error) {
	if opts.DotEnv != "" {
		if err := godotenv.Load(opts.DotEnv); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.WithCode(errors.CodeConfigInvalid, err, "failed to load "+opts.DotEnv)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WithCode(errors.CodeConfigInvalid, err, "failed to read config file "+opts.ConfigFile)
		}
	}
	for key, value := range opts.Overrides {
		v.Set(key, value)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err, "failed to decode configuration")
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err, "configuration validation failed")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("run.permutations", 10000)
	v.SetDefault("run.bootstrap_samples", 2000)
	v.SetDefault("run.seed", 42)
	v.SetDefault("run.bootstrap_seed_offset", 1000003)
	v.SetDefault("run.q_threshold", 0.05)
	v.SetDefault("run.supportive_q", 0.10)
	v.SetDefault("run.include_non_primary", false)

	v.SetDefault("term.group_a", "D")
	v.SetDefault("term.group_b", "R")
	v.SetDefault("term.block_size", 0)
	v.SetDefault("term.min_n", 12)

	v.SetDefault("within.flag_a", "unified")
	v.SetDefault("within.flag_b", "divided")
	v.SetDefault("within.min_window_days", 0)
	v.SetDefault("within.min_subjects", 5)

	v.SetDefault("binary.min_windows_each", 6)
	v.SetDefault("binary.min_subjects_with_both", 4)
	v.SetDefault("binary.min_window_days", 0)

	v.SetDefault("strict.term_block_size", 20)
	v.SetDefault("strict.within_min_window_days", 90)

	v.SetDefault("inference.nw_lags", 1)
	v.SetDefault("inference.wild_draws", 1999)
	v.SetDefault("inference.wild_seed", 42)

	v.SetDefault("stability.seeds", []int64{42, 137, 271})
	v.SetDefault("stability.draws", []int{499, 999, 1999})
	v.SetDefault("stability.workers", 0)

	v.SetDefault("claims.publication_mode", false)
	v.SetDefault("claims.hac_p_threshold", 0.05)
	v.SetDefault("claims.stability_gate", false)

	v.SetDefault("paths.terms", "")
	v.SetDefault("paths.windows", "")
	v.SetDefault("paths.workbook", false)
	v.SetDefault("paths.output_dir", "reports")
	v.SetDefault("database.url", "")
	v.SetDefault("log_level", "INFO")
}
