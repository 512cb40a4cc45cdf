package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goregime/internal/errors"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, 10000, cfg.Run.Permutations)
	assert.Equal(t, int64(42), cfg.Run.Seed)
	assert.Equal(t, int64(42+1000003), cfg.Run.BootstrapSeed())
	assert.Equal(t, 0.05, cfg.Run.QThreshold)
	assert.Equal(t, "D", cfg.Term.GroupA)
	assert.Equal(t, 20, cfg.Strict.TermBlockSize)
	assert.Equal(t, 90, cfg.Strict.WithinMinWindowDays)
	assert.Equal(t, []int64{42, 137, 271}, cfg.Stability.Seeds)
	assert.Equal(t, []int{499, 999, 1999}, cfg.Stability.Draws)
	assert.Equal(t, "reports", cfg.Paths.OutputDir)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	profile := filepath.Join(dir, "strict.yaml")
	require.NoError(t, os.WriteFile(profile, []byte("run:\n  seed: 7\n  permutations: 500\nterm:\n  block_size: 20\n"), 0o644))

	t.Setenv("REGIME_RUN_PERMUTATIONS", "800")
	t.Setenv("REGIME_STABILITY_SEEDS", "1,2")

	cfg, err := Load(LoadOptions{
		ConfigFile: profile,
		Overrides:  map[string]interface{}{"run.seed": int64(99)},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(99), cfg.Run.Seed, "override beats file")
	assert.Equal(t, 800, cfg.Run.Permutations, "env beats file")
	assert.Equal(t, 20, cfg.Term.BlockSize, "file beats default")
	assert.Equal(t, []int64{1, 2}, cfg.Stability.Seeds)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("REGIME_INFERENCE_NW_LAGS=4\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("REGIME_INFERENCE_NW_LAGS") })

	cfg, err := Load(LoadOptions{DotEnv: envFile})
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Inference.NWLags)

	_, err = Load(LoadOptions{DotEnv: filepath.Join(dir, "missing.env")})
	assert.NoError(t, err, "a missing .env is not an error")
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		over map[string]interface{}
	}{
		{name: "unparseable seed", env: map[string]string{"REGIME_RUN_SEED": "forty-two"}},
		{name: "zero permutations", over: map[string]interface{}{"run.permutations": 0}},
		{name: "q threshold out of range", over: map[string]interface{}{"run.q_threshold": 1.5}},
		{name: "supportive below confirmatory", over: map[string]interface{}{"run.supportive_q": 0.01}},
		{name: "same group labels", over: map[string]interface{}{"term.group_b": "D"}},
		{name: "negative block size", over: map[string]interface{}{"term.block_size": -1}},
		{name: "empty draws grid", over: map[string]interface{}{"stability.draws": []int{}}},
		{name: "bad log level", over: map[string]interface{}{"log_level": "LOUD"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load(LoadOptions{Overrides: tc.over})
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}
