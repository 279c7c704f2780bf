package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 10, cfg.NRepetitions)
	assert.Equal(t, 10, cfg.NOuterFolds)
	assert.Equal(t, 5, cfg.NInnerFolds)
	assert.Equal(t, "neg_mean_absolute_error", cfg.ScoringRule)
	require.Len(t, cfg.HyperparameterCandidates, 9)
	assert.Equal(t, 1.0/128, cfg.HyperparameterCandidates[0])
	assert.Equal(t, 128.0, cfg.HyperparameterCandidates[8])
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "non-existent file returns defaults",
			yaml: "",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultConfig(), cfg)
			},
		},
		{
			name: "valid YAML overrides defaults",
			yaml: `
n_repetitions: 2
n_outer_folds: 5
n_inner_folds: 3
hyperparameter_candidates: [0.1, 1, 10]
scoring_rule: roc_auc
seed: 42
workers: 4
classifier:
  max_iter: 500
data:
  path: data/cohort.xlsx
  id_column: Participant_ID
  label_column: Diagn
  negative_code: "1"
  positive_code: "17"
  covariate_columns: [EstimatedTotalIntraCranialVol]
  normalize_by: EstimatedTotalIntraCranialVol
output:
  predictions_format: xlsx
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 2, cfg.NRepetitions)
				assert.Equal(t, []float64{0.1, 1, 10}, cfg.HyperparameterCandidates)
				assert.Equal(t, uint64(42), cfg.Seed)
				assert.Equal(t, 500, cfg.Classifier.MaxIter)
				assert.Equal(t, 1e-3, cfg.Classifier.Tol, "unset nested keys keep defaults")
				assert.Equal(t, "17", cfg.Data.PositiveCode)
				assert.Equal(t, "EstimatedTotalIntraCranialVol", cfg.Data.NormalizeBy)
				assert.Equal(t, []string{"EstimatedTotalIntraCranialVol"}, cfg.Data.CovariateColumns)
				assert.Equal(t, "xlsx", cfg.Output.PredictionsFormat)
				assert.NoError(t, cfg.Validate())
			},
		},
		{
			name:    "invalid YAML",
			yaml:    "n_repetitions: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nestcv.yaml")
			if tt.yaml != "" {
				require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			}
			cfg, err := Load(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		param  string
	}{
		{"zero repetitions", func(c *Config) { c.NRepetitions = 0 }, "n_repetitions"},
		{"one outer fold", func(c *Config) { c.NOuterFolds = 1 }, "n_outer_folds"},
		{"one inner fold", func(c *Config) { c.NInnerFolds = 1 }, "n_inner_folds"},
		{"empty candidates", func(c *Config) { c.HyperparameterCandidates = nil }, "hyperparameter_candidates"},
		{"negative candidate", func(c *Config) { c.HyperparameterCandidates = []float64{-1} }, "hyperparameter_candidates"},
		{"infinite candidate", func(c *Config) { c.HyperparameterCandidates = []float64{math.Inf(1)} }, "hyperparameter_candidates"},
		{"unknown scoring", func(c *Config) { c.ScoringRule = "f1" }, "scoring_rule"},
		{"negative workers", func(c *Config) { c.Workers = -1 }, "workers"},
		{"zero tolerance", func(c *Config) { c.Classifier.Tol = 0 }, "classifier.tol"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
		{"bad output format", func(c *Config) { c.Output.PredictionsFormat = "parquet" }, "output.predictions_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var ce *errors.ConfigurationError
			require.True(t, errors.As(err, &ce), "want ConfigurationError, got %v", err)
			assert.Equal(t, tt.param, ce.Param)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvSeed:      "7",
		EnvWorkers:   "3",
		EnvLogLevel:  "debug",
		EnvOutputDir: "/tmp/out",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	require.NoError(t, cfg.applyEnv(lookup))
	assert.Equal(t, uint64(7), cfg.Seed)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/out", cfg.Output.Dir)

	env[EnvSeed] = "-1"
	err := DefaultConfig().applyEnv(lookup)
	assert.True(t, errors.IsConfiguration(err), "got %v", err)
}

func TestApplyEnvFromProcess(t *testing.T) {
	t.Setenv(EnvWorkers, "2")
	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, 2, cfg.Workers)
}
