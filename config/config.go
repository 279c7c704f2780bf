// Package config handles loading and validating evaluation run configuration.
package config

import (
	"math"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/nestcv/dataset"
	"github.com/YuminosukeSato/nestcv/model_selection"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
	"github.com/YuminosukeSato/nestcv/pkg/log"
)

// Environment variables that override file settings.
const (
	EnvSeed      = "NESTCV_SEED"
	EnvWorkers   = "NESTCV_WORKERS"
	EnvLogLevel  = "NESTCV_LOG_LEVEL"
	EnvOutputDir = "NESTCV_OUTPUT_DIR"
)

// Config is the top-level configuration of one evaluation run.
type Config struct {
	NRepetitions             int              `yaml:"n_repetitions"`
	NOuterFolds              int              `yaml:"n_outer_folds"`
	NInnerFolds              int              `yaml:"n_inner_folds"`
	HyperparameterCandidates []float64        `yaml:"hyperparameter_candidates"`
	ScoringRule              string           `yaml:"scoring_rule"`
	Seed                     uint64           `yaml:"seed"`
	Workers                  int              `yaml:"workers"`       // outer-fold tasks; 0 = one per CPU
	InnerWorkers             int              `yaml:"inner_workers"` // inner tasks per outer fold; 0 = one per CPU
	LogLevel                 string           `yaml:"log_level"`
	Classifier               ClassifierConfig `yaml:"classifier"`
	Data                     DataConfig       `yaml:"data"`
	Output                   OutputConfig     `yaml:"output"`
}

// ClassifierConfig controls the linear SVM solver.
type ClassifierConfig struct {
	MaxIter          int     `yaml:"max_iter"`
	Tol              float64 `yaml:"tol"`
	CalibrationFolds int     `yaml:"calibration_folds"`
}

// DataConfig locates the input table.
type DataConfig struct {
	Path              string `yaml:"path"`
	NormalizeBy       string `yaml:"normalize_by"`
	dataset.TableSpec `yaml:",inline"`
}

// OutputConfig controls run artifacts.
type OutputConfig struct {
	Dir               string `yaml:"dir"`
	PredictionsFormat string `yaml:"predictions_format"` // "csv" or "xlsx"
	Plot              bool   `yaml:"plot"`
}

// DefaultConfig returns the configuration of the reference experiment:
// 10 repetitions of 10-fold CV with a 5-fold inner search over C = 2^k.
func DefaultConfig() *Config {
	return &Config{
		NRepetitions: 10,
		NOuterFolds:  10,
		NInnerFolds:  5,
		HyperparameterCandidates: []float64{
			math.Pow(2, -7), math.Pow(2, -5), math.Pow(2, -3), math.Pow(2, -1),
			1, 2, math.Pow(2, 3), math.Pow(2, 5), math.Pow(2, 7),
		},
		ScoringRule:  string(model_selection.NegMeanAbsoluteError),
		Seed:         0,
		Workers:      0,
		InnerWorkers: 1,
		LogLevel:     "info",
		Classifier: ClassifierConfig{
			MaxIter:          1000,
			Tol:              1e-3,
			CalibrationFolds: 5,
		},
		Data: DataConfig{
			TableSpec: dataset.TableSpec{
				IDColumn:    "Participant_ID",
				LabelColumn: "Diagn",
			},
		},
		Output: OutputConfig{
			Dir:               "results",
			PredictionsFormat: "csv",
			Plot:              true,
		},
	}
}

// Load reads a YAML config file over the defaults.
// If the file does not exist, it returns the default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrap(err, "reading config")
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	return cfg, nil
}

// ApplyEnv overrides settings from NESTCV_* environment variables.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvSeed); ok && v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return errors.NewConfigurationError("seed", EnvSeed+" must be a non-negative integer", v)
		}
		c.Seed = seed
	}
	if v, ok := lookup(EnvWorkers); ok && v != "" {
		workers, err := strconv.Atoi(v)
		if err != nil {
			return errors.NewConfigurationError("workers", EnvWorkers+" must be an integer", v)
		}
		c.Workers = workers
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvOutputDir); ok && v != "" {
		c.Output.Dir = v
	}
	return nil
}

// Validate returns a ConfigurationError describing the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.NRepetitions < 1:
		return errors.NewConfigurationError("n_repetitions", "must be at least 1", c.NRepetitions)
	case c.NOuterFolds < 2:
		return errors.NewConfigurationError("n_outer_folds", "must be at least 2", c.NOuterFolds)
	case c.NInnerFolds < 2:
		return errors.NewConfigurationError("n_inner_folds", "must be at least 2", c.NInnerFolds)
	case c.Workers < 0:
		return errors.NewConfigurationError("workers", "must not be negative", c.Workers)
	case c.InnerWorkers < 0:
		return errors.NewConfigurationError("inner_workers", "must not be negative", c.InnerWorkers)
	case c.Classifier.MaxIter < 1:
		return errors.NewConfigurationError("classifier.max_iter", "must be at least 1", c.Classifier.MaxIter)
	case !(c.Classifier.Tol > 0):
		return errors.NewConfigurationError("classifier.tol", "must be positive", c.Classifier.Tol)
	case c.Classifier.CalibrationFolds < 2:
		return errors.NewConfigurationError("classifier.calibration_folds", "must be at least 2", c.Classifier.CalibrationFolds)
	}
	if err := model_selection.ValidateCandidates(c.HyperparameterCandidates); err != nil {
		return err
	}
	if _, err := model_selection.ParseScoringRule(c.ScoringRule); err != nil {
		return err
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Output.PredictionsFormat {
	case "csv", "xlsx":
	default:
		return errors.NewConfigurationError("output.predictions_format", "must be csv or xlsx", c.Output.PredictionsFormat)
	}
	return nil
}

// Scoring returns the validated scoring rule.
func (c *Config) Scoring() model_selection.ScoringRule {
	rule, _ := model_selection.ParseScoringRule(c.ScoringRule)
	return rule
}
