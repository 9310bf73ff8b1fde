// Package config loads run settings from an optional YAML file, applies
// environment overrides and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/viniciusrubens/featurepipe/pkg/artifact"
	"github.com/viniciusrubens/featurepipe/pkg/errs"
	"github.com/viniciusrubens/featurepipe/pkg/features"
	"github.com/viniciusrubens/featurepipe/pkg/model"
	"github.com/viniciusrubens/featurepipe/pkg/store"
)

// Environment variables read by Load after the file.
const (
	EnvSeed         = "FEATUREPIPE_SEED"
	EnvStoreURI     = "FEATUREPIPE_STORE_URI"
	EnvTable        = "FEATUREPIPE_TABLE"
	EnvArtifactsDir = "FEATUREPIPE_ARTIFACTS_DIR"
	EnvLogLevel     = "FEATUREPIPE_LOG_LEVEL"
)

// DefaultStoreURI is the SQLite file used by the reference run.
const DefaultStoreURI = "sqlite:///feature_store/feature_store.db"

// Config holds every setting of one pipeline run.
type Config struct {
	Seed      int64           `yaml:"seed"`
	Generator GeneratorConfig `yaml:"generator"`
	Store     StoreConfig     `yaml:"store"`
	Training  TrainingConfig  `yaml:"training"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type GeneratorConfig struct {
	Samples     int `yaml:"samples" validate:"gt=0"`
	Features    int `yaml:"features" validate:"gt=0"`
	Independent int `yaml:"independent" validate:"gte=2"`
	Derived     int `yaml:"derived" validate:"gte=0"`
}

type StoreConfig struct {
	URI   string `yaml:"uri" validate:"required"`
	Table string `yaml:"table" validate:"required"`
}

type TrainingConfig struct {
	TestFraction float64 `yaml:"test_fraction" validate:"gt=0,lt=1"`
	Label        string  `yaml:"label" validate:"required"`
	Model        string  `yaml:"model" validate:"required,classifier"`

	NEstimators  int     `yaml:"n_estimators" validate:"gte=0"`
	MaxDepth     int     `yaml:"max_depth" validate:"gte=0"`
	NJobs        int     `yaml:"n_jobs" validate:"gte=0"`
	K            int     `yaml:"k" validate:"gte=0"`
	LearningRate float64 `yaml:"learning_rate" validate:"gte=0"`
	Epochs       int     `yaml:"epochs" validate:"gte=0"`
	BatchSize    int     `yaml:"batch_size" validate:"gte=0"`
}

type ArtifactsConfig struct {
	Dir             string `yaml:"dir" validate:"required"`
	ModelFile       string `yaml:"model_file" validate:"required"`
	PredictionsFile string `yaml:"predictions_file" validate:"required"`
	RunInfoFile     string `yaml:"run_info_file" validate:"required"`
	Plots           bool   `yaml:"plots"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

type MetricsConfig struct {
	// File receives the run's metrics in Prometheus text format. Empty
	// disables the export.
	File string `yaml:"file"`
}

// Default reproduces the reference run: seed 42, 100 samples by 20
// features, an 80/20 split and a 100-tree forest.
func Default() Config {
	return Config{
		Seed: 42,
		Generator: GeneratorConfig{
			Samples:     100,
			Features:    20,
			Independent: 2,
			Derived:     10,
		},
		Store: StoreConfig{
			URI:   DefaultStoreURI,
			Table: store.DefaultTable,
		},
		Training: TrainingConfig{
			TestFraction: 0.2,
			Label:        features.LabelColumn,
			Model:        model.DefaultKind,
			NEstimators:  100,
			NJobs:        1,
		},
		Artifacts: ArtifactsConfig{
			Dir:             artifact.DefaultDir,
			ModelFile:       artifact.ModelFile,
			PredictionsFile: artifact.PredictionsFile,
			RunInfoFile:     artifact.RunInfoFile,
			Plots:           true,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("classifier", func(fl validator.FieldLevel) bool {
		_, err := model.New(fl.Field().String(), model.Params{})
		return err == nil
	})
}

// Load returns Default overlaid with the YAML file at path (skipped when
// path is empty) and then with environment overrides, validated.
func Load(path string) (Config, error) {
	const op = "config.Load"
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, errs.Wrap(errs.InvalidConfiguration, op, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errs.Wrap(errs.InvalidConfiguration, op, fmt.Errorf("parse %s: %w", path, err))
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, errs.Wrap(errs.InvalidConfiguration, op, err)
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvSeed); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSeed, err)
		}
		cfg.Seed = seed
	}
	if v := os.Getenv(EnvStoreURI); v != "" {
		cfg.Store.URI = v
	}
	if v := os.Getenv(EnvTable); v != "" {
		cfg.Store.Table = v
	}
	if v := os.Getenv(EnvArtifactsDir); v != "" {
		cfg.Artifacts.Dir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

// Validate checks field constraints and the cross-field rule that the
// independent and derived groups fit inside the feature count.
func (c Config) Validate() error {
	const op = "config.Validate"
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errs.New(errs.InvalidConfiguration, op, "%s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return errs.Wrap(errs.InvalidConfiguration, op, err)
	}
	g := c.Generator
	if g.Independent+g.Derived > g.Features {
		return errs.New(errs.InvalidConfiguration, op,
			"independent (%d) + derived (%d) exceed features (%d)", g.Independent, g.Derived, g.Features)
	}
	return nil
}

// FeatureConfig returns the settings for features.Generate.
func (c Config) FeatureConfig() features.Config {
	return features.Config{
		Seed:        c.Seed,
		Samples:     c.Generator.Samples,
		Features:    c.Generator.Features,
		Independent: c.Generator.Independent,
		Derived:     c.Generator.Derived,
	}
}

// ModelParams returns the hyperparameters for model.New, seeded with Seed.
func (c Config) ModelParams() model.Params {
	t := c.Training
	return model.Params{
		RandomState:  c.Seed,
		NEstimators:  t.NEstimators,
		MaxDepth:     t.MaxDepth,
		NJobs:        t.NJobs,
		K:            t.K,
		LearningRate: t.LearningRate,
		Epochs:       t.Epochs,
		BatchSize:    t.BatchSize,
	}
}
