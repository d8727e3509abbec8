package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gyeh/claimrisk/internal/claims"
	"github.com/gyeh/claimrisk/internal/classifier"
	"github.com/gyeh/claimrisk/internal/features"
	"github.com/gyeh/claimrisk/internal/grouping"
	"github.com/gyeh/claimrisk/internal/normalize"
)

// Model kinds selectable with --model / model_kind.
const (
	ModelForest = "forest"
	ModelLinear = "linear"
)

// DefaultCodes are the denial reason codes treated as the positive class.
var DefaultCodes = []string{"F13", "J8G", "JO5", "JB8", "JE1", "JC9", "JF1", "JF9", "JG1", "JPA", "JES"}

// Config holds all runtime configuration for a claimrisk run.
type Config struct {
	DSN         string
	LogFormat   string // "text" or "json"
	LogLevel    string
	ConfigFile  string
	InputPath   string // claims CSV
	TrainPath   string // feature parquet
	TestPath    string
	ModelPath   string // msgpack artifact
	OutputPath  string // scored CSV
	MetricsFile string // prometheus textfile, optional
	CopyBatch   int    // rows per COPY batch into the scored-claims table

	CodesOfInterest []string
	Thresholds      grouping.Thresholds
	Columns         []features.Column
	ChargeColumn    string
	DenialColumn    string
	NormalizeCodes  bool // apply code normalization to denial codes and unconfigured columns
	TestFraction    float64
	Seed            uint64
	ModelKind       string
	Forest          classifier.ForestConfig
	Linear          classifier.LinearConfig
}

// Default returns the configuration used when no file or flag overrides it.
func Default() Config {
	forest := classifier.DefaultForestConfig()
	linear := classifier.DefaultLinearConfig()
	return Config{
		LogFormat:       "text",
		CopyBatch:       5000,
		CodesOfInterest: append([]string(nil), DefaultCodes...),
		Thresholds:      grouping.DefaultThresholds(),
		Columns:         features.DefaultColumns(),
		ChargeColumn:    claims.ChargeColumn,
		DenialColumn:    claims.DenialColumn,
		TestFraction:    0.2,
		Seed:            42,
		ModelKind:       ModelForest,
		Forest:          forest,
		Linear:          linear,
	}
}

// yamlConfig is the on-disk YAML structure. Pointer fields distinguish
// "unset" from a zero value.
type yamlConfig struct {
	CodesOfInterest    []string          `yaml:"codes_of_interest"`
	HighThreshold      *float64          `yaml:"high_threshold"`
	LowThreshold       *float64          `yaml:"low_threshold"`
	CategoricalColumns []features.Column `yaml:"categorical_columns"`
	ChargeColumn       string            `yaml:"charge_column"`
	DenialColumn       string            `yaml:"denial_column"`
	NormalizeCodes     *bool             `yaml:"normalize_codes"`
	TestFraction       *float64          `yaml:"test_fraction"`
	Seed               *uint64           `yaml:"seed"`
	ModelKind          string            `yaml:"model_kind"`
	Forest             *yamlForest       `yaml:"forest"`
	Linear             *yamlLinear       `yaml:"linear"`
}

type yamlForest struct {
	Trees           *int `yaml:"trees"`
	MaxDepth        *int `yaml:"max_depth"`
	MinSamplesSplit *int `yaml:"min_samples_split"`
	MaxFeatures     *int `yaml:"max_features"`
	Workers         *int `yaml:"workers"`
}

type yamlLinear struct {
	Epochs       *int     `yaml:"epochs"`
	Lambda       *float64 `yaml:"lambda"`
	LearningRate *float64 `yaml:"learning_rate"`
}

// LoadFromFile reads a YAML config file and merges its values into Config.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if len(yc.CodesOfInterest) > 0 {
		c.CodesOfInterest = yc.CodesOfInterest
	}
	if yc.HighThreshold != nil {
		c.Thresholds.High = *yc.HighThreshold
	}
	if yc.LowThreshold != nil {
		c.Thresholds.Low = *yc.LowThreshold
	}
	if len(yc.CategoricalColumns) > 0 {
		c.Columns = yc.CategoricalColumns
	}
	if yc.ChargeColumn != "" {
		c.ChargeColumn = yc.ChargeColumn
	}
	if yc.DenialColumn != "" {
		c.DenialColumn = yc.DenialColumn
	}
	if yc.NormalizeCodes != nil {
		c.NormalizeCodes = *yc.NormalizeCodes
	}
	if yc.TestFraction != nil {
		c.TestFraction = *yc.TestFraction
	}
	if yc.Seed != nil {
		c.Seed = *yc.Seed
	}
	if yc.ModelKind != "" {
		c.ModelKind = yc.ModelKind
	}
	if f := yc.Forest; f != nil {
		setInt(&c.Forest.Trees, f.Trees)
		setInt(&c.Forest.MaxDepth, f.MaxDepth)
		setInt(&c.Forest.MinSamplesSplit, f.MinSamplesSplit)
		setInt(&c.Forest.MaxFeatures, f.MaxFeatures)
		setInt(&c.Forest.Workers, f.Workers)
	}
	if l := yc.Linear; l != nil {
		setInt(&c.Linear.Epochs, l.Epochs)
		if l.Lambda != nil {
			c.Linear.Lambda = *l.Lambda
		}
		if l.LearningRate != nil {
			c.Linear.LearningRate = *l.LearningRate
		}
	}
	c.ConfigFile = path
	return nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// Builder returns the feature builder this config describes. With
// NormalizeCodes set, columns without an explicit normalization get code
// normalization.
func (c *Config) Builder() *features.Builder {
	cols := make([]features.Column, len(c.Columns))
	for i, col := range c.Columns {
		if c.NormalizeCodes && col.Normalize == normalize.KindNone {
			col.Normalize = normalize.KindCode
		}
		cols[i] = col
	}
	return &features.Builder{
		ChargeSource: c.ChargeColumn,
		Columns:      cols,
		Thresholds:   c.Thresholds,
	}
}

// DenialNormalize is the normalization applied to denial reason codes and
// to the configured codes of interest.
func (c *Config) DenialNormalize() normalize.Kind {
	if c.NormalizeCodes {
		return normalize.KindCode
	}
	return normalize.KindNone
}

// CodeSet returns the configured codes of interest as a lookup set.
func (c *Config) CodeSet() claims.CodeSet {
	return claims.NewCodeSet(c.DenialNormalize().All(c.CodesOfInterest))
}

// ForestConfig returns the forest settings with the run seed applied.
func (c *Config) ForestConfig() classifier.ForestConfig {
	f := c.Forest
	f.Seed = c.Seed
	return f
}

// LinearConfig returns the linear model settings with the run seed applied.
func (c *Config) LinearConfig() classifier.LinearConfig {
	l := c.Linear
	l.Seed = c.Seed
	return l
}

// NewModel returns an unfitted classifier of the configured kind.
func (c *Config) NewModel() (classifier.Model, error) {
	switch c.ModelKind {
	case ModelForest:
		return classifier.NewRandomForest(c.ForestConfig()), nil
	case ModelLinear:
		return classifier.NewLinearSVM(c.LinearConfig()), nil
	default:
		return nil, fmt.Errorf("unknown model kind %q (want %s or %s)", c.ModelKind, ModelForest, ModelLinear)
	}
}

// Validate checks the modelling settings shared by every command.
func (c *Config) Validate() error {
	if len(c.CodesOfInterest) == 0 {
		return fmt.Errorf("codes_of_interest must not be empty")
	}
	if c.ChargeColumn == "" || c.DenialColumn == "" {
		return fmt.Errorf("charge and denial column names are required")
	}
	if len(c.Columns) == 0 {
		return fmt.Errorf("at least one categorical column is required")
	}
	if err := c.Builder().Validate(); err != nil {
		return err
	}
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		return fmt.Errorf("test_fraction %v outside (0,1)", c.TestFraction)
	}
	if c.ModelKind != ModelForest && c.ModelKind != ModelLinear {
		return fmt.Errorf("unknown model kind %q (want %s or %s)", c.ModelKind, ModelForest, ModelLinear)
	}
	if c.Forest.Trees <= 0 {
		return fmt.Errorf("forest.trees must be positive")
	}
	if c.Forest.MaxDepth < 0 || c.Forest.Workers < 0 || c.Forest.MaxFeatures < 0 {
		return fmt.Errorf("forest settings must not be negative")
	}
	if c.CopyBatch <= 0 {
		return fmt.Errorf("copy batch size must be positive")
	}
	return nil
}

// RequireFile checks that a path flag is set and points at a readable file.
func RequireFile(flag, path string) error {
	if path == "" {
		return fmt.Errorf("--%s is required", flag)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("file not accessible: %w", err)
	}
	return nil
}

// RequireOutput checks that an output path flag is set.
func RequireOutput(flag, path string) error {
	if path == "" {
		return fmt.Errorf("--%s is required", flag)
	}
	return nil
}
