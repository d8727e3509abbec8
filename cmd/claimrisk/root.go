package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gyeh/claimrisk/internal/config"
	"github.com/gyeh/claimrisk/internal/exitcode"
	"github.com/gyeh/claimrisk/internal/logging"
)

var cfg = config.Default()

// Modelling flags land here first so a --config file can be applied
// underneath them: explicit flags win over the file, the file wins over
// defaults.
var opts struct {
	codes          []string
	high, low      float64
	normalizeCodes bool
	testFraction   float64
	seed           uint64
	modelKind      string
	trees          int
	maxDepth       int
	workers        int
}

var rootCmd = &cobra.Command{
	Use:           "claimrisk",
	Short:         "Healthcare claim denial-risk scorer",
	Long:          "Labels historical claims by denial reason, groups categorical codes into risk tiers, trains a classifier and scores new claims with a denial probability and a suggested action.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.DSN, "dsn", os.Getenv("CLAIMRISK_DB_URL"), "Postgres connection string (or set CLAIMRISK_DB_URL)")
	pf.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	pf.StringVar(&cfg.ConfigFile, "config", "", "YAML config file")
}

// addGroupingFlags registers the settings that shape labels, tiers and the
// train/test split. Commands that read a persisted feature spec do not take them.
func addGroupingFlags(cmd *cobra.Command) {
	def := config.Default()
	f := cmd.Flags()
	f.StringSliceVar(&opts.codes, "codes", def.CodesOfInterest, "Denial reason codes counted as the positive class")
	f.Float64Var(&opts.high, "high-threshold", def.Thresholds.High, "Minimum positive rate for the high-risk tier")
	f.Float64Var(&opts.low, "low-threshold", def.Thresholds.Low, "Minimum positive rate for the low-risk tier")
	f.BoolVar(&opts.normalizeCodes, "normalize-codes", false, "Trim, uppercase and strip punctuation from codes before use")
	f.Float64Var(&opts.testFraction, "test-fraction", def.TestFraction, "Fraction of claims held out for evaluation")
}

// addModelFlags registers the classifier settings.
func addModelFlags(cmd *cobra.Command) {
	def := config.Default()
	f := cmd.Flags()
	f.StringVar(&opts.modelKind, "model-kind", def.ModelKind, "Classifier: forest or linear")
	f.IntVar(&opts.trees, "trees", def.Forest.Trees, "Number of trees in the forest")
	f.IntVar(&opts.maxDepth, "max-depth", def.Forest.MaxDepth, "Maximum tree depth (0 = unlimited)")
	f.IntVar(&opts.workers, "workers", 0, "Parallel tree builders (0 = all CPUs)")
}

func addSeedFlag(cmd *cobra.Command) {
	cmd.Flags().Uint64Var(&opts.seed, "seed", config.Default().Seed, "Random seed for the split and the model")
}

// loadConfig applies the config file and then any explicitly set flags.
func loadConfig(cmd *cobra.Command) error {
	if cfg.ConfigFile != "" {
		if err := cfg.LoadFromFile(cfg.ConfigFile); err != nil {
			return err
		}
	}
	f := cmd.Flags()
	if f.Changed("codes") {
		cfg.CodesOfInterest = opts.codes
	}
	if f.Changed("high-threshold") {
		cfg.Thresholds.High = opts.high
	}
	if f.Changed("low-threshold") {
		cfg.Thresholds.Low = opts.low
	}
	if f.Changed("normalize-codes") {
		cfg.NormalizeCodes = opts.normalizeCodes
	}
	if f.Changed("test-fraction") {
		cfg.TestFraction = opts.testFraction
	}
	if f.Changed("seed") {
		cfg.Seed = opts.seed
	}
	if f.Changed("model-kind") {
		cfg.ModelKind = opts.modelKind
	}
	if f.Changed("trees") {
		cfg.Forest.Trees = opts.trees
	}
	if f.Changed("max-depth") {
		cfg.Forest.MaxDepth = opts.maxDepth
	}
	if f.Changed("workers") {
		cfg.Forest.Workers = opts.workers
	}
	return cfg.Validate()
}

// setup builds the logger and resolves configuration, exiting on failure.
func setup(cmd *cobra.Command) zerolog.Logger {
	log, err := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitcode.UsageError)
	}
	if err := loadConfig(cmd); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.ValidationError)
	}
	return log
}
