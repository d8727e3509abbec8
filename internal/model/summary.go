package model

import (
	"time"

	"github.com/gyeh/claimrisk/internal/evaluate"
)

// PreprocessSummary captures metrics from building train/test feature tables.
type PreprocessSummary struct {
	InputPath       string
	InputSHA256     string
	RowsRead        int
	Positives       int
	TrainRows       int
	TestRows        int
	MissingColumns  []string
	BadCharges      int
	TrainPath       string
	TestPath        string
	MappingsPath    string
	DurationRead    time.Duration
	DurationFeature time.Duration
	DurationWrite   time.Duration
	DurationTotal   time.Duration
}

// TrainSummary captures metrics from fitting and evaluating one model.
type TrainSummary struct {
	ArtifactID    string
	ArtifactPath  string
	ModelKind     string
	TrainRows     int
	TestRows      int
	Features      []string
	Metrics       evaluate.Metrics
	DurationFit   time.Duration
	DurationTotal time.Duration
}

// ScoreSummary captures metrics from scoring one claims file.
type ScoreSummary struct {
	BatchID        string
	ArtifactID     string
	ScoringMethod  string
	RowsScored     int
	RowsCopied     int64
	MissingColumns []string
	ExtraColumns   []string
	BadCharges     int
	Suggestions    map[string]int
	DurationScore  time.Duration
	DurationCopy   time.Duration
	DurationTotal  time.Duration
}

// ColumnPlan describes how one categorical column would be grouped.
type ColumnPlan struct {
	Source   string
	Feature  string
	Present  bool
	Distinct int
	High     int // distinct values per tier
	Low      int
	Rare     int
}

// PlanSummary is the dry-run report for a claims file. Nothing is written.
type PlanSummary struct {
	InputPath    string
	InputSHA256  string
	SizeBytes    int64
	Rows         int
	Positives    int
	PositiveRate float64
	TrainRows    int
	TestRows     int
	BadCharges   int
	Columns      []ColumnPlan
}
