package pipeline

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/claimrisk/internal/artifact"
	"github.com/gyeh/claimrisk/internal/classifier"
	"github.com/gyeh/claimrisk/internal/config"
	"github.com/gyeh/claimrisk/internal/evaluate"
	"github.com/gyeh/claimrisk/internal/features"
	"github.com/gyeh/claimrisk/internal/metrics"
	"github.com/gyeh/claimrisk/internal/model"
	"github.com/gyeh/claimrisk/internal/parquetio"
)

// Train fits a model on preprocessed Parquet tables and saves it together
// with the feature spec from the training file's sidecar.
func Train(ctx context.Context, log zerolog.Logger, cfg *config.Config) (*model.TrainSummary, error) {
	totalStart := time.Now()
	if cfg.TrainPath == "" || cfg.TestPath == "" || cfg.ModelPath == "" {
		return nil, phaseErr(PhaseConfig, fmt.Errorf("train, test and model paths are required"))
	}

	train, err := parquetio.ReadTable(cfg.TrainPath)
	if err != nil {
		return nil, phaseErr(PhaseLoad, err)
	}
	test, err := parquetio.ReadTable(cfg.TestPath)
	if err != nil {
		return nil, phaseErr(PhaseLoad, err)
	}
	spec, err := artifact.LoadFeatureSpec(artifact.SidecarPath(cfg.TrainPath))
	if err != nil {
		return nil, phaseErr(PhaseLoad, err)
	}
	if spec.Thresholds != cfg.Thresholds || !slices.Equal(spec.CodesOfInterest, cfg.CodesOfInterest) {
		log.Warn().
			Float64("high_threshold", spec.Thresholds.High).
			Float64("low_threshold", spec.Thresholds.Low).
			Strs("codes", spec.CodesOfInterest).
			Msg("configured grouping differs from the preprocessed tables; using the preprocessed spec")
	}

	return fitAndSave(ctx, log, cfg, train, test, spec, totalStart)
}

// Fit runs preprocessing and training in memory: claims CSV in, artifact out.
func Fit(ctx context.Context, log zerolog.Logger, cfg *config.Config) (*model.TrainSummary, error) {
	totalStart := time.Now()
	if cfg.ModelPath == "" {
		return nil, phaseErr(PhaseConfig, fmt.Errorf("model path is required"))
	}

	l, err := loadLabeled(log, cfg)
	if err != nil {
		return nil, err
	}
	train, test, spec, _, err := fitFeatures(log, cfg, l)
	if err != nil {
		return nil, err
	}
	return fitAndSave(ctx, log, cfg, train, test, spec, totalStart)
}

func fitAndSave(ctx context.Context, log zerolog.Logger, cfg *config.Config, train, test *features.Table, spec artifact.FeatureSpec, totalStart time.Time) (*model.TrainSummary, error) {
	cols := train.FeatureNames()
	X, _ := features.Align(train, cols)
	y := train.Labels()

	m, err := cfg.NewModel()
	if err != nil {
		return nil, phaseErr(PhaseConfig, err)
	}

	fitStart := time.Now()
	log.Info().
		Str("model", m.Kind()).
		Int("rows", len(X)).
		Int("features", len(cols)).
		Msg("fitting model")
	if err := m.Fit(ctx, X, y); err != nil {
		return nil, phaseErr(PhaseTrain, err)
	}
	fitDur := time.Since(fitStart)

	Xt, rep := features.Align(test, cols)
	if len(rep.Missing) > 0 || len(rep.Extra) > 0 {
		log.Warn().Strs("missing", rep.Missing).Strs("extra", rep.Extra).Msg("test table columns differ from training")
	}
	result, err := evaluateModel(m, Xt, test.Labels())
	if err != nil {
		return nil, phaseErr(PhaseEvaluate, err)
	}
	log.Info().Str("metrics", result.String()).Msg("model evaluated")

	a, err := artifact.New(m, cols, spec)
	if err != nil {
		return nil, phaseErr(PhaseSave, err)
	}
	a.Metrics = result
	a.TrainRows = train.Len()
	a.TestRows = test.Len()
	if err := artifact.Save(cfg.ModelPath, a); err != nil {
		return nil, phaseErr(PhaseSave, err)
	}

	if cfg.MetricsFile != "" {
		snap := metrics.Snapshot{
			ModelKind:    a.ModelKind,
			ArtifactID:   a.ID,
			TrainRows:    a.TrainRows,
			TestRows:     a.TestRows,
			PositiveRate: positiveRate(y),
			Evaluation:   result,
		}
		if err := metrics.WriteTextfile(cfg.MetricsFile, snap); err != nil {
			return nil, phaseErr(PhaseSave, err)
		}
	}

	summary := &model.TrainSummary{
		ArtifactID:    a.ID,
		ArtifactPath:  cfg.ModelPath,
		ModelKind:     a.ModelKind,
		TrainRows:     a.TrainRows,
		TestRows:      a.TestRows,
		Features:      cols,
		Metrics:       result,
		DurationFit:   fitDur,
		DurationTotal: time.Since(totalStart),
	}
	log.Info().
		Str("artifact_id", a.ID).
		Str("model", cfg.ModelPath).
		Str("fit_duration", fitDur.String()).
		Str("total_duration", summary.DurationTotal.String()).
		Msg("training complete")
	return summary, nil
}

// evaluateModel scores the held-out rows with the same scorer used at
// inference.
func evaluateModel(m classifier.Model, X [][]float64, y []int) (evaluate.Metrics, error) {
	if len(X) == 0 {
		return evaluate.Metrics{}, nil
	}
	scorer, err := classifier.NewScorer(m)
	if err != nil {
		return evaluate.Metrics{}, err
	}
	scores, err := scorer.Score(X)
	if err != nil {
		return evaluate.Metrics{}, err
	}
	pred, err := m.Predict(X)
	if err != nil {
		return evaluate.Metrics{}, err
	}
	return evaluate.Compute(y, pred, scores)
}
