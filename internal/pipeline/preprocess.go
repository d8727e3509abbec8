package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/claimrisk/internal/artifact"
	"github.com/gyeh/claimrisk/internal/config"
	"github.com/gyeh/claimrisk/internal/features"
	"github.com/gyeh/claimrisk/internal/grouping"
	"github.com/gyeh/claimrisk/internal/model"
	"github.com/gyeh/claimrisk/internal/parquetio"
)

// fitFeatures labels and groups the claims and splits the result.
func fitFeatures(log zerolog.Logger, cfg *config.Config, l *labeled) (train, test *features.Table, spec artifact.FeatureSpec, rep *features.Report, err error) {
	b := cfg.Builder()
	ft, mappings, rep, err := b.Fit(l.table, l.labels)
	if err != nil {
		return nil, nil, spec, nil, phaseErr(PhaseFeatures, err)
	}
	logReport(log, rep)
	for _, c := range b.Columns {
		counts := mappings[c.Feature].TierCounts()
		log.Debug().
			Str("feature", c.Feature).
			Int("distinct", mappings[c.Feature].Len()).
			Int("high", counts[grouping.TierHigh]).
			Int("low", counts[grouping.TierLow]).
			Int("rare", counts[grouping.TierRare]).
			Msg("column grouped")
	}

	train, test, err = features.Split(ft, cfg.TestFraction, cfg.Seed)
	if err != nil {
		return nil, nil, spec, nil, phaseErr(PhaseFeatures, err)
	}

	spec = artifact.NewFeatureSpec(b, mappings)
	spec.DenialColumn = cfg.DenialColumn
	spec.DenialNormalize = cfg.DenialNormalize()
	spec.CodesOfInterest = append([]string(nil), cfg.CodesOfInterest...)
	spec.SourceSHA256 = l.sha256
	spec.SourceRows = l.table.Len()
	spec.PositiveRate = positiveRate(l.labels)
	return train, test, spec, rep, nil
}

// Preprocess builds the train and test feature tables from a labeled claims
// file and writes them as Parquet, with the fitted mappings in a sidecar
// next to the training file.
func Preprocess(ctx context.Context, log zerolog.Logger, cfg *config.Config) (*model.PreprocessSummary, error) {
	totalStart := time.Now()
	if cfg.TrainPath == "" || cfg.TestPath == "" {
		return nil, phaseErr(PhaseConfig, fmt.Errorf("train and test output paths are required"))
	}

	l, err := loadLabeled(log, cfg)
	if err != nil {
		return nil, err
	}

	featStart := time.Now()
	train, test, spec, rep, err := fitFeatures(log, cfg, l)
	if err != nil {
		return nil, err
	}
	featDur := time.Since(featStart)

	if err := ctx.Err(); err != nil {
		return nil, phaseErr(PhaseWrite, err)
	}

	writeStart := time.Now()
	if err := parquetio.WriteTable(cfg.TrainPath, train); err != nil {
		return nil, phaseErr(PhaseWrite, err)
	}
	if err := parquetio.WriteTable(cfg.TestPath, test); err != nil {
		return nil, phaseErr(PhaseWrite, err)
	}
	sidecar := artifact.SidecarPath(cfg.TrainPath)
	if err := artifact.SaveFeatureSpec(sidecar, spec); err != nil {
		return nil, phaseErr(PhaseWrite, err)
	}

	summary := &model.PreprocessSummary{
		InputPath:       cfg.InputPath,
		InputSHA256:     l.sha256,
		RowsRead:        l.table.Len(),
		Positives:       l.positives(),
		TrainRows:       train.Len(),
		TestRows:        test.Len(),
		MissingColumns:  rep.MissingColumns,
		BadCharges:      rep.BadCharges,
		TrainPath:       cfg.TrainPath,
		TestPath:        cfg.TestPath,
		MappingsPath:    sidecar,
		DurationRead:    l.read,
		DurationFeature: featDur,
		DurationWrite:   time.Since(writeStart),
		DurationTotal:   time.Since(totalStart),
	}

	log.Info().
		Int("rows_read", summary.RowsRead).
		Int("train_rows", summary.TrainRows).
		Int("test_rows", summary.TestRows).
		Str("train", cfg.TrainPath).
		Str("test", cfg.TestPath).
		Str("total_duration", summary.DurationTotal.String()).
		Msg("preprocess complete")
	return summary, nil
}
