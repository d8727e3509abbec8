package pipeline

import (
	"math"
	"os"

	"github.com/rs/zerolog"

	"github.com/gyeh/claimrisk/internal/config"
	"github.com/gyeh/claimrisk/internal/grouping"
	"github.com/gyeh/claimrisk/internal/model"
)

// Plan reports what Preprocess would produce for the input file without
// writing anything.
func Plan(log zerolog.Logger, cfg *config.Config) (*model.PlanSummary, error) {
	stat, err := os.Stat(cfg.InputPath)
	if err != nil {
		return nil, phaseErr(PhaseLoad, err)
	}
	l, err := loadLabeled(log, cfg)
	if err != nil {
		return nil, err
	}

	b := cfg.Builder()
	_, mappings, rep, err := b.Fit(l.table, l.labels)
	if err != nil {
		return nil, phaseErr(PhaseFeatures, err)
	}

	n := l.table.Len()
	nTest := int(math.Round(cfg.TestFraction * float64(n)))
	summary := &model.PlanSummary{
		InputPath:    cfg.InputPath,
		InputSHA256:  l.sha256,
		SizeBytes:    stat.Size(),
		Rows:         n,
		Positives:    l.positives(),
		PositiveRate: positiveRate(l.labels),
		TrainRows:    n - nTest,
		TestRows:     nTest,
		BadCharges:   rep.BadCharges,
	}
	for _, c := range b.Columns {
		m := mappings[c.Feature]
		counts := m.TierCounts()
		summary.Columns = append(summary.Columns, model.ColumnPlan{
			Source:   c.Source,
			Feature:  c.Feature,
			Present:  l.table.Has(c.Source),
			Distinct: m.Len(),
			High:     counts[grouping.TierHigh],
			Low:      counts[grouping.TierLow],
			Rare:     counts[grouping.TierRare],
		})
	}
	return summary, nil
}
