package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/claimrisk/internal/claims"
	"github.com/gyeh/claimrisk/internal/config"
	"github.com/gyeh/claimrisk/internal/features"
	"github.com/gyeh/claimrisk/internal/model"
	"github.com/gyeh/claimrisk/internal/normalize"
)

// Pipeline phases reported in PhaseError.
const (
	PhaseConfig   = "config"
	PhaseLoad     = "load"
	PhaseLabel    = "label"
	PhaseFeatures = "features"
	PhaseWrite    = "write"
	PhaseTrain    = "train"
	PhaseEvaluate = "evaluate"
	PhaseSave     = "save"
	PhaseScore    = "score"
	PhaseSink     = "sink"
)

// PhaseError wraps an error with the phase where it occurred.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

func phaseErr(phase string, err error) error {
	return &PhaseError{Phase: phase, Err: err}
}

// Sink receives scored claims after the output file is written.
type Sink interface {
	Write(ctx context.Context, batch model.ScoringBatch, rows []*model.ScoredClaim) (int64, error)
}

// labeled is a claims file with its derived labels.
type labeled struct {
	table  *claims.Table
	labels []int
	sha256 string
	read   time.Duration
}

func (l *labeled) positives() int {
	n := 0
	for _, v := range l.labels {
		n += v
	}
	return n
}

func loadLabeled(log zerolog.Logger, cfg *config.Config) (*labeled, error) {
	start := time.Now()
	tbl, err := claims.Load(cfg.InputPath)
	if err != nil {
		return nil, phaseErr(PhaseLoad, err)
	}
	sha, err := normalize.FileHash(cfg.InputPath)
	if err != nil {
		return nil, phaseErr(PhaseLoad, err)
	}
	labels, err := claims.AssignLabels(tbl, cfg.DenialColumn, cfg.CodeSet(), cfg.DenialNormalize())
	if err != nil {
		return nil, phaseErr(PhaseLabel, err)
	}

	l := &labeled{table: tbl, labels: labels, sha256: sha, read: time.Since(start)}
	log.Info().
		Str("file", cfg.InputPath).
		Int("rows", tbl.Len()).
		Int("positives", l.positives()).
		Str("duration", l.read.String()).
		Msg("claims loaded")
	return l, nil
}

// logReport records the recoveries a feature build made.
func logReport(log zerolog.Logger, rep *features.Report) {
	for _, col := range rep.MissingColumns {
		log.Warn().Str("column", col).Msg("column absent from claims; every row grouped as rare")
	}
	if rep.BadCharges > 0 {
		log.Debug().Int("rows", rep.BadCharges).Msg("absent or unparseable charge amounts set to 0")
	}
	if rep.PlaceholderLabel {
		log.Debug().Msg("label column filled with placeholder zeros")
	}
}

func positiveRate(labels []int) float64 {
	if len(labels) == 0 {
		return 0
	}
	n := 0
	for _, l := range labels {
		n += l
	}
	return float64(n) / float64(len(labels))
}
