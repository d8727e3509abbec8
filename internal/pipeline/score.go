package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gyeh/claimrisk/internal/artifact"
	"github.com/gyeh/claimrisk/internal/claims"
	"github.com/gyeh/claimrisk/internal/classifier"
	"github.com/gyeh/claimrisk/internal/config"
	"github.com/gyeh/claimrisk/internal/features"
	"github.com/gyeh/claimrisk/internal/model"
	"github.com/gyeh/claimrisk/internal/normalize"
	"github.com/gyeh/claimrisk/internal/suggest"
)

// Score applies a saved artifact to an unlabeled claims file and writes the
// claims back out with denial_risk and suggestion columns. Features are
// rebuilt from the artifact's persisted mappings only. When sink is non-nil
// the scored rows are also loaded into it.
func Score(ctx context.Context, log zerolog.Logger, cfg *config.Config, sink Sink) (*model.ScoreSummary, error) {
	totalStart := time.Now()
	if cfg.ModelPath == "" || cfg.InputPath == "" || cfg.OutputPath == "" {
		return nil, phaseErr(PhaseConfig, fmt.Errorf("model, input and output paths are required"))
	}

	a, err := artifact.Load(cfg.ModelPath)
	if err != nil {
		return nil, phaseErr(PhaseLoad, err)
	}
	tbl, err := claims.Load(cfg.InputPath)
	if err != nil {
		return nil, phaseErr(PhaseLoad, err)
	}
	log.Info().
		Str("artifact_id", a.ID).
		Str("model", a.ModelKind).
		Str("file", cfg.InputPath).
		Int("rows", tbl.Len()).
		Msg("scoring claims")

	scoreStart := time.Now()
	risk, method, frep, arep, err := scoreTable(a, tbl)
	if err != nil {
		return nil, err
	}
	logReport(log, frep)
	if len(arep.Missing) > 0 {
		log.Warn().Strs("columns", arep.Missing).Msg("training columns absent at scoring; filled with 0")
	}
	if len(arep.Extra) > 0 {
		log.Warn().Strs("columns", arep.Extra).Msg("columns unknown to the model dropped")
	}
	suggestions := suggest.All(risk)
	scoreDur := time.Since(scoreStart)

	if err := claims.WriteScoredFile(cfg.OutputPath, tbl, risk, suggestions); err != nil {
		return nil, phaseErr(PhaseWrite, err)
	}

	summary := &model.ScoreSummary{
		ArtifactID:     a.ID,
		ScoringMethod:  method,
		RowsScored:     tbl.Len(),
		MissingColumns: append(frep.MissingColumns, arep.Missing...),
		ExtraColumns:   arep.Extra,
		BadCharges:     frep.BadCharges,
		Suggestions:    suggest.Counts(suggestions),
		DurationScore:  scoreDur,
	}

	if sink != nil {
		copyStart := time.Now()
		batch := model.ScoringBatch{
			ID:            uuid.New(),
			ArtifactID:    a.ID,
			ModelKind:     a.ModelKind,
			ScoringMethod: method,
			SourcePath:    cfg.InputPath,
			CreatedAt:     time.Now().UTC(),
		}
		if sha, err := normalize.FileHash(cfg.InputPath); err == nil {
			batch.SourceSHA256 = sha
		}
		rows := make([]*model.ScoredClaim, tbl.Len())
		for i := range rows {
			rows[i] = &model.ScoredClaim{
				BatchID:    batch.ID,
				RowNumber:  int64(i + 1),
				DenialRisk: risk[i],
				Suggestion: suggestions[i],
				Claim:      tbl.Row(i),
			}
		}
		n, err := sink.Write(ctx, batch, rows)
		if err != nil {
			return nil, phaseErr(PhaseSink, err)
		}
		summary.BatchID = batch.ID.String()
		summary.RowsCopied = n
		summary.DurationCopy = time.Since(copyStart)
	}

	summary.DurationTotal = time.Since(totalStart)
	log.Info().
		Int("rows_scored", summary.RowsScored).
		Str("method", method).
		Int("attach_authorization", summary.Suggestions[suggest.AttachAuthorization]).
		Int("review_coding", summary.Suggestions[suggest.ReviewCoding]).
		Str("output", cfg.OutputPath).
		Str("total_duration", summary.DurationTotal.String()).
		Msg("scoring complete")
	return summary, nil
}

// scoreTable builds features for tbl with the artifact's mappings, aligns
// them to the training column order and runs the artifact's scorer.
func scoreTable(a *artifact.Artifact, tbl *claims.Table) ([]float64, string, *features.Report, features.AlignReport, error) {
	var arep features.AlignReport

	mappings, err := a.Features.FeatureMappings()
	if err != nil {
		return nil, "", nil, arep, phaseErr(PhaseFeatures, err)
	}
	ft, frep, err := a.Features.Builder().Transform(tbl, mappings, nil)
	if err != nil {
		return nil, "", nil, arep, phaseErr(PhaseFeatures, err)
	}
	X, arep := features.Align(ft, a.FeatureColumns)

	m, err := a.Model()
	if err != nil {
		return nil, "", nil, arep, phaseErr(PhaseScore, err)
	}
	scorer, err := classifier.NewScorer(m)
	if err != nil {
		return nil, "", nil, arep, phaseErr(PhaseScore, err)
	}
	risk, err := scorer.Score(X)
	if err != nil {
		return nil, "", nil, arep, phaseErr(PhaseScore, err)
	}
	return risk, scorer.Method(), frep, arep, nil
}
