package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/claimrisk/internal/model"
	embedsql "github.com/gyeh/claimrisk/internal/sql"
)

// Batch statuses stored in risk.scoring_batches.status.
const (
	StatusLoading  = "loading"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Sink loads scored claims into Postgres, one scoring batch per call.
type Sink struct {
	pool      *pgxpool.Pool
	log       zerolog.Logger
	queueSize int
}

// NewSink returns a Sink writing through pool. queueSize bounds the number of
// rows buffered between the producer and COPY.
func NewSink(pool *pgxpool.Pool, log zerolog.Logger, queueSize int) *Sink {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Sink{pool: pool, log: log, queueSize: queueSize}
}

// Write registers batch, COPYs rows into risk.scored_claims and marks the
// batch complete. On failure the partial rows are removed and the batch is
// marked failed.
func (s *Sink) Write(ctx context.Context, batch model.ScoringBatch, rows []*model.ScoredClaim) (int64, error) {
	start := time.Now()
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now().UTC()
	}

	if _, err := s.pool.Exec(ctx, embedsql.InsertScoringBatch,
		batch.ID, batch.ArtifactID, batch.ModelKind, batch.ScoringMethod,
		batch.SourcePath, batch.SourceSHA256, batch.CreatedAt,
	); err != nil {
		return 0, fmt.Errorf("register batch: %w", err)
	}

	ch := make(chan *model.ScoredClaim, s.queueSize)
	go func() {
		defer close(ch)
		for _, r := range rows {
			select {
			case ch <- r:
			case <-ctx.Done():
				return
			}
		}
	}()

	copied, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"risk", "scored_claims"},
		model.ScoredColumns(),
		NewChannelSource(ch),
	)
	// drain so the producer exits if COPY stopped early
	for range ch {
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err == nil && copied != int64(len(rows)) {
		err = fmt.Errorf("copied %d of %d rows", copied, len(rows))
	}
	if err != nil {
		s.fail(batch.ID)
		return 0, fmt.Errorf("copy scored claims: %w", err)
	}

	if _, err := s.pool.Exec(ctx, embedsql.UpdateBatchStatus, batch.ID, StatusComplete, copied); err != nil {
		return copied, fmt.Errorf("complete batch: %w", err)
	}

	dur := time.Since(start)
	s.log.Info().
		Str("batch_id", batch.ID.String()).
		Int64("rows_copied", copied).
		Str("duration", dur.String()).
		Float64("rows_per_sec", float64(copied)/dur.Seconds()).
		Msg("scored claims loaded")
	return copied, nil
}

// fail cleans up a batch after an error. It uses a fresh context so cleanup
// still runs when the caller's context was cancelled.
func (s *Sink) fail(id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := s.pool.Exec(ctx, embedsql.DeleteBatchRows, id); err != nil {
		s.log.Warn().Err(err).Str("batch_id", id.String()).Msg("delete partial batch rows failed")
	}
	if _, err := s.pool.Exec(ctx, embedsql.UpdateBatchStatus, id, StatusFailed, 0); err != nil {
		s.log.Warn().Err(err).Str("batch_id", id.String()).Msg("mark batch failed")
	}
}

// SuggestionCounts returns how many claims in a batch received each suggestion.
func SuggestionCounts(ctx context.Context, pool *pgxpool.Pool, batchID uuid.UUID) (map[string]int64, error) {
	rows, err := pool.Query(ctx, embedsql.BatchSummary, batchID)
	if err != nil {
		return nil, fmt.Errorf("batch summary: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var suggestion string
		var n int64
		if err := rows.Scan(&suggestion, &n); err != nil {
			return nil, fmt.Errorf("scan batch summary: %w", err)
		}
		out[suggestion] = n
	}
	return out, rows.Err()
}
