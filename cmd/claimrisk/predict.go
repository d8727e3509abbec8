package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/gyeh/claimrisk/internal/db"
	"github.com/gyeh/claimrisk/internal/exitcode"
	"github.com/gyeh/claimrisk/internal/pipeline"
	"github.com/gyeh/claimrisk/internal/suggest"
)

var loadDB bool

var predictCmd = &cobra.Command{
	Use:     "predict",
	Aliases: []string{"score"},
	Short:   "Score unlabeled claims with a saved artifact",
	RunE:    runPredict,
}

func init() {
	f := predictCmd.Flags()
	f.StringVar(&cfg.ModelPath, "model", "model.msgpack", "Artifact produced by train or fit")
	f.StringVar(&cfg.InputPath, "input", "", "Claims CSV to score (required)")
	f.StringVar(&cfg.OutputPath, "output", "scored.csv", "Scored claims CSV")
	f.BoolVar(&loadDB, "load-db", false, "Also COPY scored claims into Postgres (requires --dsn)")
	f.IntVar(&cfg.CopyBatch, "copy-batch", cfg.CopyBatch, "Rows buffered between scoring and COPY")
	_ = predictCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(predictCmd)
}

func runPredict(cmd *cobra.Command, args []string) error {
	log := setup(cmd)
	ctx := cmd.Context()

	var sink pipeline.Sink
	var pool *pgxpool.Pool
	if loadDB {
		if cfg.DSN == "" {
			log.Error().Msg("--dsn or CLAIMRISK_DB_URL is required with --load-db")
			os.Exit(exitcode.UsageError)
		}
		var err error
		pool, err = db.NewPool(ctx, cfg.DSN)
		if err != nil {
			log.Error().Err(err).Msg("database connection failed")
			os.Exit(exitcode.DBConnError)
		}
		defer pool.Close()
		sink = db.NewSink(pool, log, cfg.CopyBatch)
	}

	summary, err := pipeline.Score(ctx, log, &cfg, sink)
	if err != nil {
		fail(log, err, "scoring failed")
	}

	fmt.Printf("Scored %d claims with %s (%.1fs) -> %s\n",
		summary.RowsScored, summary.ScoringMethod, summary.DurationTotal.Seconds(), cfg.OutputPath)
	for _, s := range []string{suggest.AttachAuthorization, suggest.ReviewCoding, suggest.NoAction} {
		fmt.Printf("  %-30s %d\n", s, summary.Suggestions[s])
	}
	if summary.BatchID != "" {
		fmt.Printf("Loaded %d rows into risk.scored_claims (batch %s)\n", summary.RowsCopied, summary.BatchID)
		printBatchCounts(cmd, pool, summary.BatchID)
	}
	return nil
}

// printBatchCounts reads the loaded batch back from Postgres as a check on
// what landed in the table.
func printBatchCounts(cmd *cobra.Command, pool *pgxpool.Pool, batchID string) {
	id, err := uuid.Parse(batchID)
	if err != nil {
		return
	}
	counts, err := db.SuggestionCounts(cmd.Context(), pool, id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: batch readback failed: %v\n", err)
		return
	}
	for _, s := range []string{suggest.AttachAuthorization, suggest.ReviewCoding, suggest.NoAction} {
		fmt.Printf("  %-30s %d (in database)\n", s, counts[s])
	}
}
