package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gyeh/claimrisk/internal/pipeline"
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Label claims, group codes and write train/test Parquet tables",
	RunE:  runPreprocess,
}

func init() {
	f := preprocessCmd.Flags()
	f.StringVar(&cfg.InputPath, "input", "", "Labeled claims CSV (required)")
	f.StringVar(&cfg.TrainPath, "train-out", "train.parquet", "Training feature table")
	f.StringVar(&cfg.TestPath, "test-out", "test.parquet", "Test feature table")
	_ = preprocessCmd.MarkFlagRequired("input")
	addGroupingFlags(preprocessCmd)
	addSeedFlag(preprocessCmd)
	rootCmd.AddCommand(preprocessCmd)
}

func runPreprocess(cmd *cobra.Command, args []string) error {
	log := setup(cmd)

	summary, err := pipeline.Preprocess(cmd.Context(), log, &cfg)
	if err != nil {
		fail(log, err, "preprocess failed")
	}

	fmt.Printf("Preprocess complete: %d claims (%d positive) -> %d train / %d test rows (%.1fs)\n",
		summary.RowsRead, summary.Positives, summary.TrainRows, summary.TestRows, summary.DurationTotal.Seconds())
	fmt.Printf("Mappings: %s\n", summary.MappingsPath)
	return nil
}
