package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gyeh/claimrisk/internal/model"
	"github.com/gyeh/claimrisk/internal/pipeline"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit a model on preprocessed Parquet tables and save the artifact",
	RunE:  runTrain,
}

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Preprocess and train in one step from a labeled claims CSV",
	RunE:  runFit,
}

func init() {
	f := trainCmd.Flags()
	f.StringVar(&cfg.TrainPath, "train", "train.parquet", "Training feature table")
	f.StringVar(&cfg.TestPath, "test", "test.parquet", "Test feature table")
	f.StringVar(&cfg.ModelPath, "model", "model.msgpack", "Artifact output path")
	f.StringVar(&cfg.MetricsFile, "metrics-file", "", "Write evaluation gauges to this Prometheus textfile")
	addModelFlags(trainCmd)
	addSeedFlag(trainCmd)
	rootCmd.AddCommand(trainCmd)

	f = fitCmd.Flags()
	f.StringVar(&cfg.InputPath, "input", "", "Labeled claims CSV (required)")
	f.StringVar(&cfg.ModelPath, "model", "model.msgpack", "Artifact output path")
	f.StringVar(&cfg.MetricsFile, "metrics-file", "", "Write evaluation gauges to this Prometheus textfile")
	_ = fitCmd.MarkFlagRequired("input")
	addGroupingFlags(fitCmd)
	addModelFlags(fitCmd)
	addSeedFlag(fitCmd)
	rootCmd.AddCommand(fitCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	log := setup(cmd)
	summary, err := pipeline.Train(cmd.Context(), log, &cfg)
	if err != nil {
		fail(log, err, "training failed")
	}
	printTrainSummary(summary)
	return nil
}

func runFit(cmd *cobra.Command, args []string) error {
	log := setup(cmd)
	summary, err := pipeline.Fit(cmd.Context(), log, &cfg)
	if err != nil {
		fail(log, err, "training failed")
	}
	printTrainSummary(summary)
	return nil
}

func printTrainSummary(s *model.TrainSummary) {
	fmt.Printf("Training complete: %s on %d rows, evaluated on %d (%.1fs)\n",
		s.ModelKind, s.TrainRows, s.TestRows, s.DurationTotal.Seconds())
	fmt.Printf("Metrics:  %s\n", s.Metrics)
	fmt.Printf("Artifact: %s (%s)\n", s.ArtifactPath, s.ArtifactID)
}
