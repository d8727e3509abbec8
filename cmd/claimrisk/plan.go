package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gyeh/claimrisk/internal/pipeline"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Dry-run labeling and grouping stats (no writes)",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().StringVar(&cfg.InputPath, "input", "", "Labeled claims CSV (required)")
	_ = planCmd.MarkFlagRequired("input")
	addGroupingFlags(planCmd)
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	log := setup(cmd)

	p, err := pipeline.Plan(log, &cfg)
	if err != nil {
		fail(log, err, "plan failed")
	}

	fmt.Println("=== claimrisk plan ===")
	fmt.Printf("File:        %s\n", p.InputPath)
	fmt.Printf("SHA-256:     %s\n", p.InputSHA256)
	fmt.Printf("Size:        %d bytes\n", p.SizeBytes)
	fmt.Printf("Claims:      %d\n", p.Rows)
	fmt.Printf("Positives:   %d (%.2f%%)\n", p.Positives, 100*p.PositiveRate)
	fmt.Printf("Split:       %d train / %d test\n", p.TrainRows, p.TestRows)
	fmt.Printf("Bad charges: %d\n", p.BadCharges)
	fmt.Printf("Thresholds:  high >= %g, low >= %g\n", cfg.Thresholds.High, cfg.Thresholds.Low)
	fmt.Println()
	fmt.Println("Grouping:")
	for _, c := range p.Columns {
		if !c.Present {
			fmt.Printf("  %-20s absent (all rows rare)\n", c.Source)
			continue
		}
		fmt.Printf("  %-20s %6d values -> high %d, low %d, rare %d\n",
			c.Source, c.Distinct, c.High, c.Low, c.Rare)
	}
	return nil
}
