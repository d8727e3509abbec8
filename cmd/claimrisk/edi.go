package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/claimrisk/internal/edi"
	"github.com/gyeh/claimrisk/internal/exitcode"
	"github.com/gyeh/claimrisk/internal/logging"
)

var ediPath string

var ediCmd = &cobra.Command{
	Use:   "edi",
	Short: "Read claims from an X12 835 remittance file (not implemented)",
	RunE:  runEDI,
}

func init() {
	ediCmd.Flags().StringVar(&ediPath, "input", "", "835 file (required)")
	_ = ediCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(ediCmd)
}

func runEDI(cmd *cobra.Command, args []string) error {
	log, err := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return err
	}

	f, err := os.Open(ediPath)
	if err != nil {
		log.Error().Err(err).Msg("open 835 file")
		os.Exit(exitcode.IOError)
	}
	defer f.Close()

	tbl, err := edi.Parse835(f)
	if err != nil {
		fail(log, err, "835 parsing failed")
	}
	log.Info().Int("claims", tbl.Len()).Msg("835 parsed")
	return nil
}
