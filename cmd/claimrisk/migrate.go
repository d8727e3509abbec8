package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/claimrisk/internal/db"
	"github.com/gyeh/claimrisk/internal/exitcode"
	"github.com/gyeh/claimrisk/internal/logging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations for the scored-claims sink",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	log, err := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if cfg.DSN == "" {
		log.Error().Msg("--dsn or CLAIMRISK_DB_URL is required")
		os.Exit(exitcode.UsageError)
	}

	pool, err := db.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool, log); err != nil {
		log.Error().Err(err).Msg("migration failed")
		os.Exit(exitcode.IOError)
	}

	log.Info().Msg("all migrations applied successfully")
	return nil
}
