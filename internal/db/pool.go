package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// sinkMaxConns covers the batch bookkeeping statements, the COPY stream and
// the readback summary; a scoring run never needs more.
const sinkMaxConns = 4

// poolConfig parses dsn and applies the session settings used by the sink.
func poolConfig(dsn string) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > sinkMaxConns {
		cfg.MaxConns = sinkMaxConns
	}
	rp := cfg.ConnConfig.RuntimeParams
	if _, ok := rp["application_name"]; !ok {
		rp["application_name"] = "claimrisk"
	}
	// Abandoned batches must not hold locks on risk.scoring_batches.
	rp["idle_in_transaction_session_timeout"] = "60000"
	return cfg, nil
}

// NewPool connects to the database that receives scored claims.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := poolConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
