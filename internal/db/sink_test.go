package db_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/claimrisk/internal/db"
	"github.com/gyeh/claimrisk/internal/model"
	"github.com/gyeh/claimrisk/internal/suggest"
)

const (
	testPort     = 15433
	testDB       = "claimrisktest"
	testUser     = "postgres"
	testPassword = "postgres"
)

var (
	testDSN string
	pg      *embeddedpostgres.EmbeddedPostgres
)

func TestMain(m *testing.M) {
	if os.Getenv("CLAIMRISK_EMBEDDED_PG") == "" {
		os.Exit(m.Run())
	}

	testDSN = fmt.Sprintf("postgresql://%s:%s@localhost:%d/%s?sslmode=disable",
		testUser, testPassword, testPort, testDB)

	pg = embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(uint32(testPort)).
			Database(testDB).
			Username(testUser).
			Password(testPassword).
			Version(embeddedpostgres.V16).
			StartTimeout(30 * time.Second),
	)

	if err := pg.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start embedded postgres: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	if err := pg.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to stop embedded postgres: %v\n", err)
	}

	os.Exit(code)
}

// setupDB connects, drops the risk schema and reapplies migrations.
func setupDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if pg == nil {
		t.Skip("set CLAIMRISK_EMBEDDED_PG=1 to run Postgres sink tests")
	}
	ctx := context.Background()

	pool, err := db.NewPool(ctx, testDSN)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := pool.Exec(ctx, "DROP SCHEMA IF EXISTS risk CASCADE"); err != nil {
		t.Fatalf("drop schema: %v", err)
	}
	if err := db.ApplyMigrations(ctx, pool, zerolog.Nop()); err != nil {
		pool.Close()
		t.Fatalf("migrations: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

func scoredRows(batch uuid.UUID, risks ...float64) []*model.ScoredClaim {
	rows := make([]*model.ScoredClaim, len(risks))
	for i, r := range risks {
		rows[i] = &model.ScoredClaim{
			BatchID:    batch,
			RowNumber:  int64(i + 1),
			DenialRisk: r,
			Suggestion: suggest.For(r),
			Claim:      map[string]string{"Procedure.Code": fmt.Sprintf("9921%d", i), "Payer": "Aetna"},
		}
	}
	return rows
}

func TestMigrations_Idempotent(t *testing.T) {
	pool := setupDB(t)
	if err := db.ApplyMigrations(context.Background(), pool, zerolog.Nop()); err != nil {
		t.Fatalf("second ApplyMigrations: %v", err)
	}
}

func TestSink_Write(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()

	batch := model.ScoringBatch{
		ID:            uuid.New(),
		ArtifactID:    "artifact-1",
		ModelKind:     "random_forest",
		ScoringMethod: "probability",
		SourcePath:    "claims.csv",
	}
	rows := scoredRows(batch.ID, 0.1, 0.5, 0.9, 0.75)

	sink := db.NewSink(pool, zerolog.Nop(), 2)
	n, err := sink.Write(ctx, batch, rows)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 4 {
		t.Errorf("copied %d rows, want 4", n)
	}

	var status string
	var scored int64
	err = pool.QueryRow(ctx,
		"SELECT status, rows_scored FROM risk.scoring_batches WHERE batch_id = $1", batch.ID,
	).Scan(&status, &scored)
	if err != nil {
		t.Fatalf("query batch: %v", err)
	}
	if status != db.StatusComplete || scored != 4 {
		t.Errorf("batch status=%s rows=%d", status, scored)
	}

	counts, err := db.SuggestionCounts(ctx, pool, batch.ID)
	if err != nil {
		t.Fatalf("SuggestionCounts: %v", err)
	}
	if counts[suggest.AttachAuthorization] != 2 || counts[suggest.ReviewCoding] != 1 || counts[suggest.NoAction] != 1 {
		t.Errorf("counts = %v", counts)
	}

	var payer string
	err = pool.QueryRow(ctx,
		"SELECT claim->>'Payer' FROM risk.scored_claims WHERE batch_id = $1 AND row_number = 3", batch.ID,
	).Scan(&payer)
	if err != nil {
		t.Fatalf("query claim: %v", err)
	}
	if payer != "Aetna" {
		t.Errorf("claim payer = %q", payer)
	}
}

func TestSink_WriteFailureMarksBatch(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()

	batch := model.ScoringBatch{ID: uuid.New(), ArtifactID: "a", ModelKind: "linear_svm", ScoringMethod: "decision_minmax", SourcePath: "x.csv"}
	// risk outside [0,1] stops the COPY stream
	rows := scoredRows(batch.ID, 0.2, 1.5)

	if _, err := db.NewSink(pool, zerolog.Nop(), 0).Write(ctx, batch, rows); err == nil {
		t.Fatal("expected COPY error")
	}

	var status string
	if err := pool.QueryRow(ctx,
		"SELECT status FROM risk.scoring_batches WHERE batch_id = $1", batch.ID,
	).Scan(&status); err != nil {
		t.Fatalf("query batch: %v", err)
	}
	if status != db.StatusFailed {
		t.Errorf("status = %s, want %s", status, db.StatusFailed)
	}

	var left int
	if err := pool.QueryRow(ctx,
		"SELECT count(*) FROM risk.scored_claims WHERE batch_id = $1", batch.ID,
	).Scan(&left); err != nil {
		t.Fatal(err)
	}
	if left != 0 {
		t.Errorf("%d rows left after failure", left)
	}
}
