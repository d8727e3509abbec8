package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gyeh/claimrisk/internal/artifact"
	"github.com/gyeh/claimrisk/internal/claims"
	"github.com/gyeh/claimrisk/internal/classifier"
	"github.com/gyeh/claimrisk/internal/config"
	"github.com/gyeh/claimrisk/internal/grouping"
	"github.com/gyeh/claimrisk/internal/model"
	"github.com/gyeh/claimrisk/internal/suggest"
)

var procedures = []string{"99213", "99214", "80050", "36415", "99215"}
var payers = []string{"Aetna", "Cigna", "Humana"}

// writeClaims writes n synthetic claims. Half of the 99215 claims are denied
// with F13; every seventh claim carries a denial code outside the default set.
func writeClaims(t *testing.T, path string, n int, header []string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		denial := ""
		switch {
		case i%10 == 4:
			denial = "F13"
		case i%7 == 0:
			denial = "CO45"
		}
		cells := map[string]string{
			"Claim.Charge.Amount": fmt.Sprintf("%d.50", i*13%500),
			"Procedure.Code":      procedures[i%len(procedures)],
			"Diagnosis.Code":      "D" + strconv.Itoa(i%4),
			"Payer":               payers[i%len(payers)],
			"Denial.Reason.Code":  denial,
		}
		rec := make([]string, len(header))
		for j, h := range header {
			rec[j] = cells[h]
		}
		if err := w.Write(rec); err != nil {
			t.Fatal(err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

var (
	labeledHeader   = []string{"Claim.Charge.Amount", "Procedure.Code", "Diagnosis.Code", "Payer", "Denial.Reason.Code"}
	unlabeledHeader = []string{"Claim.Charge.Amount", "Procedure.Code", "Diagnosis.Code", "Payer"}
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	c := config.Default()
	c.Forest.Trees = 20
	c.Forest.Workers = 2
	c.InputPath = filepath.Join(dir, "claims.csv")
	c.TrainPath = filepath.Join(dir, "train.parquet")
	c.TestPath = filepath.Join(dir, "test.parquet")
	c.ModelPath = filepath.Join(dir, "model.msgpack")
	c.OutputPath = filepath.Join(dir, "scored.csv")
	writeClaims(t, c.InputPath, 200, labeledHeader)
	return &c
}

func readRisk(t *testing.T, path string) ([]float64, []string, *claims.Table) {
	t.Helper()
	tbl, err := claims.Load(path)
	if err != nil {
		t.Fatalf("load scored output: %v", err)
	}
	raw, ok := tbl.Column(claims.RiskColumn)
	if !ok {
		t.Fatalf("scored output has no %s column", claims.RiskColumn)
	}
	sugg, ok := tbl.Column(claims.SuggestionColumn)
	if !ok {
		t.Fatalf("scored output has no %s column", claims.SuggestionColumn)
	}
	risk := make([]float64, len(raw))
	for i, s := range raw {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			t.Fatalf("row %d: bad risk %q", i, s)
		}
		risk[i] = v
	}
	return risk, sugg, tbl
}

func TestFitThenScore(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	log := zerolog.Nop()

	ts, err := Fit(ctx, log, cfg)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if ts.TrainRows != 160 || ts.TestRows != 40 {
		t.Errorf("train/test rows = %d/%d, want 160/40", ts.TrainRows, ts.TestRows)
	}
	if ts.ModelKind != classifier.KindRandomForest {
		t.Errorf("model kind = %s", ts.ModelKind)
	}

	scoreIn := filepath.Join(t.TempDir(), "unlabeled.csv")
	writeClaims(t, scoreIn, 50, unlabeledHeader)
	cfg.InputPath = scoreIn

	ss, err := Score(ctx, log, cfg, nil)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if ss.RowsScored != 50 || ss.ScoringMethod != classifier.MethodProbability {
		t.Errorf("rows/method = %d/%s", ss.RowsScored, ss.ScoringMethod)
	}

	risk, sugg, out := readRisk(t, cfg.OutputPath)
	if out.Len() != 50 {
		t.Fatalf("output rows = %d, want 50", out.Len())
	}
	wantHeader := append(append([]string(nil), unlabeledHeader...), claims.RiskColumn, claims.SuggestionColumn)
	if !reflect.DeepEqual(out.Header(), wantHeader) {
		t.Errorf("header = %v, want %v", out.Header(), wantHeader)
	}
	for i, r := range risk {
		if r < 0 || r > 1 {
			t.Errorf("row %d: risk %v outside [0,1]", i, r)
		}
		if sugg[i] != suggest.For(r) {
			t.Errorf("row %d: suggestion %q for risk %v", i, sugg[i], r)
		}
	}
}

func TestScore_UsesPersistedMappings(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	log := zerolog.Nop()
	if _, err := Fit(ctx, log, cfg); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	a, err := artifact.Load(cfg.ModelPath)
	if err != nil {
		t.Fatal(err)
	}
	if got := a.Features.Mappings["Procedure.Code_grp"]["99215"]; got != grouping.TierHigh {
		t.Fatalf("99215 tier = %d, want high", got)
	}

	// Unlabeled claims: regrouping them against placeholder zeros would
	// put every procedure in the rare tier and erase the 99215 signal.
	cfg.InputPath = filepath.Join(t.TempDir(), "unlabeled.csv")
	writeClaims(t, cfg.InputPath, 100, unlabeledHeader)
	if _, err := Score(ctx, log, cfg, nil); err != nil {
		t.Fatalf("Score: %v", err)
	}
	risk, _, out := readRisk(t, cfg.OutputPath)
	procs, _ := out.Column("Procedure.Code")

	var hi, lo float64
	var nHi, nLo int
	for i, p := range procs {
		if p == "99215" {
			hi += risk[i]
			nHi++
		} else {
			lo += risk[i]
			nLo++
		}
	}
	hi /= float64(nHi)
	lo /= float64(nLo)
	if hi < lo+0.2 {
		t.Errorf("mean risk 99215 = %.3f, others = %.3f; expected a clear gap", hi, lo)
	}
}

func TestScore_IndependentOfBatch(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	log := zerolog.Nop()
	if _, err := Fit(ctx, log, cfg); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	dir := t.TempDir()
	cfg.InputPath = filepath.Join(dir, "full.csv")
	cfg.OutputPath = filepath.Join(dir, "full_scored.csv")
	writeClaims(t, cfg.InputPath, 60, unlabeledHeader)
	if _, err := Score(ctx, log, cfg, nil); err != nil {
		t.Fatal(err)
	}
	full, _, _ := readRisk(t, cfg.OutputPath)

	cfg.InputPath = filepath.Join(dir, "head.csv")
	cfg.OutputPath = filepath.Join(dir, "head_scored.csv")
	writeClaims(t, cfg.InputPath, 10, unlabeledHeader)
	if _, err := Score(ctx, log, cfg, nil); err != nil {
		t.Fatal(err)
	}
	head, _, _ := readRisk(t, cfg.OutputPath)

	if !reflect.DeepEqual(head, full[:10]) {
		t.Errorf("scores depend on batch composition:\n%v\n%v", head, full[:10])
	}
}

func TestPreprocessThenTrain(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	log := zerolog.Nop()

	ps, err := Preprocess(ctx, log, cfg)
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	if ps.RowsRead != 200 || ps.Positives != 20 {
		t.Errorf("rows/positives = %d/%d, want 200/20", ps.RowsRead, ps.Positives)
	}
	if ps.TrainRows != 160 || ps.TestRows != 40 {
		t.Errorf("train/test = %d/%d", ps.TrainRows, ps.TestRows)
	}
	if _, err := os.Stat(ps.MappingsPath); err != nil {
		t.Fatalf("sidecar: %v", err)
	}
	wantMissing := []string{"Service.Code", "Revenue.Code", "Provider.Specialty"}
	if !reflect.DeepEqual(ps.MissingColumns, wantMissing) {
		t.Errorf("MissingColumns = %v, want %v", ps.MissingColumns, wantMissing)
	}

	ts, err := Train(ctx, log, cfg)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	wantCols := []string{
		"charge",
		"Procedure.Code_grp", "Diagnosis.Code_grp", "Service.Code_grp", "Revenue.Code_grp",
		"specialty_grp", "payer_grp",
	}
	if !reflect.DeepEqual(ts.Features, wantCols) {
		t.Errorf("features = %v, want %v", ts.Features, wantCols)
	}

	a, err := artifact.Load(cfg.ModelPath)
	if err != nil {
		t.Fatalf("artifact.Load: %v", err)
	}
	if a.Features.SourceRows != 200 || a.Features.SourceSHA256 == "" {
		t.Errorf("spec source = %d rows, sha %q", a.Features.SourceRows, a.Features.SourceSHA256)
	}
	if !reflect.DeepEqual(a.FeatureColumns, wantCols) {
		t.Errorf("artifact columns = %v", a.FeatureColumns)
	}
}

func TestFit_LinearModel(t *testing.T) {
	cfg := testConfig(t)
	cfg.ModelKind = config.ModelLinear
	cfg.MetricsFile = filepath.Join(t.TempDir(), "claimrisk.prom")
	ctx := context.Background()

	ts, err := Fit(ctx, zerolog.Nop(), cfg)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if ts.ModelKind != classifier.KindLinearSVM {
		t.Errorf("kind = %s", ts.ModelKind)
	}
	if _, err := os.Stat(cfg.MetricsFile); err != nil {
		t.Errorf("metrics file: %v", err)
	}

	ss, err := Score(ctx, zerolog.Nop(), cfg, nil)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if ss.ScoringMethod != classifier.MethodDecision {
		t.Errorf("method = %s, want %s", ss.ScoringMethod, classifier.MethodDecision)
	}
	risk, _, _ := readRisk(t, cfg.OutputPath)
	lo, hi := risk[0], risk[0]
	for _, r := range risk {
		lo = min(lo, r)
		hi = max(hi, r)
	}
	if lo != 0 || hi != 1 {
		t.Errorf("min-max risk range = [%v, %v], want [0, 1]", lo, hi)
	}
}

func TestScore_InfiniteChargeIsBad(t *testing.T) {
	cfg := testConfig(t)
	cfg.ModelKind = config.ModelLinear
	ctx := context.Background()
	if _, err := Fit(ctx, zerolog.Nop(), cfg); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	cfg.InputPath = filepath.Join(t.TempDir(), "inf.csv")
	body := "Claim.Charge.Amount,Procedure.Code,Diagnosis.Code,Payer\n" +
		"inf,99215,D1,Aetna\n" +
		"100,99213,D1,Cigna\n" +
		"200,99215,D0,Aetna\n"
	if err := os.WriteFile(cfg.InputPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	ss, err := Score(ctx, zerolog.Nop(), cfg, nil)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if ss.BadCharges != 1 {
		t.Errorf("BadCharges = %d, want 1", ss.BadCharges)
	}
	risk, _, _ := readRisk(t, cfg.OutputPath)
	hi := 0.0
	for i, r := range risk {
		if !(r >= 0 && r <= 1) {
			t.Errorf("row %d risk = %v, want within [0, 1]", i, r)
		}
		hi = max(hi, r)
	}
	if hi != 1 {
		t.Errorf("max risk = %v, want 1 (batch collapsed)", hi)
	}
}

func TestFit_MissingDenialColumn(t *testing.T) {
	cfg := testConfig(t)
	writeClaims(t, cfg.InputPath, 20, unlabeledHeader)

	_, err := Fit(context.Background(), zerolog.Nop(), cfg)
	if !errors.Is(err, claims.ErrMissingDenialColumn) {
		t.Fatalf("err = %v, want ErrMissingDenialColumn", err)
	}
	var pe *PhaseError
	if !errors.As(err, &pe) || pe.Phase != PhaseLabel {
		t.Errorf("phase = %v, want %s", pe, PhaseLabel)
	}
}

func TestScore_MissingColumns(t *testing.T) {
	cfg := testConfig(t)
	if _, err := Fit(context.Background(), zerolog.Nop(), cfg); err != nil {
		t.Fatal(err)
	}
	cfg.InputPath = filepath.Join(t.TempDir(), "sparse.csv")
	writeClaims(t, cfg.InputPath, 5, []string{"Procedure.Code"})

	ss, err := Score(context.Background(), zerolog.Nop(), cfg, nil)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if ss.BadCharges != 5 {
		t.Errorf("BadCharges = %d, want 5", ss.BadCharges)
	}
	found := false
	for _, c := range ss.MissingColumns {
		if c == "Payer" {
			found = true
		}
	}
	if !found {
		t.Errorf("MissingColumns = %v, want Payer listed", ss.MissingColumns)
	}
}

type memSink struct {
	batch model.ScoringBatch
	rows  []*model.ScoredClaim
}

func (s *memSink) Write(_ context.Context, batch model.ScoringBatch, rows []*model.ScoredClaim) (int64, error) {
	s.batch = batch
	s.rows = rows
	return int64(len(rows)), nil
}

func TestScore_Sink(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	if _, err := Fit(ctx, zerolog.Nop(), cfg); err != nil {
		t.Fatal(err)
	}

	sink := &memSink{}
	ss, err := Score(ctx, zerolog.Nop(), cfg, sink)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if ss.RowsCopied != 200 || len(sink.rows) != 200 {
		t.Fatalf("copied %d, sink got %d", ss.RowsCopied, len(sink.rows))
	}
	if ss.BatchID != sink.batch.ID.String() || sink.batch.SourceSHA256 == "" {
		t.Errorf("batch = %+v", sink.batch)
	}
	risk, _, _ := readRisk(t, cfg.OutputPath)
	for i, r := range sink.rows {
		if r.RowNumber != int64(i+1) || r.DenialRisk != risk[i] {
			t.Errorf("row %d: number %d risk %v, file risk %v", i, r.RowNumber, r.DenialRisk, risk[i])
		}
		if r.Claim["Procedure.Code"] != procedures[i%len(procedures)] {
			t.Errorf("row %d: claim %v", i, r.Claim)
		}
	}
}

func TestPlan(t *testing.T) {
	cfg := testConfig(t)
	ps, err := Plan(zerolog.Nop(), cfg)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if ps.Rows != 200 || ps.Positives != 20 || ps.TestRows != 40 || ps.TrainRows != 160 {
		t.Errorf("plan = %+v", ps)
	}
	if ps.PositiveRate != 0.1 {
		t.Errorf("PositiveRate = %v", ps.PositiveRate)
	}
	if len(ps.Columns) != 6 {
		t.Fatalf("columns = %d", len(ps.Columns))
	}
	proc := ps.Columns[0]
	if !proc.Present || proc.Distinct != 5 || proc.High != 1 || proc.Rare != 4 {
		t.Errorf("procedure plan = %+v", proc)
	}
	if svc := ps.Columns[2]; svc.Present || svc.Distinct != 0 {
		t.Errorf("service plan = %+v", svc)
	}
}
