package db

import (
	"math"
	"testing"

	"github.com/gyeh/claimrisk/internal/model"
)

func TestChannelSource_RejectsNonProbability(t *testing.T) {
	tests := []struct {
		name string
		risk float64
	}{
		{"nan", math.NaN()},
		{"negative", -0.1},
		{"above one", 1.5},
		{"inf", math.Inf(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := make(chan *model.ScoredClaim, 2)
			ch <- &model.ScoredClaim{RowNumber: 1, DenialRisk: 0.4}
			ch <- &model.ScoredClaim{RowNumber: 2, DenialRisk: tt.risk}
			close(ch)

			src := NewChannelSource(ch)
			if !src.Next() {
				t.Fatal("first row rejected")
			}
			if vals, err := src.Values(); err != nil || vals[2] != 0.4 {
				t.Errorf("Values = %v, %v", vals, err)
			}
			if src.Next() {
				t.Fatal("second row accepted")
			}
			if src.Err() == nil {
				t.Error("Err() = nil, want range error")
			}
		})
	}
}

func TestChannelSource_Drains(t *testing.T) {
	ch := make(chan *model.ScoredClaim, 3)
	for i, r := range []float64{0, 0.5, 1} {
		ch <- &model.ScoredClaim{RowNumber: int64(i + 1), DenialRisk: r}
	}
	close(ch)

	src := NewChannelSource(ch)
	n := 0
	for src.Next() {
		n++
	}
	if n != 3 || src.Err() != nil {
		t.Errorf("rows = %d, err = %v", n, src.Err())
	}
}

func TestPoolConfig(t *testing.T) {
	cfg, err := poolConfig("postgres://u:p@localhost:5432/claims?pool_max_conns=20")
	if err != nil {
		t.Fatalf("poolConfig: %v", err)
	}
	if cfg.MaxConns != sinkMaxConns {
		t.Errorf("MaxConns = %d, want %d", cfg.MaxConns, sinkMaxConns)
	}
	rp := cfg.ConnConfig.RuntimeParams
	if rp["application_name"] != "claimrisk" {
		t.Errorf("application_name = %q", rp["application_name"])
	}
	if _, ok := rp["statement_timeout"]; ok {
		t.Error("statement_timeout should be left to the server")
	}

	cfg, err = poolConfig("postgres://u:p@localhost:5432/claims?application_name=nightly")
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.ConnConfig.RuntimeParams["application_name"]; got != "nightly" {
		t.Errorf("application_name = %q, want dsn value kept", got)
	}

	if _, err := poolConfig("postgres://u:p@localhost:notaport/claims"); err == nil {
		t.Error("expected parse error")
	}
}
