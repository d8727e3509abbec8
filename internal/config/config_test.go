package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/gyeh/claimrisk/internal/classifier"
	"github.com/gyeh/claimrisk/internal/normalize"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault_Valid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(c.CodesOfInterest) != 11 {
		t.Errorf("expected 11 default codes, got %d", len(c.CodesOfInterest))
	}
	if c.Forest.Trees != 200 || c.Forest.MaxDepth != 7 {
		t.Errorf("forest defaults = %+v", c.Forest)
	}
}

func TestLoadFromFile_Valid(t *testing.T) {
	path := writeConfig(t, `
codes_of_interest: [F13, CO45]
high_threshold: 0.05
low_threshold: 0.001
normalize_codes: true
test_fraction: 0.25
seed: 7
model_kind: linear
categorical_columns:
  - source: Procedure.Code
    feature: proc_grp
  - source: Payer
    feature: payer_grp
    normalize: name
forest:
  trees: 50
  workers: 2
`)
	c := Default()
	if err := c.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if !reflect.DeepEqual(c.CodesOfInterest, []string{"F13", "CO45"}) {
		t.Errorf("codes = %v", c.CodesOfInterest)
	}
	if c.Thresholds.High != 0.05 || c.Thresholds.Low != 0.001 {
		t.Errorf("thresholds = %+v", c.Thresholds)
	}
	if c.TestFraction != 0.25 || c.Seed != 7 || c.ModelKind != ModelLinear {
		t.Errorf("fraction/seed/kind = %v/%v/%v", c.TestFraction, c.Seed, c.ModelKind)
	}
	if c.Forest.Trees != 50 || c.Forest.Workers != 2 || c.Forest.MaxDepth != 7 {
		t.Errorf("forest = %+v", c.Forest)
	}

	b := c.Builder()
	if len(b.Columns) != 2 {
		t.Fatalf("columns = %+v", b.Columns)
	}
	if b.Columns[0].Normalize != normalize.KindCode {
		t.Errorf("proc normalize = %q, want code", b.Columns[0].Normalize)
	}
	if b.Columns[1].Normalize != normalize.KindName {
		t.Errorf("payer normalize = %q, want name", b.Columns[1].Normalize)
	}

	m, err := c.NewModel()
	if err != nil {
		t.Fatal(err)
	}
	if m.Kind() != classifier.KindLinearSVM {
		t.Errorf("model kind = %s", m.Kind())
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	c := Default()
	if err := c.LoadFromFile("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFromFile_BadYAML(t *testing.T) {
	c := Default()
	if err := c.LoadFromFile(writeConfig(t, "high_threshold: [oops")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"inverted thresholds", func(c *Config) { c.Thresholds.Low = 0.5 }},
		{"threshold above one", func(c *Config) { c.Thresholds.High = 2 }},
		{"no codes", func(c *Config) { c.CodesOfInterest = nil }},
		{"test fraction zero", func(c *Config) { c.TestFraction = 0 }},
		{"test fraction one", func(c *Config) { c.TestFraction = 1 }},
		{"duplicate feature", func(c *Config) { c.Columns = append(c.Columns, c.Columns[0]) }},
		{"unknown model", func(c *Config) { c.ModelKind = "boosted" }},
		{"no trees", func(c *Config) { c.Forest.Trees = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCodeSet_Normalized(t *testing.T) {
	c := Default()
	c.CodesOfInterest = []string{" f-13 "}
	if c.CodeSet().Label("F13") != 0 {
		t.Error("raw config should not match normalized code")
	}
	c.NormalizeCodes = true
	if c.CodeSet().Label("F13") != 1 {
		t.Error("normalized code set should contain F13")
	}
}

func TestRequireFile(t *testing.T) {
	if err := RequireFile("input", ""); err == nil {
		t.Error("expected error for empty path")
	}
	if err := RequireFile("input", "/nonexistent/claims.csv"); err == nil {
		t.Error("expected error for missing file")
	}
	if err := RequireFile("config", writeConfig(t, "seed: 1")); err != nil {
		t.Errorf("RequireFile: %v", err)
	}
}
