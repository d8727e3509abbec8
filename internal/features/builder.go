package features

import (
	"fmt"

	"github.com/gyeh/claimrisk/internal/grouping"
	"github.com/gyeh/claimrisk/internal/normalize"
)

// Source is the raw claim data a Builder reads from.
type Source interface {
	Len() int
	Column(name string) ([]string, bool)
}

// Column configures one grouped categorical feature.
type Column struct {
	Source    string         `yaml:"source" msgpack:"source"`
	Feature   string         `yaml:"feature" msgpack:"feature"`
	Normalize normalize.Kind `yaml:"normalize" msgpack:"normalize"`
}

// DefaultColumns are the six claim code columns grouped by default.
func DefaultColumns() []Column {
	return []Column{
		{Source: "Procedure.Code", Feature: "Procedure.Code_grp"},
		{Source: "Diagnosis.Code", Feature: "Diagnosis.Code_grp"},
		{Source: "Service.Code", Feature: "Service.Code_grp"},
		{Source: "Revenue.Code", Feature: "Revenue.Code_grp"},
		{Source: "Provider.Specialty", Feature: "specialty_grp"},
		{Source: "Payer", Feature: "payer_grp"},
	}
}

// Mappings holds one persisted value -> tier mapping per feature name.
type Mappings map[string]grouping.Mapping

// Report lists the recoveries made while building a table.
type Report struct {
	MissingColumns   []string // configured source columns absent from the input
	BadCharges       int      // absent or unparseable charge amounts, set to 0
	PlaceholderLabel bool     // label column filled with zeros
}

// Builder turns raw claims into a feature table.
type Builder struct {
	ChargeSource string
	Columns      []Column
	Thresholds   grouping.Thresholds
}

// Names returns the feature table columns the builder produces, in order.
// The order depends only on the configured columns.
func (b *Builder) Names() []string {
	names := make([]string, 0, len(b.Columns)+2)
	names = append(names, ChargeColumn)
	for _, c := range b.Columns {
		names = append(names, c.Feature)
	}
	return append(names, LabelColumn)
}

// Validate checks the column configuration.
func (b *Builder) Validate() error {
	seen := map[string]bool{ChargeColumn: true, LabelColumn: true}
	for _, c := range b.Columns {
		if c.Source == "" || c.Feature == "" {
			return fmt.Errorf("categorical column needs both source and feature names: %+v", c)
		}
		if seen[c.Feature] {
			return fmt.Errorf("duplicate feature name %q", c.Feature)
		}
		seen[c.Feature] = true
		if _, err := normalize.ParseKind(string(c.Normalize)); err != nil {
			return fmt.Errorf("column %q: %w", c.Source, err)
		}
	}
	return b.Thresholds.Validate()
}

// Fit learns one mapping per configured column from labels and returns the
// training feature table built with those mappings. A column absent from
// src gets an empty mapping, so every row of it lands in the rare tier.
func (b *Builder) Fit(src Source, labels []int) (*Table, Mappings, *Report, error) {
	if len(labels) != src.Len() {
		return nil, nil, nil, fmt.Errorf("%d labels for %d claims", len(labels), src.Len())
	}
	mappings := make(Mappings, len(b.Columns))
	for _, c := range b.Columns {
		values, ok := src.Column(c.Source)
		if !ok {
			mappings[c.Feature] = grouping.NewMapping(nil)
			continue
		}
		m, err := grouping.Fit(c.Normalize.All(values), labels, b.Thresholds)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("group %s: %w", c.Source, err)
		}
		mappings[c.Feature] = m
	}

	t, rep, err := b.Transform(src, mappings, labels)
	if err != nil {
		return nil, nil, nil, err
	}
	return t, mappings, rep, nil
}

// Transform builds a feature table using previously fit mappings. It never
// derives tiers from src itself, so it is safe on unlabeled claims. A nil
// labels slice fills the label column with zeros.
func (b *Builder) Transform(src Source, mappings Mappings, labels []int) (*Table, *Report, error) {
	n := src.Len()
	rep := &Report{}
	if labels == nil {
		labels = make([]int, n)
		rep.PlaceholderLabel = true
	}
	if len(labels) != n {
		return nil, nil, fmt.Errorf("%d labels for %d claims", len(labels), n)
	}

	cols := make([][]float64, 0, len(b.Columns)+2)

	charge := make([]float64, n)
	if raw, ok := src.Column(b.ChargeSource); ok {
		for i, s := range raw {
			v, ok := normalize.Charge(s)
			if !ok {
				rep.BadCharges++
			}
			charge[i] = v
		}
	} else {
		rep.MissingColumns = append(rep.MissingColumns, b.ChargeSource)
		rep.BadCharges = n
	}
	cols = append(cols, charge)

	for _, c := range b.Columns {
		m, ok := mappings[c.Feature]
		if !ok {
			return nil, nil, fmt.Errorf("no persisted mapping for feature %q", c.Feature)
		}
		col := make([]float64, n)
		values, ok := src.Column(c.Source)
		if !ok {
			rep.MissingColumns = append(rep.MissingColumns, c.Source)
			for i := range col {
				col[i] = float64(grouping.TierRare)
			}
		} else {
			for i, v := range values {
				col[i] = float64(m.Tier(c.Normalize.Apply(v)))
			}
		}
		cols = append(cols, col)
	}

	lab := make([]float64, n)
	for i, l := range labels {
		lab[i] = float64(l)
	}
	cols = append(cols, lab)

	t, err := NewTable(b.Names(), cols)
	if err != nil {
		return nil, nil, err
	}
	return t, rep, nil
}
