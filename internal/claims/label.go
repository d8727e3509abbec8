package claims

import (
	"errors"

	"github.com/gyeh/claimrisk/internal/normalize"
)

// ErrMissingDenialColumn is returned when labels are required but the
// claim file carries no denial-reason column at all.
var ErrMissingDenialColumn = errors.New("claim file has no denial reason column; it is required for labeling")

// CodeSet is the set of denial-reason codes that define a positive label.
type CodeSet map[string]struct{}

// NewCodeSet builds a CodeSet from a list of codes.
func NewCodeSet(codes []string) CodeSet {
	s := make(CodeSet, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

// Label is 1 when code is in the set and 0 otherwise, including when the
// code is empty.
func (s CodeSet) Label(code string) int {
	if code == "" {
		return 0
	}
	if _, ok := s[code]; ok {
		return 1
	}
	return 0
}

// AssignLabels derives one binary label per claim from the denial column.
// Each code is cleaned with kind before the set lookup; codes should have
// been built from the same kind.
func AssignLabels(t *Table, denialColumn string, codes CodeSet, kind normalize.Kind) ([]int, error) {
	col, ok := t.Column(denialColumn)
	if !ok {
		return nil, ErrMissingDenialColumn
	}
	labels := make([]int, len(col))
	for i, code := range col {
		labels[i] = codes.Label(kind.Apply(code))
	}
	return labels, nil
}
