package features

// AlignReport describes how a freshly built table differed from the
// column list recorded at training time.
type AlignReport struct {
	Missing []string // recorded columns absent from the table, filled with 0
	Extra   []string // table columns not in the recorded list, dropped
}

// Align returns the row-major model input for t restricted and reordered to
// exactly featureCols. Recorded columns the table lacks are filled with 0.
func Align(t *Table, featureCols []string) ([][]float64, AlignReport) {
	var rep AlignReport

	want := make(map[string]bool, len(featureCols))
	src := make([][]float64, len(featureCols))
	for j, name := range featureCols {
		want[name] = true
		col, ok := t.Column(name)
		if !ok {
			rep.Missing = append(rep.Missing, name)
			continue
		}
		src[j] = col
	}
	for _, name := range t.FeatureNames() {
		if !want[name] {
			rep.Extra = append(rep.Extra, name)
		}
	}

	X := make([][]float64, t.Len())
	for i := range X {
		row := make([]float64, len(featureCols))
		for j, col := range src {
			if col != nil {
				row[j] = col[i]
			}
		}
		X[i] = row
	}
	return X, rep
}
