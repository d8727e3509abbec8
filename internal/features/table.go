package features

import "fmt"

// Fixed feature table columns.
const (
	ChargeColumn = "charge"
	LabelColumn  = "_label"
)

// Table is a column-oriented numeric feature table. Grouped features and
// the label hold integral values.
type Table struct {
	names   []string
	index   map[string]int
	columns [][]float64
	rows    int
}

// NewTable builds a table from parallel name and column slices. Every
// column must have the same length.
func NewTable(names []string, columns [][]float64) (*Table, error) {
	if len(names) != len(columns) {
		return nil, fmt.Errorf("%d names for %d columns", len(names), len(columns))
	}
	t := &Table{index: make(map[string]int, len(names))}
	for i, name := range names {
		if _, dup := t.index[name]; dup {
			return nil, fmt.Errorf("duplicate feature column %q", name)
		}
		if i == 0 {
			t.rows = len(columns[i])
		} else if len(columns[i]) != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", name, len(columns[i]), t.rows)
		}
		t.index[name] = i
		t.names = append(t.names, name)
		t.columns = append(t.columns, columns[i])
	}
	return t, nil
}

// Len is the number of rows.
func (t *Table) Len() int {
	return t.rows
}

// Names returns all column names in order, label included.
func (t *Table) Names() []string {
	return append([]string(nil), t.names...)
}

// FeatureNames returns every column except the label, in order. This is the
// list recorded alongside a trained model.
func (t *Table) FeatureNames() []string {
	out := make([]string, 0, len(t.names))
	for _, n := range t.names {
		if n != LabelColumn {
			out = append(out, n)
		}
	}
	return out
}

// Column returns the named column without copying.
func (t *Table) Column(name string) ([]float64, bool) {
	j, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[j], true
}

// Labels returns the label column as ints, or nil if the table has none.
func (t *Table) Labels() []int {
	col, ok := t.Column(LabelColumn)
	if !ok {
		return nil
	}
	out := make([]int, len(col))
	for i, v := range col {
		out[i] = int(v)
	}
	return out
}

// Subset returns a new table holding the given rows, in the given order.
func (t *Table) Subset(rows []int) *Table {
	cols := make([][]float64, len(t.columns))
	for j, src := range t.columns {
		dst := make([]float64, len(rows))
		for k, i := range rows {
			dst[k] = src[i]
		}
		cols[j] = dst
	}
	out, _ := NewTable(t.names, cols)
	return out
}
