package claims

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Well-known input columns.
const (
	DenialColumn = "Denial.Reason.Code"
	ChargeColumn = "Claim.Charge.Amount"
)

// Table is a claim file held in memory as strings, one row per claim.
// Empty cells are absent values.
type Table struct {
	header []string
	index  map[string]int
	rows   [][]string
}

// NewTable builds a table from a header and rows. Short rows are padded,
// long rows truncated to the header width.
func NewTable(header []string, rows [][]string) (*Table, error) {
	t := &Table{
		header: append([]string(nil), header...),
		index:  make(map[string]int, len(header)),
	}
	for i, h := range t.header {
		if _, dup := t.index[h]; dup {
			return nil, fmt.Errorf("duplicate column %q", h)
		}
		t.index[h] = i
	}
	t.rows = make([][]string, 0, len(rows))
	for _, r := range rows {
		t.rows = append(t.rows, fit(r, len(header)))
	}
	return t, nil
}

// Load reads a CSV claim file from disk.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// Read parses CSV claims from r. The first record is the header.
func Read(r io.Reader) (*Table, error) {
	br := bufio.NewReaderSize(r, 256*1024)

	// Skip UTF-8 BOM if present
	if bom, err := br.Peek(3); err == nil && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty claim file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, rec)
	}
	return NewTable(header, rows)
}

func fit(rec []string, width int) []string {
	out := make([]string, width)
	copy(out, rec)
	return out
}

// Len is the number of claims.
func (t *Table) Len() int {
	return len(t.rows)
}

// Header returns the column names in file order.
func (t *Table) Header() []string {
	return append([]string(nil), t.header...)
}

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns a copy of the named column, or ok=false if it is absent.
func (t *Table) Column(name string) ([]string, bool) {
	j, ok := t.index[name]
	if !ok {
		return nil, false
	}
	out := make([]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out, true
}

// Row returns the i-th claim keyed by column name.
func (t *Table) Row(i int) map[string]string {
	out := make(map[string]string, len(t.header))
	for j, h := range t.header {
		out[h] = t.rows[i][j]
	}
	return out
}

// Records returns the header followed by every row, ready for csv.Writer.
func (t *Table) Records() [][]string {
	out := make([][]string, 0, len(t.rows)+1)
	out = append(out, t.Header())
	for _, r := range t.rows {
		out = append(out, append([]string(nil), r...))
	}
	return out
}
