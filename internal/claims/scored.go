package claims

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Columns appended to every scored claim.
const (
	RiskColumn       = "denial_risk"
	SuggestionColumn = "suggestion"
)

// WriteScored writes the original claims with the risk probability and
// suggestion appended as two trailing columns.
func WriteScored(w io.Writer, t *Table, risk []float64, suggestions []string) error {
	if len(risk) != t.Len() || len(suggestions) != t.Len() {
		return fmt.Errorf("scored columns length mismatch: %d claims, %d risks, %d suggestions",
			t.Len(), len(risk), len(suggestions))
	}

	cw := csv.NewWriter(w)
	header := append(t.Header(), RiskColumn, SuggestionColumn)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range t.rows {
		rec := make([]string, 0, len(r)+2)
		rec = append(rec, r...)
		rec = append(rec, strconv.FormatFloat(risk[i], 'f', -1, 64), suggestions[i])
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteScoredFile is WriteScored to a path.
func WriteScoredFile(path string, t *Table, risk []float64, suggestions []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteScored(f, t, risk, suggestions); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
