package parquetio

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/claimrisk/internal/features"
)

const readBatchSize = 256

// ReadTable loads a feature table written by WriteTable. Column order comes
// from the file metadata when present, otherwise from the schema.
func ReadTable(path string) (*features.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat parquet file: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	schema := pf.Schema()
	if err := ValidateSchema(schema); err != nil {
		return nil, err
	}

	leafNames := make([]string, 0)
	for _, col := range schema.Columns() {
		leafNames = append(leafNames, strings.Join(col, "."))
	}

	names := leafNames
	if order, ok := pf.Lookup(columnOrderKey); ok && order != "" {
		names = strings.Split(order, ",")
		if len(names) != len(leafNames) {
			return nil, fmt.Errorf("column order metadata lists %d columns, schema has %d", len(names), len(leafNames))
		}
	}

	byLeaf := make([][]float64, len(leafNames))
	for i := range byLeaf {
		byLeaf[i] = make([]float64, 0, pf.NumRows())
	}

	for _, rg := range pf.RowGroups() {
		if err := readRowGroup(rg, byLeaf); err != nil {
			return nil, err
		}
	}

	cols := make([][]float64, len(names))
	for j, name := range names {
		lc, ok := schema.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("column %q listed in metadata but not in schema", name)
		}
		cols[j] = byLeaf[lc.ColumnIndex]
	}
	return features.NewTable(names, cols)
}

func readRowGroup(rg parquet.RowGroup, byLeaf [][]float64) error {
	rows := rg.Rows()
	defer rows.Close()

	buf := make([]parquet.Row, readBatchSize)
	for {
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			for _, v := range row {
				c := v.Column()
				if c < 0 || c >= len(byLeaf) {
					return fmt.Errorf("value for unknown column index %d", c)
				}
				f, convErr := toFloat(v)
				if convErr != nil {
					return convErr
				}
				byLeaf[c] = append(byLeaf[c], f)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read parquet rows: %w", err)
		}
	}
}

func toFloat(v parquet.Value) (float64, error) {
	switch v.Kind() {
	case parquet.Double:
		return v.Double(), nil
	case parquet.Float:
		return float64(v.Float()), nil
	case parquet.Int32:
		return float64(v.Int32()), nil
	case parquet.Int64:
		return float64(v.Int64()), nil
	case parquet.Boolean:
		if v.Boolean() {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported parquet value kind %s in column %d", v.Kind(), v.Column())
	}
}
