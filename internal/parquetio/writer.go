package parquetio

import (
	"fmt"
	"os"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/claimrisk/internal/features"
)

// columnOrderKey stores the feature column order in file metadata. Parquet
// groups sort their fields by name, so the schema alone loses it.
const columnOrderKey = "claimrisk.columns"

const writeBatchSize = 1024

// Schema returns the Parquet schema for a feature table with the given
// columns. The charge column is DOUBLE; grouped tiers and the label are INT32.
func Schema(names []string) *parquet.Schema {
	group := make(parquet.Group, len(names))
	for _, name := range names {
		if name == features.ChargeColumn {
			group[name] = parquet.Leaf(parquet.DoubleType)
		} else {
			group[name] = parquet.Leaf(parquet.Int32Type)
		}
	}
	return parquet.NewSchema("claim_features", group)
}

// WriteTable writes t to path as a single Parquet file.
func WriteTable(path string, t *features.Table) error {
	names := t.Names()
	for _, n := range names {
		if strings.Contains(n, ",") {
			return fmt.Errorf("feature column %q contains a comma", n)
		}
	}
	schema := Schema(names)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create parquet file: %w", err)
	}

	w := parquet.NewWriter(f, schema,
		parquet.KeyValueMetadata(columnOrderKey, strings.Join(names, ",")),
	)

	leaf := make([]int, len(names))
	cols := make([][]float64, len(names))
	for j, name := range names {
		lc, ok := schema.Lookup(name)
		if !ok {
			f.Close()
			return fmt.Errorf("schema lookup %q failed", name)
		}
		leaf[j] = lc.ColumnIndex
		cols[j], _ = t.Column(name)
	}

	batch := make([]parquet.Row, 0, writeBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := w.WriteRows(batch); err != nil {
			return fmt.Errorf("write parquet rows: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for i := 0; i < t.Len(); i++ {
		row := make(parquet.Row, len(names))
		for j, name := range names {
			v := cols[j][i]
			if name == features.ChargeColumn {
				row[leaf[j]] = parquet.DoubleValue(v).Level(0, 0, leaf[j])
			} else {
				row[leaf[j]] = parquet.Int32Value(int32(v)).Level(0, 0, leaf[j])
			}
		}
		batch = append(batch, row)
		if len(batch) == writeBatchSize {
			if err := flush(); err != nil {
				f.Close()
				return err
			}
		}
	}
	if err := flush(); err != nil {
		f.Close()
		return err
	}

	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return f.Close()
}
