package parquetio

import (
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/claimrisk/internal/features"
)

// ValidateSchema checks that a feature file carries the charge and label
// columns and nothing nested.
func ValidateSchema(schema *parquet.Schema) error {
	columns := make(map[string]bool)
	for _, field := range schema.Fields() {
		if !field.Leaf() {
			return fmt.Errorf("nested column %q not supported in feature files", field.Name())
		}
		columns[field.Name()] = true
	}

	for _, col := range []string{features.ChargeColumn, features.LabelColumn} {
		if !columns[col] {
			return fmt.Errorf("missing required column: %s", col)
		}
	}
	return nil
}
