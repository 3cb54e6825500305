// pkg/model/operations.go
package model

import "time"

// ImportOperation records a single value-level intervention made while
// normalizing a row: a coercion failure nulled out, an identifier
// uppercased, a header renamed. Operations are batch-inserted into the
// data_quality_flags audit table at the end of a dataset import.
type ImportOperation struct {
	TableName     string      // Destination table
	ColumnName    string      // Source column that was touched
	OriginalValue interface{} // Original cell value (may be nil)
	NewValue      string      // Value after the operation, "" for nulled
	RowIdentifier string      // Identifier value plus source row number
	Operation     string      // e.g. "numeric_coercion_failed"
	Reason        string      // e.g. "value not parseable as float"
	RecordedAt    time.Time   // Set when the operation is created
}

// Operation names used across the importer.
const (
	OpNumericCoercionFailed = "numeric_coercion_failed"
	OpDateCoercionFailed    = "date_coercion_failed"
	OpIdentifierUppercased  = "identifier_uppercased"
	OpHeaderDeduplicated    = "header_deduplicated"
	OpRowSkipped            = "row_skipped"
)
