// pkg/normalize/normalize.go
package normalize

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/twi-data/streamwatch-ingress/pkg/model"
)

// Record is one source row coerced into typed values, keyed by header.
// Values are string (identifier/free text/unknown), float64 (parameter),
// time.Time (date), or nil when coercion failed or the cell was blank.
type Record struct {
	Row    int // 1-based data row number in the source sheet
	Values map[string]interface{}
	Roles  map[string]model.Role
	Order  []string // headers in sheet order
}

// Identifier returns the value of the first identifier-role column
func (r Record) Identifier() string {
	for _, h := range r.Order {
		if r.Roles[h] == model.RoleIdentifier {
			if s, ok := r.Values[h].(string); ok {
				return s
			}
			return ""
		}
	}
	return ""
}

// Date returns the value of the first date-role column
func (r Record) Date() (time.Time, bool) {
	for _, h := range r.Order {
		if r.Roles[h] == model.RoleDate {
			if t, ok := r.Values[h].(time.Time); ok {
				return t, true
			}
			return time.Time{}, false
		}
	}
	return time.Time{}, false
}

// Float returns the numeric value of the named column
func (r Record) Float(header string) (float64, bool) {
	v, ok := r.Values[header].(float64)
	return v, ok
}

// String returns the string value of the named column
func (r Record) String(header string) string {
	if s, ok := r.Values[header].(string); ok {
		return s
	}
	return ""
}

// NullFraction returns the fraction of null fields among the record's
// classified columns. Unknown-role columns are excluded: they never reach
// the destination table, so they don't count against completeness.
func (r Record) NullFraction() float64 {
	total := 0
	nulls := 0
	for _, h := range r.Order {
		if r.Roles[h] == model.RoleUnknown {
			continue
		}
		total++
		if isNull(r.Values[h]) {
			nulls++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(nulls) / float64(total)
}

// isNull treats nil and blank strings as null
func isNull(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// Normalizer applies per-role coercion to raw sheet rows.
type Normalizer struct {
	logger *zap.Logger
}

// New creates a Normalizer
func New() *Normalizer {
	return &Normalizer{logger: zap.L().Named("normalizer")}
}

// NormalizeRow coerces one raw row into a Record, or decides to skip it.
// A row is skipped when its first identifier-role cell is empty or
// whitespace. Coercion failures become nulls and are reported as
// operations; they are never surfaced as errors.
func (n *Normalizer) NormalizeRow(
	sheet *model.Sheet,
	rowIdx int,
	assignments []model.ColumnAssignment,
) (Record, bool, []model.ImportOperation) {
	rec := Record{
		Row:    rowIdx + 1,
		Values: make(map[string]interface{}, len(assignments)),
		Roles:  make(map[string]model.Role, len(assignments)),
		Order:  make([]string, 0, len(assignments)),
	}

	row := sheet.Rows[rowIdx]
	cell := func(col int) string {
		if col < len(row) {
			return row[col]
		}
		return ""
	}

	// Skip decision first: the row must have a non-blank identifier
	rawID := ""
	for _, a := range assignments {
		if a.Role == model.RoleIdentifier {
			rawID = cell(a.Index)
			break
		}
	}
	if strings.TrimSpace(rawID) == "" {
		return Record{}, true, nil
	}

	id := CoerceIdentifier(rawID)
	rowRef := fmt.Sprintf("%s#%d", id, rec.Row)

	var ops []model.ImportOperation
	for _, a := range assignments {
		raw := cell(a.Index)
		rec.Order = append(rec.Order, a.Header)
		rec.Roles[a.Header] = a.Role

		switch a.Role {
		case model.RoleIdentifier:
			coerced := CoerceIdentifier(raw)
			rec.Values[a.Header] = coerced
			if coerced != raw && strings.TrimSpace(raw) != "" {
				ops = append(ops, model.ImportOperation{
					ColumnName:    a.Header,
					OriginalValue: raw,
					NewValue:      coerced,
					RowIdentifier: rowRef,
					Operation:     model.OpIdentifierUppercased,
					Reason:        "identifier trimmed and uppercased",
					RecordedAt:    time.Now(),
				})
			}

		case model.RoleDate:
			if strings.TrimSpace(raw) == "" {
				rec.Values[a.Header] = nil
				continue
			}
			t, ok := CoerceDate(raw)
			if !ok {
				rec.Values[a.Header] = nil
				ops = append(ops, model.ImportOperation{
					ColumnName:    a.Header,
					OriginalValue: raw,
					NewValue:      "",
					RowIdentifier: rowRef,
					Operation:     model.OpDateCoercionFailed,
					Reason:        "value not parseable as date",
					RecordedAt:    time.Now(),
				})
				continue
			}
			rec.Values[a.Header] = t

		case model.RoleParameter:
			if strings.TrimSpace(raw) == "" {
				rec.Values[a.Header] = nil
				continue
			}
			v, ok := CoerceNumber(raw)
			if !ok {
				rec.Values[a.Header] = nil
				ops = append(ops, model.ImportOperation{
					ColumnName:    a.Header,
					OriginalValue: raw,
					NewValue:      "",
					RowIdentifier: rowRef,
					Operation:     model.OpNumericCoercionFailed,
					Reason:        "value not parseable as float",
					RecordedAt:    time.Now(),
				})
				continue
			}
			rec.Values[a.Header] = v

		case model.RoleFreeText:
			// Free text keeps its case
			rec.Values[a.Header] = CoerceText(raw)

		default:
			// Unknown columns are kept as raw trimmed strings for the
			// dataset builders but never enter generic records
			rec.Values[a.Header] = CoerceText(raw)
		}
	}

	return rec, false, ops
}
