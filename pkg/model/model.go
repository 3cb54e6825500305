// pkg/model/model.go
package model

import "strings"

// Role is the semantic category assigned to a spreadsheet column.
type Role int

const (
	RoleUnknown Role = iota
	RoleIdentifier
	RoleDate
	RoleParameter
	RoleFreeText
)

// String returns a string representation of the role
func (r Role) String() string {
	switch r {
	case RoleIdentifier:
		return "identifier"
	case RoleDate:
		return "date"
	case RoleParameter:
		return "parameter"
	case RoleFreeText:
		return "free_text"
	default:
		return "unknown"
	}
}

// QualityFlag annotates a record with its completeness/outlier status.
// It is a column value on the destination row, not a validation gate.
type QualityFlag string

const (
	FlagClean       QualityFlag = "clean"
	FlagHighMissing QualityFlag = "high_missing"
	FlagOutlier     QualityFlag = "potential_outlier"
)

// rank orders flags by severity for merging. potential_outlier wins over
// high_missing, which wins over clean.
func (f QualityFlag) rank() int {
	switch f {
	case FlagOutlier:
		return 2
	case FlagHighMissing:
		return 1
	default:
		return 0
	}
}

// MergeFlags returns the more severe of two quality flags.
func MergeFlags(a, b QualityFlag) QualityFlag {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// Sheet is a row-oriented view of one worksheet: an ordered header list and
// the data rows beneath it. Cell values are the raw strings excelize reads;
// a row may be shorter than the header list when trailing cells are empty.
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// ColumnAssignment pairs a column with the role the classifier gave it.
type ColumnAssignment struct {
	Index      int    // Position in the sheet
	Header     string // Header after trimming and de-duplication
	Role       Role
	ByPosition bool // True when the role came from the positional fallback
}

// NormalizeHeader lowercases and trims a header for keyword matching.
func NormalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
