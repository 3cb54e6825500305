// pkg/normalize/normalize_test.go
package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twi-data/streamwatch-ingress/pkg/model"
)

func TestCoerceNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"7.2", 7.2, true},
		{" 7.2 ", 7.2, true},
		{"1,280", 1280, true},
		{"-3.5", -3.5, true},
		{"0", 0, true},
		{"not-a-number", 0, false},
		{"", 0, false},
		{"7.2 mg/l", 0, false},
	}
	for _, tt := range tests {
		got, ok := CoerceNumber(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, "input %q", tt.in)
		}
	}
}

func TestCoerceDate(t *testing.T) {
	want := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		in string
		ok bool
	}{
		{"2024-01-05", true},
		{"1/5/2024", true},
		{"01/05/2024", true},
		{"Jan 5, 2024", true},
		{"2024/01/05", true},
		{"yesterday", false},
		{"", false},
	}
	for _, tt := range tests {
		got, ok := CoerceDate(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		if tt.ok {
			assert.Equal(t, want.Year(), got.Year(), "input %q", tt.in)
			assert.Equal(t, want.Month(), got.Month(), "input %q", tt.in)
			assert.Equal(t, want.Day(), got.Day(), "input %q", tt.in)
		}
	}
}

func TestCoerceIdentifierIdempotent(t *testing.T) {
	once := CoerceIdentifier(" ac1 ")
	assert.Equal(t, "AC1", once)
	assert.Equal(t, once, CoerceIdentifier(once))
}

func testAssignments() []model.ColumnAssignment {
	return []model.ColumnAssignment{
		{Index: 0, Header: "Site", Role: model.RoleIdentifier},
		{Index: 1, Header: "Date", Role: model.RoleDate},
		{Index: 2, Header: "pH", Role: model.RoleParameter},
		{Index: 3, Header: "Notes", Role: model.RoleFreeText},
	}
}

func TestNormalizeRow(t *testing.T) {
	sheet := &model.Sheet{
		Name:    "WQ",
		Headers: []string{"Site", "Date", "pH", "Notes"},
		Rows: [][]string{
			{"ac1 ", "2024-01-05", "7.2", ""},
		},
	}

	n := New()
	rec, skip, ops := n.NormalizeRow(sheet, 0, testAssignments())
	require.False(t, skip)

	assert.Equal(t, "AC1", rec.Identifier())

	d, ok := rec.Date()
	require.True(t, ok)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, time.January, d.Month())
	assert.Equal(t, 5, d.Day())

	ph, ok := rec.Float("pH")
	require.True(t, ok)
	assert.Equal(t, 7.2, ph)

	assert.Equal(t, "", rec.String("Notes"))

	// The uppercasing is the only recorded operation
	require.Len(t, ops, 1)
	assert.Equal(t, model.OpIdentifierUppercased, ops[0].Operation)
	assert.Equal(t, "Site", ops[0].ColumnName)
	assert.Equal(t, "ac1 ", ops[0].OriginalValue)
	assert.Equal(t, "AC1", ops[0].NewValue)
}

func TestNormalizeRowSkipsEmptyIdentifier(t *testing.T) {
	sheet := &model.Sheet{
		Headers: []string{"Site", "Date", "pH", "Notes"},
		Rows: [][]string{
			{"", "2024-01-05", "7.2", "looks fine"},
			{"   ", "2024-01-05", "7.2", "also blank"},
		},
	}

	n := New()
	for i := range sheet.Rows {
		_, skip, ops := n.NormalizeRow(sheet, i, testAssignments())
		assert.True(t, skip, "row %d", i)
		assert.Empty(t, ops)
	}
}

func TestNormalizeRowCoercionFailures(t *testing.T) {
	sheet := &model.Sheet{
		Headers: []string{"Site", "Date", "pH", "Notes"},
		Rows: [][]string{
			{"AC1", "not-a-date", "not-a-number", "ok"},
		},
	}

	n := New()
	rec, skip, ops := n.NormalizeRow(sheet, 0, testAssignments())
	require.False(t, skip)

	// Failed coercions become nulls, the row survives
	_, ok := rec.Date()
	assert.False(t, ok)
	_, ok = rec.Float("pH")
	assert.False(t, ok)
	assert.Nil(t, rec.Values["Date"])
	assert.Nil(t, rec.Values["pH"])

	require.Len(t, ops, 2)
	opNames := []string{ops[0].Operation, ops[1].Operation}
	assert.Contains(t, opNames, model.OpDateCoercionFailed)
	assert.Contains(t, opNames, model.OpNumericCoercionFailed)
	for _, op := range ops {
		assert.Equal(t, "AC1#1", op.RowIdentifier)
	}
}

func TestNormalizeRowShortRow(t *testing.T) {
	// Rows can have fewer cells than headers
	sheet := &model.Sheet{
		Headers: []string{"Site", "Date", "pH", "Notes"},
		Rows: [][]string{
			{"AC1", "2024-01-05"},
		},
	}

	n := New()
	rec, skip, ops := n.NormalizeRow(sheet, 0, testAssignments())
	require.False(t, skip)
	assert.Empty(t, ops)
	assert.Nil(t, rec.Values["pH"])
	assert.Equal(t, "", rec.String("Notes"))
}

func TestNormalizeRowKeepsUnknownColumns(t *testing.T) {
	assignments := append(testAssignments(),
		model.ColumnAssignment{Index: 4, Header: "Phone", Role: model.RoleUnknown})
	sheet := &model.Sheet{
		Headers: []string{"Site", "Date", "pH", "Notes", "Phone"},
		Rows: [][]string{
			{"AC1", "2024-01-05", "7.2", "", " 555-0100 "},
		},
	}

	n := New()
	rec, skip, _ := n.NormalizeRow(sheet, 0, assignments)
	require.False(t, skip)
	assert.Equal(t, "555-0100", rec.String("Phone"))
}

func TestNullFraction(t *testing.T) {
	rec := Record{
		Values: map[string]interface{}{
			"Site":  "AC1",
			"Date":  nil,
			"pH":    nil,
			"Notes": "",
			"Extra": "kept but not counted",
		},
		Roles: map[string]model.Role{
			"Site":  model.RoleIdentifier,
			"Date":  model.RoleDate,
			"pH":    model.RoleParameter,
			"Notes": model.RoleFreeText,
			"Extra": model.RoleUnknown,
		},
		Order: []string{"Site", "Date", "pH", "Notes", "Extra"},
	}

	// 3 of 4 classified fields are null; the unknown column is excluded
	assert.InDelta(t, 0.75, rec.NullFraction(), 1e-9)
}

// Re-normalizing already-clean values produces the same record and no
// operations
func TestNormalizeRowIdempotent(t *testing.T) {
	sheet := &model.Sheet{
		Headers: []string{"Site", "Date", "pH", "Notes"},
		Rows: [][]string{
			{"AC1", "2024-01-05", "7.2", "clear water"},
		},
	}

	n := New()
	rec, skip, ops := n.NormalizeRow(sheet, 0, testAssignments())
	require.False(t, skip)
	assert.Empty(t, ops)
	assert.Equal(t, "AC1", rec.Identifier())
	assert.Equal(t, "clear water", rec.String("Notes"))
}
