// pkg/classify/classify_test.go
package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twi-data/streamwatch-ingress/pkg/model"
)

func TestClassifyHeader(t *testing.T) {
	c := Default()

	tests := []struct {
		header string
		want   model.Role
	}{
		// Identifier keywords
		{"Site ID", model.RoleIdentifier},
		{"Station", model.RoleIdentifier},
		{"Sampling Location", model.RoleIdentifier},
		{"Volunteer Name", model.RoleIdentifier},
		{"EquipmentID", model.RoleIdentifier},
		{"SampleID", model.RoleIdentifier},

		// Date keywords
		{"Date", model.RoleDate},
		{"Sample Date", model.RoleDate},
		{"Collection Time", model.RoleDate},
		{"DATE COLLECTED", model.RoleDate},

		// Parameter keywords
		{"Dissolved Oxygen", model.RoleParameter},
		{"Water Temp (C)", model.RoleParameter},
		{"Temperature", model.RoleParameter},
		{"Turbidity", model.RoleParameter},
		{"pH", model.RoleParameter},
		{"Nitrate-N", model.RoleParameter},
		{"Phosphate", model.RoleParameter},
		{"Chloride", model.RoleParameter},
		{"Specific Conductance", model.RoleParameter},
		{"E. coli", model.RoleParameter},
		{"MPN/100ml", model.RoleParameter},
		{"Phycocyanin", model.RoleParameter},
		{"Latitude", model.RoleParameter},
		{"TDS", model.RoleParameter},

		// Free text keywords
		{"Notes", model.RoleFreeText},
		{"Comments", model.RoleFreeText},
		{"Description", model.RoleFreeText},
		{"Taxon", model.RoleFreeText},

		// Nothing matches
		{"Frobnicator", model.RoleUnknown},
		{"", model.RoleUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, c.ClassifyHeader(tt.header), "header %q", tt.header)
		})
	}
}

// "ph" and "do" only count as whole tokens, otherwise volunteer contact
// columns would be coerced to numbers
func TestClassifyHeaderTokenKeywords(t *testing.T) {
	c := Default()

	assert.Equal(t, model.RoleParameter, c.ClassifyHeader("pH"))
	assert.Equal(t, model.RoleParameter, c.ClassifyHeader("Field pH"))
	assert.Equal(t, model.RoleParameter, c.ClassifyHeader("DO (mg/l)"))
	assert.Equal(t, model.RoleUnknown, c.ClassifyHeader("Phone"))
	assert.Equal(t, model.RoleUnknown, c.ClassifyHeader("Donations"))
}

// A header matching several keyword sets takes the highest-priority role:
// identifier beats date beats parameter beats free text.
func TestClassifyHeaderPriority(t *testing.T) {
	c := Default()

	// "site" (identifier) and "desc" (free text)
	assert.Equal(t, model.RoleIdentifier, c.ClassifyHeader("Site Desc"))
	// "date" (date) and "result" (parameter)
	assert.Equal(t, model.RoleDate, c.ClassifyHeader("Result Date"))
	// "station" (identifier) and "date" (date)
	assert.Equal(t, model.RoleIdentifier, c.ClassifyHeader("Station Date"))
}

func TestClassifySheet(t *testing.T) {
	c := Default()
	sheet := &model.Sheet{
		Name:    "SW Data",
		Headers: []string{"Site", "Date", "pH", "Turbidity", "Notes", "Frobnicator"},
	}

	assignments := c.ClassifySheet(sheet)
	require.Len(t, assignments, 6)

	roles := make([]model.Role, len(assignments))
	for i, a := range assignments {
		roles[i] = a.Role
		assert.Equal(t, i, a.Index)
		assert.False(t, a.ByPosition)
	}
	assert.Equal(t, []model.Role{
		model.RoleIdentifier,
		model.RoleDate,
		model.RoleParameter,
		model.RoleParameter,
		model.RoleFreeText,
		model.RoleUnknown,
	}, roles)
}

// When no header matches the keyword sets, the first two columns fall back
// to identifier and date by position.
func TestClassifySheetPositionalFallback(t *testing.T) {
	c := Default()
	sheet := &model.Sheet{
		Name:    "Export1",
		Headers: []string{"ColA", "ColB", "ColC"},
	}

	assignments := c.ClassifySheet(sheet)
	require.Len(t, assignments, 3)

	assert.Equal(t, model.RoleIdentifier, assignments[0].Role)
	assert.True(t, assignments[0].ByPosition)
	assert.Equal(t, model.RoleDate, assignments[1].Role)
	assert.True(t, assignments[1].ByPosition)
	assert.Equal(t, model.RoleUnknown, assignments[2].Role)
	assert.False(t, assignments[2].ByPosition)
}

// A keyword identifier anywhere in the sheet suppresses the fallback
func TestClassifySheetNoFallbackWhenIdentifierFound(t *testing.T) {
	c := Default()
	sheet := &model.Sheet{
		Name:    "Export2",
		Headers: []string{"ColA", "Site", "ColC"},
	}

	assignments := c.ClassifySheet(sheet)
	require.Len(t, assignments, 3)
	assert.Equal(t, model.RoleUnknown, assignments[0].Role)
	assert.Equal(t, model.RoleIdentifier, assignments[1].Role)
}
