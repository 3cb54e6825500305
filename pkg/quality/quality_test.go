// pkg/quality/quality_test.go
package quality

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twi-data/streamwatch-ingress/pkg/model"
	"github.com/twi-data/streamwatch-ingress/pkg/normalize"
)

// paramRecords builds one record per value in a single parameter column
func paramRecords(header string, values []interface{}) []normalize.Record {
	records := make([]normalize.Record, len(values))
	for i, v := range values {
		records[i] = normalize.Record{
			Row: i + 1,
			Values: map[string]interface{}{
				"Site": fmt.Sprintf("S%d", i+1),
				header: v,
			},
			Roles: map[string]model.Role{
				"Site": model.RoleIdentifier,
				header: model.RoleParameter,
			},
			Order: []string{"Site", header},
		}
	}
	return records
}

func TestQuartiles(t *testing.T) {
	q1, q3 := Quartiles([]float64{1, 2, 3, 4, 100})
	assert.Equal(t, 2.0, q1)
	assert.Equal(t, 4.0, q3)

	q1, q3 = Quartiles([]float64{100, 4, 3, 2, 1})
	assert.Equal(t, 2.0, q1, "input order must not matter")
	assert.Equal(t, 4.0, q3)
}

func TestAnnotateFlagsOutlier(t *testing.T) {
	a := New()
	records := paramRecords("Turbidity", []interface{}{1.0, 2.0, 3.0, 4.0, 100.0})

	flags := a.Annotate(records)
	require.Len(t, flags, 5)

	// Q1=2, Q3=4, IQR=2: fence is [-1, 7], only 100 falls outside
	assert.Equal(t, []model.QualityFlag{
		model.FlagClean,
		model.FlagClean,
		model.FlagClean,
		model.FlagClean,
		model.FlagOutlier,
	}, flags)
}

func TestAnnotateSkipsSmallColumns(t *testing.T) {
	a := New()
	records := paramRecords("Turbidity", []interface{}{1.0, 2.0, 100.0})

	// Three samples are below MinSamples, so no fence and no flags
	for _, flag := range a.Annotate(records) {
		assert.Equal(t, model.FlagClean, flag)
	}
}

func TestAnnotateFlagsHighMissing(t *testing.T) {
	a := New()

	rec := normalize.Record{
		Row: 1,
		Values: map[string]interface{}{
			"Site": "AC1", "Date": nil, "pH": nil, "Turbidity": nil, "Notes": "x",
		},
		Roles: map[string]model.Role{
			"Site":      model.RoleIdentifier,
			"Date":      model.RoleDate,
			"pH":        model.RoleParameter,
			"Turbidity": model.RoleParameter,
			"Notes":     model.RoleFreeText,
		},
		Order: []string{"Site", "Date", "pH", "Turbidity", "Notes"},
	}

	flags := a.Annotate([]normalize.Record{rec})
	require.Len(t, flags, 1)
	assert.Equal(t, model.FlagHighMissing, flags[0])
}

// A record that is both mostly null and out of fence gets the outlier flag
func TestAnnotatePrecedence(t *testing.T) {
	a := New()
	records := paramRecords("Turbidity", []interface{}{1.0, 2.0, 3.0, 4.0, 100.0})

	// Make the outlier record mostly null as well
	out := &records[4]
	out.Values["Date"] = nil
	out.Values["pH"] = nil
	out.Values["Chloride"] = nil
	out.Roles["Date"] = model.RoleDate
	out.Roles["pH"] = model.RoleParameter
	out.Roles["Chloride"] = model.RoleParameter
	out.Order = append(out.Order, "Date", "pH", "Chloride")

	flags := a.Annotate(records)
	require.True(t, records[4].NullFraction() > a.MissingThreshold)
	assert.Equal(t, model.FlagOutlier, flags[4])
}

func TestColumnBounds(t *testing.T) {
	a := New()
	records := paramRecords("pH", []interface{}{6.5, 7.0, 7.5, 8.0})

	bounds := a.ColumnBounds(records)
	require.Contains(t, bounds, "pH")

	b := bounds["pH"]
	assert.Less(t, b.Lower, 6.5)
	assert.Greater(t, b.Upper, 8.0)
}

func TestColumnBoundsIgnoresNulls(t *testing.T) {
	a := New()
	records := paramRecords("pH", []interface{}{6.5, nil, 7.0, nil, 7.5})

	// Only three non-null samples, below MinSamples
	bounds := a.ColumnBounds(records)
	assert.NotContains(t, bounds, "pH")
}

func TestSummarize(t *testing.T) {
	a := New()
	records := paramRecords("pH", []interface{}{1.0, 2.0, 3.0, 4.0, 100.0})

	summaries := a.Summarize(records)
	require.Contains(t, summaries, "pH")

	s := summaries["pH"]
	assert.Equal(t, 5, s.Samples)
	assert.Equal(t, 22.0, s.Mean)
	assert.Equal(t, 2.0, s.Q1)
	assert.Equal(t, 4.0, s.Q3)
	assert.Greater(t, s.StdDev, 0.0)
}

func TestMergeFlags(t *testing.T) {
	assert.Equal(t, model.FlagOutlier, model.MergeFlags(model.FlagHighMissing, model.FlagOutlier))
	assert.Equal(t, model.FlagOutlier, model.MergeFlags(model.FlagOutlier, model.FlagHighMissing))
	assert.Equal(t, model.FlagHighMissing, model.MergeFlags(model.FlagClean, model.FlagHighMissing))
	assert.Equal(t, model.FlagClean, model.MergeFlags(model.FlagClean, model.FlagClean))
}
