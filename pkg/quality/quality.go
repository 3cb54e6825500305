// pkg/quality/quality.go
package quality

import (
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/twi-data/streamwatch-ingress/pkg/model"
	"github.com/twi-data/streamwatch-ingress/pkg/normalize"
)

// Annotator assigns a quality flag to each normalized record:
// "high_missing" when too many fields are null, "potential_outlier" when a
// numeric value falls outside the IQR fence of its column. Outlier
// detection needs the whole column's distribution, so annotation runs over
// a full sheet of records, never streaming.
type Annotator struct {
	// MissingThreshold is the null fraction above which a record is
	// flagged high_missing
	MissingThreshold float64
	// IQRMultiplier scales the interquartile range for the outlier fence
	IQRMultiplier float64
	// MinSamples is the minimum non-null count a column needs before the
	// outlier rule applies to it
	MinSamples int

	logger *zap.Logger
}

// New creates an Annotator with the standard StreamWatch thresholds
func New() *Annotator {
	return &Annotator{
		MissingThreshold: 0.5,
		IQRMultiplier:    1.5,
		MinSamples:       4,
		logger:           zap.L().Named("quality"),
	}
}

// Bounds is the acceptance interval for one numeric column.
type Bounds struct {
	Lower float64
	Upper float64
}

// Quartiles returns Q1 and Q3 of the values using linear interpolation at
// position p*(n-1), the same convention pandas uses by default.
// [1,2,3,4,100] gives Q1=2 and Q3=4.
func Quartiles(values []float64) (q1, q3 float64) {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return interpolated(sorted, 0.25), interpolated(sorted, 0.75)
}

// interpolated reads a quantile from sorted values at position p*(n-1)
func interpolated(sorted []float64, p float64) float64 {
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// ColumnSummary holds descriptive statistics for one parameter column.
type ColumnSummary struct {
	Samples int
	Mean    float64
	StdDev  float64
	Q1      float64
	Q3      float64
}

// Summarize computes per-column descriptive statistics across the records
// for the quality report logging.
func (a *Annotator) Summarize(records []normalize.Record) map[string]ColumnSummary {
	columns := collectColumns(records)
	summaries := make(map[string]ColumnSummary, len(columns))
	for h, values := range columns {
		q1, q3 := Quartiles(values)
		summaries[h] = ColumnSummary{
			Samples: len(values),
			Mean:    stat.Mean(values, nil),
			StdDev:  stat.StdDev(values, nil),
			Q1:      q1,
			Q3:      q3,
		}
	}
	return summaries
}

// ColumnBounds computes the IQR fence for each parameter column across the
// given records. Columns with fewer than MinSamples non-null values get no
// fence and are never flagged.
func (a *Annotator) ColumnBounds(records []normalize.Record) map[string]Bounds {
	columns := collectColumns(records)

	bounds := make(map[string]Bounds, len(columns))
	for h, values := range columns {
		if len(values) < a.MinSamples {
			continue
		}
		q1, q3 := Quartiles(values)
		iqr := q3 - q1
		bounds[h] = Bounds{
			Lower: q1 - a.IQRMultiplier*iqr,
			Upper: q3 + a.IQRMultiplier*iqr,
		}
	}
	return bounds
}

// collectColumns gathers the non-null values of every parameter column
func collectColumns(records []normalize.Record) map[string][]float64 {
	columns := make(map[string][]float64)
	for _, rec := range records {
		for _, h := range rec.Order {
			if rec.Roles[h] != model.RoleParameter {
				continue
			}
			if v, ok := rec.Float(h); ok {
				columns[h] = append(columns[h], v)
			}
		}
	}
	return columns
}

// Annotate returns a quality flag per record, aligned by index. Flag
// precedence is fixed: potential_outlier overrides high_missing, which
// overrides clean.
func (a *Annotator) Annotate(records []normalize.Record) []model.QualityFlag {
	bounds := a.ColumnBounds(records)
	flags := make([]model.QualityFlag, len(records))

	flagged := 0
	for i, rec := range records {
		flag := model.FlagClean

		if rec.NullFraction() > a.MissingThreshold {
			flag = model.MergeFlags(flag, model.FlagHighMissing)
		}

		for _, h := range rec.Order {
			b, ok := bounds[h]
			if !ok {
				continue
			}
			v, ok := rec.Float(h)
			if !ok {
				continue
			}
			if v < b.Lower || v > b.Upper {
				flag = model.MergeFlags(flag, model.FlagOutlier)
				break
			}
		}

		flags[i] = flag
		if flag != model.FlagClean {
			flagged++
		}
	}

	a.logger.Debug("Annotated records",
		zap.Int("records", len(records)),
		zap.Int("flagged", flagged),
		zap.Int("fencedColumns", len(bounds)))

	return flags
}
