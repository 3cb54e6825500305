// pkg/importer/dataset.go
package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/twi-data/streamwatch-ingress/pkg/model"
	"github.com/twi-data/streamwatch-ingress/pkg/normalize"
	"github.com/twi-data/streamwatch-ingress/pkg/store"
)

// BuildFunc turns one normalized record into zero or more destination rows.
// Measurement builders unpivot wide rows into long ones, so a single record
// can produce several rows.
type BuildFunc func(runID string, rec normalize.Record, flag model.QualityFlag) [][]interface{}

// Dataset binds a source workbook to a destination table.
type Dataset struct {
	Name      string
	File      string   // workbook file name under the data directory
	Sheets    []string // candidate sheet names, first sheet when empty
	Table     string
	KeyColumn string // natural key for upserts, empty for append-only tables
	Columns   []string
	Build     BuildFunc
}

// DefaultDatasets returns the StreamWatch source files and their
// destination bindings.
func DefaultDatasets() []Dataset {
	return []Dataset{
		{
			Name:      "sites",
			File:      "2025 StreamWatch Locations.xlsx",
			Sheets:    []string{"SWSites_2024"},
			Table:     store.TableSites,
			KeyColumn: "site_id",
			Columns:   []string{"site_id", "site_name", "waterbody", "latitude", "longitude", "description", "run_id"},
			Build:     buildSite,
		},
		{
			Name:    "water_quality",
			File:    "30 yr StreamWatch Data Analysis.xlsx",
			Table:   store.TableWaterQuality,
			Columns: measurementColumns,
			Build:   buildMeasurements,
		},
		{
			Name:    "historical_water_quality",
			File:    "All StreamWatch Data.xlsx",
			Sheets:  []string{"All Data"},
			Table:   store.TableHistoricalWaterQuality,
			Columns: measurementColumns,
			Build:   buildMeasurements,
		},
		{
			Name:    "biological_data",
			File:    "BATSITES COLLECTED.xlsx",
			Sheets:  []string{"BUGSPICKED"},
			Table:   store.TableBiologicalData,
			Columns: []string{"site_id", "sample_date", "taxon", "count", "abundance", "dominance", "quality_flag", "notes", "run_id"},
			Build:   buildBiological,
		},
		{
			Name:    "bacterial_data",
			File:    "BACT and HAB 2025 Data.xlsx",
			Sheets:  []string{"IDEXX"},
			Table:   store.TableBacterialData,
			Columns: []string{"site_id", "sample_date", "test_type", "result", "unit", "quality_flag", "notes", "run_id"},
			Build:   buildBacterial,
		},
		{
			Name:    "algal_bloom_data",
			File:    "BACT and HAB 2025 Data.xlsx",
			Sheets:  []string{"HAB", "Phycocyanin"},
			Table:   store.TableAlgalBloomData,
			Columns: []string{"site_id", "sample_date", "parameter", "value", "unit", "bloom_status", "quality_flag", "run_id"},
			Build:   buildAlgal,
		},
		{
			Name:      "volunteers",
			File:      "Volunteer_Tracking.xlsm",
			Sheets:    []string{"Volunteers"},
			Table:     store.TableVolunteers,
			KeyColumn: "volunteer_id",
			Columns:   []string{"volunteer_id", "first_name", "last_name", "email", "phone", "team", "active", "training_date", "run_id"},
			Build:     buildVolunteer,
		},
		{
			Name:    "equipment_tracking",
			File:    "CAT Meter Tracking.xlsx",
			Table:   store.TableEquipmentTracking,
			Columns: []string{"equipment_id", "equipment_type", "make", "model", "serial_number", "calibration_date", "next_calibration", "status", "notes", "run_id"},
			Build:   buildEquipment,
		},
		{
			Name:    "sample_tracking",
			File:    "tblSampleDates.xlsx",
			Table:   store.TableSampleTracking,
			Columns: []string{"sample_id", "site_id", "collection_date", "sample_type", "processing_date", "status", "notes", "run_id"},
			Build:   buildSampleTracking,
		},
	}
}

// DatasetByName looks up a dataset descriptor by its name
func DatasetByName(name string) (Dataset, error) {
	for _, ds := range DefaultDatasets() {
		if ds.Name == name {
			return ds, nil
		}
	}
	return Dataset{}, fmt.Errorf("unknown dataset %q", name)
}

// DatasetNames returns the dataset names in import order
func DatasetNames() []string {
	datasets := DefaultDatasets()
	names := make([]string, len(datasets))
	for i, ds := range datasets {
		names[i] = ds.Name
	}
	return names
}

var measurementColumns = []string{"site_id", "measurement_date", "parameter", "value", "unit", "quality_flag", "notes", "run_id"}

// buildMeasurements unpivots a wide water-quality row: every numeric
// parameter column becomes its own long-format row sharing the site, date
// and flag.
func buildMeasurements(runID string, rec normalize.Record, flag model.QualityFlag) [][]interface{} {
	site := rec.Identifier()
	date := dateValue(rec)
	notes := toNull(fieldString(rec, "note", "comment", "remark"))

	var rows [][]interface{}
	for _, h := range rec.Order {
		if rec.Roles[h] != model.RoleParameter {
			continue
		}
		v, ok := rec.Float(h)
		if !ok {
			continue
		}
		rows = append(rows, []interface{}{
			site, date, strings.TrimSpace(h), v, unitFor(h), string(flag), notes, runID,
		})
	}
	return rows
}

func buildSite(runID string, rec normalize.Record, flag model.QualityFlag) [][]interface{} {
	site := rec.Identifier()
	name := fieldString(rec, "name")
	if name == "" {
		name = site
	}
	return [][]interface{}{{
		site,
		name,
		toNull(fieldString(rec, "waterbody", "stream", "river", "creek")),
		fieldFloat(rec, "latitude", "lat"),
		fieldFloat(rec, "longitude", "long"),
		toNull(fieldString(rec, "desc", "note", "comment")),
		runID,
	}}
}

func buildBiological(runID string, rec normalize.Record, flag model.QualityFlag) [][]interface{} {
	taxon := fieldString(rec, "taxon", "genus", "species", "bug")
	if taxon == "" {
		return nil
	}
	return [][]interface{}{{
		rec.Identifier(),
		dateValue(rec),
		taxon,
		intOrNil(fieldFloat(rec, "count")),
		fieldFloat(rec, "abundance"),
		fieldFloat(rec, "dominance"),
		string(flag),
		toNull(fieldString(rec, "note", "comment")),
		runID,
	}}
}

func buildBacterial(runID string, rec normalize.Record, flag model.QualityFlag) [][]interface{} {
	site := rec.Identifier()
	date := dateValue(rec)
	notes := toNull(fieldString(rec, "note", "comment"))

	var rows [][]interface{}
	for _, h := range rec.Order {
		if rec.Roles[h] != model.RoleParameter {
			continue
		}
		if !headerHas(h, "coli", "mpn", "bacteria", "result") {
			continue
		}
		v, ok := rec.Float(h)
		if !ok {
			continue
		}
		testType := "MPN"
		if headerHas(h, "coli") {
			testType = "E. coli"
		}
		rows = append(rows, []interface{}{
			site, date, testType, v, "CFU/100ml", string(flag), notes, runID,
		})
	}
	return rows
}

func buildAlgal(runID string, rec normalize.Record, flag model.QualityFlag) [][]interface{} {
	site := rec.Identifier()
	date := dateValue(rec)
	status := toNull(fieldString(rec, "status", "bloom", "category"))

	var rows [][]interface{}
	for _, h := range rec.Order {
		if rec.Roles[h] != model.RoleParameter {
			continue
		}
		v, ok := rec.Float(h)
		if !ok {
			continue
		}
		unit := unitFor(h)
		if headerHas(h, "phyco", "chlorophyll") {
			unit = "RFU"
		}
		rows = append(rows, []interface{}{
			site, date, strings.TrimSpace(h), v, unit, status, string(flag), runID,
		})
	}
	return rows
}

func buildVolunteer(runID string, rec normalize.Record, flag model.QualityFlag) [][]interface{} {
	active := 1
	switch strings.ToLower(fieldString(rec, "active", "status")) {
	case "inactive", "no", "false", "0":
		active = 0
	}
	return [][]interface{}{{
		rec.Identifier(),
		toNull(fieldString(rec, "first")),
		toNull(fieldString(rec, "last")),
		toNull(fieldString(rec, "email", "e-mail")),
		toNull(fieldString(rec, "phone")),
		toNull(fieldString(rec, "team", "group")),
		active,
		fieldDate(rec, "training", "trained"),
		runID,
	}}
}

func buildEquipment(runID string, rec normalize.Record, flag model.QualityFlag) [][]interface{} {
	return [][]interface{}{{
		rec.Identifier(),
		toNull(fieldString(rec, "type")),
		toNull(fieldString(rec, "make", "manufacturer")),
		toNull(fieldString(rec, "model")),
		toNull(fieldString(rec, "serial")),
		fieldDate(rec, "calibration", "calibrated"),
		fieldDate(rec, "next"),
		toNull(fieldString(rec, "status", "condition")),
		toNull(fieldString(rec, "note", "comment")),
		runID,
	}}
}

func buildSampleTracking(runID string, rec normalize.Record, flag model.QualityFlag) [][]interface{} {
	sample := fieldString(rec, "sample")
	if sample == "" {
		sample = rec.Identifier()
	}
	return [][]interface{}{{
		sample,
		toNull(fieldString(rec, "site")),
		dateValue(rec),
		toNull(fieldString(rec, "type")),
		fieldDate(rec, "process"),
		toNull(fieldString(rec, "status")),
		toNull(fieldString(rec, "note", "comment")),
		runID,
	}}
}

// unitFor guesses a display unit from the parameter header
func unitFor(header string) string {
	switch {
	case headerHas(header, "temp"):
		return "°C"
	case headerHas(header, "turbid"):
		return "NTU"
	case headerHas(header, "nitrate", "phosphate", "chloride", "oxygen", "tds"):
		return "mg/l"
	case headerHas(header, "conduct"):
		return "µS/cm"
	case headerHas(header, "coli", "mpn"):
		return "CFU/100ml"
	case headerHas(header, "phyco", "chlorophyll"):
		return "RFU"
	case headerHas(header, "ph"):
		return ""
	default:
		return "units"
	}
}

// headerHas reports whether the normalized header contains any substring
func headerHas(header string, substrs ...string) bool {
	norm := model.NormalizeHeader(header)
	for _, s := range substrs {
		if strings.Contains(norm, s) {
			return true
		}
	}
	return false
}

// fieldString returns the first non-empty string value whose header
// contains one of the substrings
func fieldString(rec normalize.Record, substrs ...string) string {
	for _, h := range rec.Order {
		if !headerHas(h, substrs...) {
			continue
		}
		if s, ok := rec.Values[h].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// fieldFloat returns the first numeric value whose header contains one of
// the substrings, nil when absent
func fieldFloat(rec normalize.Record, substrs ...string) interface{} {
	for _, h := range rec.Order {
		if !headerHas(h, substrs...) {
			continue
		}
		switch v := rec.Values[h].(type) {
		case float64:
			return v
		case string:
			if f, ok := normalize.CoerceNumber(v); ok {
				return f
			}
		}
	}
	return nil
}

// fieldDate returns the first date value whose header contains one of the
// substrings, nil when absent. String values from unclassified columns get
// a coercion attempt.
func fieldDate(rec normalize.Record, substrs ...string) interface{} {
	for _, h := range rec.Order {
		if !headerHas(h, substrs...) {
			continue
		}
		switch v := rec.Values[h].(type) {
		case time.Time:
			return v
		case string:
			if t, ok := normalize.CoerceDate(v); ok {
				return t
			}
		}
	}
	return nil
}

// dateValue returns the record's date column as a nullable insert value
func dateValue(rec normalize.Record) interface{} {
	if t, ok := rec.Date(); ok {
		return t
	}
	return nil
}

// toNull converts an empty string into a SQL null
func toNull(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// intOrNil narrows a whole-valued float to an integer insert value
func intOrNil(v interface{}) interface{} {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	return int64(f)
}
