// pkg/store/schema.go
package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/twi-data/streamwatch-ingress/pkg/model"
)

// Destination table names.
const (
	TableSites                  = "sites"
	TableWaterQuality           = "water_quality"
	TableHistoricalWaterQuality = "historical_water_quality"
	TableBiologicalData         = "biological_data"
	TableBacterialData          = "bacterial_data"
	TableAlgalBloomData         = "algal_bloom_data"
	TableVolunteers             = "volunteers"
	TableEquipmentTracking      = "equipment_tracking"
	TableSampleTracking         = "sample_tracking"
	TableImportRuns             = "import_runs"
	TableDataQualityFlags       = "data_quality_flags"
)

// DataTables lists the tables that hold imported monitoring data, in the
// order the status report prints them.
var DataTables = []string{
	TableSites,
	TableWaterQuality,
	TableHistoricalWaterQuality,
	TableBiologicalData,
	TableBacterialData,
	TableAlgalBloomData,
	TableVolunteers,
	TableEquipmentTracking,
	TableSampleTracking,
}

// schemaDDL holds portable CREATE TABLE statements. Measurement tables are
// append-only with a run_id column; entity tables carry a natural primary
// key. site_id values are free text, not enforced against sites.
var schemaDDL = []struct {
	table string
	ddl   string
}{
	{TableSites, `
		CREATE TABLE IF NOT EXISTS sites (
			site_id TEXT PRIMARY KEY,
			site_name TEXT,
			waterbody TEXT,
			latitude REAL,
			longitude REAL,
			description TEXT,
			run_id TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`},
	{TableWaterQuality, `
		CREATE TABLE IF NOT EXISTS water_quality (
			site_id TEXT,
			measurement_date DATE,
			parameter TEXT,
			value REAL,
			unit TEXT,
			quality_flag TEXT,
			notes TEXT,
			run_id TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`},
	{TableHistoricalWaterQuality, `
		CREATE TABLE IF NOT EXISTS historical_water_quality (
			site_id TEXT,
			measurement_date DATE,
			parameter TEXT,
			value REAL,
			unit TEXT,
			quality_flag TEXT,
			notes TEXT,
			run_id TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`},
	{TableBiologicalData, `
		CREATE TABLE IF NOT EXISTS biological_data (
			site_id TEXT,
			sample_date DATE,
			taxon TEXT,
			count INTEGER,
			abundance REAL,
			dominance REAL,
			quality_flag TEXT,
			notes TEXT,
			run_id TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`},
	{TableBacterialData, `
		CREATE TABLE IF NOT EXISTS bacterial_data (
			site_id TEXT,
			sample_date DATE,
			test_type TEXT,
			result REAL,
			unit TEXT,
			quality_flag TEXT,
			notes TEXT,
			run_id TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`},
	{TableAlgalBloomData, `
		CREATE TABLE IF NOT EXISTS algal_bloom_data (
			site_id TEXT,
			sample_date DATE,
			parameter TEXT,
			value REAL,
			unit TEXT,
			bloom_status TEXT,
			quality_flag TEXT,
			run_id TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`},
	{TableVolunteers, `
		CREATE TABLE IF NOT EXISTS volunteers (
			volunteer_id TEXT PRIMARY KEY,
			first_name TEXT,
			last_name TEXT,
			email TEXT,
			phone TEXT,
			team TEXT,
			active INTEGER DEFAULT 1,
			training_date DATE,
			run_id TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`},
	{TableEquipmentTracking, `
		CREATE TABLE IF NOT EXISTS equipment_tracking (
			equipment_id TEXT,
			equipment_type TEXT,
			make TEXT,
			model TEXT,
			serial_number TEXT,
			calibration_date DATE,
			next_calibration DATE,
			status TEXT,
			notes TEXT,
			run_id TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`},
	{TableSampleTracking, `
		CREATE TABLE IF NOT EXISTS sample_tracking (
			sample_id TEXT,
			site_id TEXT,
			collection_date DATE,
			sample_type TEXT,
			processing_date DATE,
			status TEXT,
			notes TEXT,
			run_id TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`},
	{TableImportRuns, `
		CREATE TABLE IF NOT EXISTS import_runs (
			run_id TEXT PRIMARY KEY,
			started_at TIMESTAMP,
			finished_at TIMESTAMP,
			datasets INTEGER,
			rows_read INTEGER,
			rows_imported INTEGER,
			rows_skipped INTEGER,
			row_errors INTEGER,
			status TEXT
		)`},
	{TableDataQualityFlags, `
		CREATE TABLE IF NOT EXISTS data_quality_flags (
			run_id TEXT,
			table_name TEXT,
			row_identifier TEXT,
			column_name TEXT,
			original_value TEXT,
			new_value TEXT,
			operation TEXT,
			reason TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`},
}

// indexDDL creates the lookup indexes the reporting queries rely on.
var indexDDL = []string{
	`CREATE INDEX IF NOT EXISTS idx_water_quality_site_date ON water_quality (site_id, measurement_date)`,
	`CREATE INDEX IF NOT EXISTS idx_water_quality_parameter ON water_quality (parameter)`,
	`CREATE INDEX IF NOT EXISTS idx_historical_site_date ON historical_water_quality (site_id, measurement_date)`,
	`CREATE INDEX IF NOT EXISTS idx_biological_site_date ON biological_data (site_id, sample_date)`,
	`CREATE INDEX IF NOT EXISTS idx_biological_taxon ON biological_data (taxon)`,
	`CREATE INDEX IF NOT EXISTS idx_quality_flags_run ON data_quality_flags (run_id)`,
}

// Migrate creates the destination schema if it does not exist
func (s *sqlStore) Migrate(ctx context.Context) error {
	for _, entry := range schemaDDL {
		if _, err := s.ExecWithTimeout(ctx, entry.ddl); err != nil {
			return fmt.Errorf("failed to create table %s: %w", entry.table, err)
		}
	}
	for _, ddl := range indexDDL {
		if _, err := s.ExecWithTimeout(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	s.logger.Info("Ensured destination schema",
		zap.Int("tables", len(schemaDDL)),
		zap.Int("indexes", len(indexDDL)))
	return nil
}

// RecordOperations batch inserts normalization audit records into the
// data_quality_flags tracking table inside one transaction
func (s *sqlStore) RecordOperations(ctx context.Context, runID string, ops []model.ImportOperation) error {
	if len(ops) == 0 {
		return nil
	}

	txCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTxx(txCtx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("Failed to rollback transaction",
					zap.Error(rbErr),
					zap.Error(err))
			}
		}
	}()

	query := s.db.Rebind(`
		INSERT INTO data_quality_flags
		(run_id, table_name, row_identifier, column_name, original_value,
		 new_value, operation, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	stmt, err := tx.PrepareContext(txCtx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, op := range ops {
		_, err = stmt.ExecContext(txCtx,
			runID,
			op.TableName,
			op.RowIdentifier,
			op.ColumnName,
			toNullableString(op.OriginalValue),
			op.NewValue,
			op.Operation,
			op.Reason,
			op.RecordedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert quality flag record: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Recorded normalization operations",
		zap.String("runID", runID),
		zap.Int("count", len(ops)))
	return nil
}

// StartRun opens an entry in the import_runs ledger
func (s *sqlStore) StartRun(ctx context.Context, runID string) error {
	query := s.db.Rebind(`
		INSERT INTO import_runs (run_id, started_at, status)
		VALUES (?, ?, ?)
	`)
	_, err := s.ExecWithTimeout(ctx, query, runID, time.Now().UTC(), "running")
	if err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// FinishRun completes the ledger entry for a run
func (s *sqlStore) FinishRun(ctx context.Context, runID string, totals RunTotals) error {
	query := s.db.Rebind(`
		UPDATE import_runs
		SET finished_at = ?, datasets = ?, rows_read = ?, rows_imported = ?,
		    rows_skipped = ?, row_errors = ?, status = ?
		WHERE run_id = ?
	`)
	_, err := s.ExecWithTimeout(ctx, query,
		time.Now().UTC(),
		totals.Datasets,
		totals.RowsRead,
		totals.RowsImported,
		totals.RowsSkipped,
		totals.RowErrors,
		totals.Status,
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to record run completion: %w", err)
	}
	return nil
}

// toNullableString converts an audit value to a nullable column value
func toNullableString(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	return fmt.Sprintf("%v", v)
}
