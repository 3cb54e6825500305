// pkg/importer/importer.go
package importer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/twi-data/streamwatch-ingress/pkg/classify"
	"github.com/twi-data/streamwatch-ingress/pkg/config"
	"github.com/twi-data/streamwatch-ingress/pkg/model"
	"github.com/twi-data/streamwatch-ingress/pkg/normalize"
	"github.com/twi-data/streamwatch-ingress/pkg/quality"
	"github.com/twi-data/streamwatch-ingress/pkg/store"
	"github.com/twi-data/streamwatch-ingress/pkg/workbook"
)

// Importer runs spreadsheet datasets through the classify, normalize,
// annotate and write stages into a store.
type Importer struct {
	store      store.Store
	classifier *classify.Classifier
	normalizer *normalize.Normalizer
	annotator  *quality.Annotator
	logger     *zap.Logger

	dataDir   string
	chunkSize int
	rowLimit  int
	replace   bool
}

// Option configures an Importer
type Option func(*Importer)

// WithReplace clears each destination table before importing into it
func WithReplace(replace bool) Option {
	return func(imp *Importer) {
		imp.replace = replace
	}
}

// WithDataDir overrides the configured source directory
func WithDataDir(dir string) Option {
	return func(imp *Importer) {
		if dir != "" {
			imp.dataDir = dir
		}
	}
}

// WithRowLimit overrides the configured per-sheet row cap
func WithRowLimit(limit int) Option {
	return func(imp *Importer) {
		if limit > 0 {
			imp.rowLimit = limit
		}
	}
}

// New creates an Importer on top of an open store
func New(s store.Store, cfg *config.Config, opts ...Option) *Importer {
	imp := &Importer{
		store:      s,
		classifier: classify.Default(),
		normalizer: normalize.New(),
		annotator:  quality.New(),
		logger:     zap.L().Named("importer"),
		dataDir:    cfg.DataDir,
		chunkSize:  cfg.ChunkSize,
		rowLimit:   cfg.RowLimit,
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// ImportDataset runs a single dataset end to end. The returned result is
// never nil; pipeline failures are recorded on it rather than returned.
func (imp *Importer) ImportDataset(ctx context.Context, runID string, ds Dataset) *ImportResult {
	result := NewImportResult(runID, ds)
	logger := imp.logger.With(
		zap.String("dataset", ds.Name),
		zap.String("runId", runID))

	path := filepath.Join(imp.dataDir, ds.File)
	wb, err := workbook.Open(path)
	if err != nil {
		logger.Error("Failed to open workbook", zap.String("path", path), zap.Error(err))
		result.AddError(NewRowError(ds.Name, CategoryFile, err))
		result.Complete(false)
		return result
	}
	defer wb.Close()

	sheetName, err := wb.FindSheet(ds.Sheets)
	if err != nil {
		result.AddError(NewRowError(ds.Name, CategorySheet, err))
		result.Complete(false)
		return result
	}
	result.Sheet = sheetName

	sheet, err := wb.ReadSheet(sheetName, imp.rowLimit)
	if err != nil {
		logger.Error("Failed to read sheet", zap.String("sheet", sheetName), zap.Error(err))
		result.AddError(NewRowError(ds.Name, CategorySheet, err))
		result.Complete(false)
		return result
	}
	result.RowsRead = int64(len(sheet.Rows))

	assignments := imp.classifier.ClassifySheet(sheet)

	// Normalize every row before annotating: the outlier fences need the
	// whole column
	records := make([]normalize.Record, 0, len(sheet.Rows))
	var ops []model.ImportOperation
	for i := range sheet.Rows {
		rec, skip, rowOps := imp.normalizer.NormalizeRow(sheet, i, assignments)
		if skip {
			result.RowsSkipped++
			continue
		}
		for j := range rowOps {
			rowOps[j].TableName = ds.Table
		}
		ops = append(ops, rowOps...)
		records = append(records, rec)
	}

	flags := imp.annotator.Annotate(records)
	for h, s := range imp.annotator.Summarize(records) {
		logger.Debug("Column statistics",
			zap.String("column", h),
			zap.Int("samples", s.Samples),
			zap.Float64("mean", s.Mean),
			zap.Float64("stddev", s.StdDev),
			zap.Float64("q1", s.Q1),
			zap.Float64("q3", s.Q3))
	}

	var rows [][]interface{}
	var sourceRows []int
	for i, rec := range records {
		result.FlagCounts[flags[i]]++
		for _, row := range ds.Build(runID, rec, flags[i]) {
			rows = append(rows, row)
			sourceRows = append(sourceRows, rec.Row)
		}
	}
	result.RowsBuilt = int64(len(rows))

	if imp.replace {
		if _, err := imp.store.ClearTable(ctx, ds.Table); err != nil {
			result.AddError(NewRowError(ds.Name, CategoryInsert, err))
			result.Complete(false)
			return result
		}
	}

	imported, insertErrs := imp.write(ctx, ds, rows, sourceRows)
	result.RowsImported = imported
	for _, e := range insertErrs {
		result.AddError(e)
	}

	if len(ops) > 0 {
		if err := imp.store.RecordOperations(ctx, runID, ops); err != nil {
			logger.Warn("Failed to record normalization operations", zap.Error(err))
		}
	}
	result.Operations = len(ops)

	result.Complete(result.ErrorCount() == 0)
	logger.Info("Dataset import finished",
		zap.String("table", ds.Table),
		zap.Int64("rowsRead", result.RowsRead),
		zap.Int64("rowsSkipped", result.RowsSkipped),
		zap.Int64("rowsImported", result.RowsImported),
		zap.Int("errors", result.ErrorCount()),
		zap.Duration("duration", result.Duration))
	return result
}

// write bulk-inserts the built rows. When a chunked insert fails, the rows
// not yet committed are retried one at a time so one bad row doesn't take
// down its neighbors; rows from chunks that already committed are never
// replayed.
func (imp *Importer) write(
	ctx context.Context,
	ds Dataset,
	rows [][]interface{},
	sourceRows []int,
) (int64, []RowError) {
	if len(rows) == 0 {
		return 0, nil
	}

	insert := func(batch [][]interface{}) (int64, error) {
		if ds.KeyColumn != "" {
			return imp.store.BatchUpsert(ctx, ds.Table, ds.KeyColumn, ds.Columns, batch, imp.chunkSize)
		}
		return imp.store.BatchInsert(ctx, ds.Table, ds.Columns, batch, imp.chunkSize)
	}

	total, err := insert(rows)
	if err == nil {
		return total, nil
	}

	resume := 0
	var batchErr *store.BatchError
	if errors.As(err, &batchErr) {
		resume = batchErr.Committed
	}

	imp.logger.Warn("Bulk insert failed, retrying remaining rows individually",
		zap.String("table", ds.Table),
		zap.Int("committed", resume),
		zap.Error(err))

	var errs []RowError
	for i := resume; i < len(rows); i++ {
		n, rowErr := insert([][]interface{}{rows[i]})
		if rowErr != nil {
			errs = append(errs, NewRowError(ds.Name, CategoryInsert, rowErr).WithRow(sourceRows[i]))
			continue
		}
		total += n
	}
	return total, errs
}

// Run imports the given datasets sequentially under one run id and records
// the run in the import_runs ledger.
func (imp *Importer) Run(ctx context.Context, datasets []Dataset) (*RunSummary, error) {
	runID := uuid.New().String()
	summary := NewRunSummary(runID)

	if err := imp.store.StartRun(ctx, runID); err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}
	imp.logger.Info("Import run started",
		zap.String("runId", runID),
		zap.Int("datasets", len(datasets)))

	for _, ds := range datasets {
		if ctxErr := ctx.Err(); ctxErr != nil {
			summary.Complete()
			totals := summary.Totals()
			totals.Status = "cancelled"
			// The run context is dead; the ledger write gets its own
			if err := imp.store.FinishRun(context.WithoutCancel(ctx), runID, totals); err != nil {
				imp.logger.Warn("Failed to finalize run ledger", zap.Error(err))
			}
			imp.logger.Warn("Import run cancelled",
				zap.String("runId", runID),
				zap.Int("datasetsCompleted", len(summary.Results)))
			return summary, ctxErr
		}
		summary.AddResult(imp.ImportDataset(ctx, runID, ds))
	}
	summary.Complete()

	if err := imp.store.FinishRun(ctx, runID, summary.Totals()); err != nil {
		imp.logger.Warn("Failed to finalize run ledger", zap.Error(err))
	}

	imp.logger.Info("Import run finished",
		zap.String("runId", runID),
		zap.Int64("rowsRead", summary.TotalRowsRead),
		zap.Int64("rowsImported", summary.TotalRowsImported),
		zap.Int64("rowsSkipped", summary.TotalRowsSkipped),
		zap.Int64("errors", summary.TotalErrors),
		zap.Strings("failedDatasets", summary.FailedDatasets),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}
