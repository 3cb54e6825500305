// pkg/importer/result.go
package importer

import (
	"fmt"
	"time"

	"github.com/twi-data/streamwatch-ingress/pkg/model"
	"github.com/twi-data/streamwatch-ingress/pkg/store"
)

// ErrorCategory classifies where in the pipeline a failure happened.
type ErrorCategory int

const (
	CategoryNone ErrorCategory = iota
	CategoryFile
	CategorySheet
	CategoryRow
	CategoryInsert
)

// String returns a string representation of the error category
func (ec ErrorCategory) String() string {
	switch ec {
	case CategoryNone:
		return "None"
	case CategoryFile:
		return "File"
	case CategorySheet:
		return "Sheet"
	case CategoryRow:
		return "Row"
	case CategoryInsert:
		return "Insert"
	default:
		return fmt.Sprintf("Unknown(%d)", ec)
	}
}

// RowError records a single failure during a dataset import. Row is the
// 1-based source data row, 0 when the failure is not row-scoped.
type RowError struct {
	Category ErrorCategory
	Dataset  string
	Row      int
	Column   string
	Err      error
	Message  string
}

// NewRowError creates a row error for a dataset
func NewRowError(dataset string, category ErrorCategory, err error) RowError {
	re := RowError{
		Category: category,
		Dataset:  dataset,
		Err:      err,
	}
	if err != nil {
		re.Message = err.Error()
	}
	return re
}

// WithRow attaches the source row number
func (e RowError) WithRow(row int) RowError {
	e.Row = row
	return e
}

// String returns a formatted error message
func (e RowError) String() string {
	s := fmt.Sprintf("[%s] dataset=%s", e.Category, e.Dataset)
	if e.Row > 0 {
		s += fmt.Sprintf(" row=%d", e.Row)
	}
	if e.Column != "" {
		s += fmt.Sprintf(" column=%s", e.Column)
	}
	if e.Message != "" {
		s += " error=" + e.Message
	}
	return s
}

// ImportResult is the per-dataset accounting of one import: every source
// row ends up read+skipped, read+imported, or read+failed, and the split
// is surfaced to the caller instead of only printed.
type ImportResult struct {
	RunID   string
	Dataset string
	Table   string
	File    string
	Sheet   string

	Success      bool
	RowsRead     int64 // Data rows seen in the sheet
	RowsSkipped  int64 // Rows dropped by the empty-identifier rule
	RowsBuilt    int64 // Destination rows produced by the builder
	RowsImported int64 // Destination rows actually inserted
	Operations   int   // Normalization audit records

	FlagCounts map[model.QualityFlag]int
	Errors     []RowError

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// NewImportResult initializes a result for a dataset import
func NewImportResult(runID string, ds Dataset) *ImportResult {
	return &ImportResult{
		RunID:      runID,
		Dataset:    ds.Name,
		Table:      ds.Table,
		File:       ds.File,
		StartTime:  time.Now(),
		FlagCounts: make(map[model.QualityFlag]int),
		Errors:     make([]RowError, 0),
	}
}

// Complete marks the import as finished and calculates duration
func (r *ImportResult) Complete(success bool) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.Success = success
}

// AddError appends an error to the result
func (r *ImportResult) AddError(err RowError) {
	r.Errors = append(r.Errors, err)
}

// ErrorCount returns the number of errors
func (r *ImportResult) ErrorCount() int {
	return len(r.Errors)
}

// RunSummary aggregates the dataset results of one import run.
type RunSummary struct {
	RunID   string
	Results []*ImportResult

	TotalRowsRead     int64
	TotalRowsImported int64
	TotalRowsSkipped  int64
	TotalErrors       int64
	FailedDatasets    []string

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// NewRunSummary initializes a summary for a run
func NewRunSummary(runID string) *RunSummary {
	return &RunSummary{
		RunID:     runID,
		Results:   make([]*ImportResult, 0),
		StartTime: time.Now(),
	}
}

// AddResult incorporates a dataset result into the summary
func (s *RunSummary) AddResult(r *ImportResult) {
	s.Results = append(s.Results, r)
	s.TotalRowsRead += r.RowsRead
	s.TotalRowsImported += r.RowsImported
	s.TotalRowsSkipped += r.RowsSkipped
	s.TotalErrors += int64(r.ErrorCount())
	if !r.Success {
		s.FailedDatasets = append(s.FailedDatasets, r.Dataset)
	}
}

// Complete marks the run as finished and calculates duration
func (s *RunSummary) Complete() {
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
}

// Totals converts the summary into the import_runs ledger shape
func (s *RunSummary) Totals() store.RunTotals {
	status := "completed"
	if len(s.FailedDatasets) > 0 {
		status = "completed_with_errors"
	}
	return store.RunTotals{
		Datasets:     len(s.Results),
		RowsRead:     s.TotalRowsRead,
		RowsImported: s.TotalRowsImported,
		RowsSkipped:  s.TotalRowsSkipped,
		RowErrors:    s.TotalErrors,
		Status:       status,
	}
}
