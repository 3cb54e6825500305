// pkg/store/store.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/twi-data/streamwatch-ingress/pkg/model"
)

// Store is the destination side of an import: a relational database
// holding the fixed StreamWatch schema.
type Store interface {
	// DB returns the underlying database handle
	DB() *sqlx.DB

	// Driver returns the driver name ("sqlite" or "postgres")
	Driver() string

	// Validate verifies the connection and permissions
	Validate(ctx context.Context) error

	// Close closes the connection and releases resources
	Close() error

	// Migrate creates the destination schema if it does not exist
	Migrate(ctx context.Context) error

	// BatchInsert appends rows to a table in chunks. A mid-batch failure
	// is reported as a *BatchError naming the rows already committed
	BatchInsert(ctx context.Context, table string, columns []string, rows [][]interface{}, chunk int) (int64, error)

	// BatchUpsert inserts rows keyed by a natural key column; existing
	// keys are replaced (sqlite) or left untouched (postgres)
	BatchUpsert(ctx context.Context, table, keyColumn string, columns []string, rows [][]interface{}, chunk int) (int64, error)

	// ClearTable deletes all rows from a table
	ClearTable(ctx context.Context, table string) (int64, error)

	// CountRows returns the row count of a table
	CountRows(ctx context.Context, table string) (int64, error)

	// RecordOperations appends normalization audit records to the
	// data_quality_flags table
	RecordOperations(ctx context.Context, runID string, ops []model.ImportOperation) error

	// StartRun and FinishRun maintain the import_runs ledger
	StartRun(ctx context.Context, runID string) error
	FinishRun(ctx context.Context, runID string, totals RunTotals) error
}

// RunTotals summarizes one import run for the import_runs ledger.
type RunTotals struct {
	Datasets     int
	RowsRead     int64
	RowsImported int64
	RowsSkipped  int64
	RowErrors    int64
	Status       string
}

// BatchError reports a bulk write that failed partway through: chunks
// before the failing one are already committed. Committed counts the
// input rows durably written, so a caller retrying row by row can resume
// from the first unwritten row instead of replaying the whole batch.
type BatchError struct {
	Table     string
	Committed int
	Err       error
}

// Error returns a formatted error message
func (e *BatchError) Error() string {
	return fmt.Sprintf("batch insert into %s failed after %d rows: %v", e.Table, e.Committed, e.Err)
}

// Unwrap returns the underlying driver error
func (e *BatchError) Unwrap() error { return e.Err }

// sqlStore carries the shared implementation for both drivers.
type sqlStore struct {
	db      *sqlx.DB
	driver  string
	logger  *zap.Logger
	timeout time.Duration
}

// DB returns the underlying database handle
func (s *sqlStore) DB() *sqlx.DB {
	return s.db
}

// Driver returns the driver name
func (s *sqlStore) Driver() string {
	return s.driver
}

// Close closes the database connection
func (s *sqlStore) Close() error {
	s.logger.Info("Closing database connection")
	return s.db.Close()
}

// ExecWithTimeout executes a statement with a timeout
func (s *sqlStore) ExecWithTimeout(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	execCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.db.ExecContext(execCtx, query, args...)
}

// BatchInsert performs a bulk append into a table, chunked to keep
// statements bounded
func (s *sqlStore) BatchInsert(
	ctx context.Context,
	table string,
	columns []string,
	rows [][]interface{},
	chunk int,
) (int64, error) {
	return s.bulkWrite(ctx, table, "", columns, rows, chunk)
}

// BatchUpsert performs a bulk insert keyed on keyColumn. Reruns against
// entity tables replace or skip existing keys instead of duplicating them.
func (s *sqlStore) BatchUpsert(
	ctx context.Context,
	table, keyColumn string,
	columns []string,
	rows [][]interface{},
	chunk int,
) (int64, error) {
	return s.bulkWrite(ctx, table, keyColumn, columns, rows, chunk)
}

func (s *sqlStore) bulkWrite(
	ctx context.Context,
	table, keyColumn string,
	columns []string,
	rows [][]interface{},
	chunk int,
) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if chunk <= 0 {
		chunk = 1000
	}

	verb := "INSERT INTO"
	suffix := ""
	if keyColumn != "" {
		switch s.driver {
		case "sqlite":
			verb = "INSERT OR REPLACE INTO"
		default:
			suffix = fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", keyColumn)
		}
	}

	columnStr := strings.Join(columns, ", ")
	rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"

	var total int64
	for i := 0; i < len(rows); i += chunk {
		end := i + chunk
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[i:end]

		placeholders := make([]string, len(batch))
		args := make([]interface{}, 0, len(batch)*len(columns))
		for j, row := range batch {
			placeholders[j] = rowPlaceholder
			args = append(args, row...)
		}

		query := fmt.Sprintf("%s %s (%s) VALUES %s%s",
			verb, table, columnStr, strings.Join(placeholders, ", "), suffix)
		query = s.db.Rebind(query)

		result, err := s.ExecWithTimeout(ctx, query, args...)
		if err != nil {
			return total, &BatchError{Table: table, Committed: i, Err: err}
		}

		affected, err := result.RowsAffected()
		if err != nil {
			s.logger.Warn("Couldn't get rows affected", zap.Error(err))
		} else {
			total += affected
		}
	}

	return total, nil
}

// ClearTable deletes all rows from a table
func (s *sqlStore) ClearTable(ctx context.Context, table string) (int64, error) {
	result, err := s.ExecWithTimeout(ctx, fmt.Sprintf("DELETE FROM %s", table))
	if err != nil {
		return 0, fmt.Errorf("failed to clear table %s: %w", table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	s.logger.Info("Cleared table",
		zap.String("table", table),
		zap.Int64("rowsDeleted", affected))
	return affected, nil
}

// CountRows returns the row count of a table
func (s *sqlStore) CountRows(ctx context.Context, table string) (int64, error) {
	queryCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var count int64
	err := s.db.GetContext(queryCtx, &count, fmt.Sprintf("SELECT COUNT(*) FROM %s", table))
	if err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return count, nil
}

// ApplyConnectionSettings configures database connection pool settings
func ApplyConnectionSettings(db *sqlx.DB, maxOpen, maxIdle int, maxLifetime, maxIdleTime time.Duration) {
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	if maxLifetime > 0 {
		db.SetConnMaxLifetime(maxLifetime)
	}
	if maxIdleTime > 0 {
		db.SetConnMaxIdleTime(maxIdleTime)
	}
}

// PingWithTimeout attempts to ping a database with a timeout
func PingWithTimeout(ctx context.Context, db *sqlx.DB, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}
