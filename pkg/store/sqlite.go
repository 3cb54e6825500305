// pkg/store/sqlite.go
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/twi-data/streamwatch-ingress/pkg/config"
)

// SQLiteStore implements Store against a SQLite database file. This is
// the default destination; the monitoring database is a single file the
// visualization dashboard reads directly.
type SQLiteStore struct {
	sqlStore
	cfg *config.DatabaseConfig
}

// NewSQLiteStore creates and initializes a SQLite store
func NewSQLiteStore(ctx context.Context, cfg *config.DatabaseConfig) (*SQLiteStore, error) {
	logger := zap.L().Named("sqlite-store")

	logger.Info("Opening SQLite database", zap.String("path", cfg.Path))

	db, err := sqlx.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// SQLite serializes writers; a single connection avoids lock
	// contention errors from the driver
	ApplyConnectionSettings(db, 1, 1, cfg.ConnMaxLifetime, cfg.ConnMaxIdleTime)

	if err := PingWithTimeout(ctx, db, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}

	return &SQLiteStore{
		sqlStore: sqlStore{
			db:      db,
			driver:  config.DriverSQLite,
			logger:  logger,
			timeout: cfg.StatementTimeout,
		},
		cfg: cfg,
	}, nil
}

// Validate verifies the SQLite connection is writable
func (s *SQLiteStore) Validate(ctx context.Context) error {
	var version string
	if err := s.db.GetContext(ctx, &version, "SELECT sqlite_version()"); err != nil {
		return fmt.Errorf("failed to query SQLite version: %w", err)
	}
	s.logger.Info("Connected to SQLite", zap.String("version", version))

	_, err := s.ExecWithTimeout(ctx, `
		CREATE TABLE IF NOT EXISTS _permission_check (id INTEGER);
	`)
	if err != nil {
		return fmt.Errorf("permission validation failed: %w", err)
	}
	if _, err := s.ExecWithTimeout(ctx, `DROP TABLE _permission_check`); err != nil {
		return fmt.Errorf("permission validation failed: %w", err)
	}

	return nil
}
