// pkg/store/postgres.go
package store

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/twi-data/streamwatch-ingress/pkg/config"
)

// PostgresStore implements Store against a PostgreSQL database, for
// deployments where the monitoring database is shared rather than a
// local file.
type PostgresStore struct {
	sqlStore
	cfg *config.DatabaseConfig
}

// NewPostgresStore creates and initializes a PostgreSQL store
func NewPostgresStore(ctx context.Context, cfg *config.DatabaseConfig) (*PostgresStore, error) {
	logger := zap.L().Named("postgres-store")

	logger.Info("Connecting to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("user", cfg.User))

	db, err := sqlx.Open("pgx", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL connection: %w", err)
	}

	ApplyConnectionSettings(
		db,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
		cfg.ConnMaxLifetime,
		cfg.ConnMaxIdleTime,
	)

	if cfg.StatementTimeout > 0 {
		_, err = db.ExecContext(
			ctx,
			fmt.Sprintf("SET statement_timeout = %d", cfg.StatementTimeout.Milliseconds()),
		)
		if err != nil {
			logger.Warn("Failed to set statement timeout", zap.Error(err))
		}
	}

	if err := PingWithTimeout(ctx, db, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	return &PostgresStore{
		sqlStore: sqlStore{
			db:      db,
			driver:  config.DriverPostgres,
			logger:  logger,
			timeout: cfg.StatementTimeout,
		},
		cfg: cfg,
	}, nil
}

// Validate verifies the PostgreSQL connection and required permissions
func (s *PostgresStore) Validate(ctx context.Context) error {
	var version string
	if err := s.db.GetContext(ctx, &version, "SELECT version()"); err != nil {
		return fmt.Errorf("failed to query PostgreSQL version: %w", err)
	}
	s.logger.Info("Connected to PostgreSQL", zap.String("version", version))

	_, err := s.db.ExecContext(ctx, `
		DO $$
		BEGIN
			CREATE TEMP TABLE _permission_check (id serial, test text);
			INSERT INTO _permission_check (test) VALUES ('test');
			DROP TABLE _permission_check;
		EXCEPTION WHEN OTHERS THEN
			RAISE EXCEPTION 'Permission check failed: %', SQLERRM;
		END $$;
	`)
	if err != nil {
		return fmt.Errorf("permission validation failed: %w", err)
	}

	s.logger.Info("PostgreSQL connection validated",
		zap.String("database", s.cfg.Database),
		zap.String("host", s.cfg.Host),
		zap.Int("port", s.cfg.Port))

	return nil
}
