// pkg/store/open.go
package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/twi-data/streamwatch-ingress/pkg/config"
)

// Open creates the store for the configured driver and verifies the
// connection.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (Store, error) {
	logger := zap.L().Named("store")

	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case config.DriverSQLite:
		s, err = NewSQLiteStore(ctx, cfg)
	case config.DriverPostgres:
		s, err = NewPostgresStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s store: %w", cfg.Driver, err)
	}

	if err := s.Validate(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("store validation failed: %w", err)
	}

	logger.Info("Destination store ready", zap.String("driver", cfg.Driver))
	return s, nil
}
