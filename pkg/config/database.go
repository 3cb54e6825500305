// pkg/config/database.go
package config

import (
	"errors"
	"fmt"
	"time"
)

// Database drivers supported for the destination store.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DatabaseConfig holds destination database connection parameters.
// SQLite is the default; Postgres is selected with STREAMWATCH_DB_DRIVER.
type DatabaseConfig struct {
	Driver string

	// SQLite
	Path string

	// PostgreSQL
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Statement timeout
	StatementTimeout time.Duration
}

// LoadDatabaseConfig loads destination database configuration from
// environment variables
func LoadDatabaseConfig() (*DatabaseConfig, error) {
	driver := getEnv("STREAMWATCH_DB_DRIVER", DriverSQLite)

	cfg := &DatabaseConfig{
		Driver: driver,

		MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 5),
		MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime:  time.Duration(getEnvAsInt("DB_CONN_MAX_LIFETIME_SECONDS", 1800)) * time.Second,
		ConnMaxIdleTime:  time.Duration(getEnvAsInt("DB_CONN_MAX_IDLE_TIME_SECONDS", 600)) * time.Second,
		StatementTimeout: time.Duration(getEnvAsInt("DB_STATEMENT_TIMEOUT_SECONDS", 300)) * time.Second,
	}

	switch driver {
	case DriverSQLite:
		cfg.Path = getEnv("STREAMWATCH_DB_PATH", "streamwatch.db")

	case DriverPostgres:
		user := getEnv("POSTGRES_USER", "")
		if user == "" {
			return nil, errors.New("POSTGRES_USER environment variable is required")
		}
		password := getEnv("POSTGRES_PASSWORD", "")
		if password == "" {
			return nil, errors.New("POSTGRES_PASSWORD environment variable is required")
		}
		database := getEnv("POSTGRES_DB", "")
		if database == "" {
			return nil, errors.New("POSTGRES_DB environment variable is required")
		}

		cfg.User = user
		cfg.Password = password
		cfg.Database = database
		cfg.Host = getEnv("POSTGRES_HOST", "localhost")
		cfg.Port = getEnvAsInt("POSTGRES_PORT", 5432)
		cfg.SSLMode = getEnv("POSTGRES_SSLMODE", "disable")

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	return cfg, nil
}

// Validate ensures the database configuration is usable
func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case DriverSQLite:
		if c.Path == "" {
			return errors.New("sqlite database path is required")
		}
	case DriverPostgres:
		if c.Host == "" || c.Database == "" {
			return errors.New("postgres host and database are required")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Driver)
	}
	return nil
}

// ConnectionString returns the DSN for the configured driver
func (c *DatabaseConfig) ConnectionString() string {
	switch c.Driver {
	case DriverPostgres:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host,
			c.Port,
			c.User,
			c.Password,
			c.Database,
			c.SSLMode,
		)
	default:
		return c.Path
	}
}
