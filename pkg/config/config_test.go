// pkg/config/config_test.go
package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvVars = []string{
	"STREAMWATCH_DATA_DIR", "CHUNK_SIZE", "ROW_LIMIT",
	"LOG_LEVEL", "LOG_FORMAT",
	"STREAMWATCH_DB_DRIVER", "STREAMWATCH_DB_PATH",
	"POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_USER",
	"POSTGRES_PASSWORD", "POSTGRES_DB", "POSTGRES_SSLMODE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvVars {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "data/raw", cfg.DataDir)
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 2000, cfg.RowLimit)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)

	require.NotNil(t, cfg.Database)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "streamwatch.db", cfg.Database.Path)
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("STREAMWATCH_DATA_DIR", "/srv/streamwatch")
	t.Setenv("CHUNK_SIZE", "250")
	t.Setenv("ROW_LIMIT", "0")
	t.Setenv("STREAMWATCH_DB_PATH", "/srv/streamwatch.db")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "/srv/streamwatch", cfg.DataDir)
	assert.Equal(t, 250, cfg.ChunkSize)
	assert.Equal(t, 0, cfg.RowLimit, "0 disables the row limit")
	assert.Equal(t, "/srv/streamwatch.db", cfg.Database.Path)
}

func TestLoadConfigBadIntFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHUNK_SIZE", "lots")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.ChunkSize)
}

func TestLoadConfigPostgresRequiresCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("STREAMWATCH_DB_DRIVER", DriverPostgres)

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_USER")
}

func TestLoadConfigPostgres(t *testing.T) {
	clearEnv(t)
	t.Setenv("STREAMWATCH_DB_DRIVER", DriverPostgres)
	t.Setenv("POSTGRES_USER", "streamwatch")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "monitoring")
	t.Setenv("POSTGRES_HOST", "db.internal")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	db := cfg.Database
	assert.Equal(t, DriverPostgres, db.Driver)
	assert.Equal(t, "db.internal", db.Host)
	assert.Equal(t, 5432, db.Port)
	assert.Equal(t, "disable", db.SSLMode)
	assert.Contains(t, db.ConnectionString(), "dbname=monitoring")
}

func TestLoadConfigUnsupportedDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("STREAMWATCH_DB_DRIVER", "oracle")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := &Config{
		Database:  &DatabaseConfig{Driver: DriverSQLite, Path: "test.db"},
		ChunkSize: 100,
	}
	assert.NoError(t, valid.Validate())

	noDB := &Config{ChunkSize: 100}
	assert.Error(t, noDB.Validate())

	badChunk := &Config{
		Database:  valid.Database,
		ChunkSize: 0,
	}
	assert.Error(t, badChunk.Validate())

	negativeLimit := &Config{
		Database:  valid.Database,
		ChunkSize: 100,
		RowLimit:  -1,
	}
	assert.Error(t, negativeLimit.Validate())
}
