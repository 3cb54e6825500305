// pkg/config/config.go
package config

import (
	"errors"
	"os"
	"strconv"
)

// Config represents the application configuration
type Config struct {
	// Destination database
	Database *DatabaseConfig

	// Source spreadsheets
	DataDir string

	// Import settings
	ChunkSize int // Rows per bulk insert
	RowLimit  int // Max data rows read per sheet, 0 = unlimited

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		DataDir:   getEnv("STREAMWATCH_DATA_DIR", "data/raw"),
		ChunkSize: getEnvAsInt("CHUNK_SIZE", 1000),
		RowLimit:  getEnvAsInt("ROW_LIMIT", 2000),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	dbConfig, err := LoadDatabaseConfig()
	if err != nil {
		return nil, errors.New("failed to load database configuration: " + err.Error())
	}
	cfg.Database = dbConfig

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.Database == nil {
		return errors.New("database configuration is required")
	}

	if c.ChunkSize <= 0 {
		return errors.New("chunk size must be positive")
	}

	if c.RowLimit < 0 {
		return errors.New("row limit cannot be negative")
	}

	return c.Database.Validate()
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
