package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port    int
	DevMode bool

	// Data directory holding the sqlite databases (cache.db, history.db)
	DataDir string

	// Upstream credentials
	NearblocksAPIKey string
	PikespeakAPIKey  string
	FastnearAPIKey   string

	// Optional S3-compatible backup target. Backups are disabled unless all
	// four values are set.
	BackupEndpoint  string
	BackupBucket    string
	BackupAccessKey string
	BackupSecretKey string

	LogLevel string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnvAsInt("PORT", 3000),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		DataDir:          getEnv("DATA_DIR", "./data"),
		NearblocksAPIKey: getEnv("NEARBLOCKS_API_KEY", ""),
		PikespeakAPIKey:  getEnv("PIKESPEAK_API_KEY", ""),
		FastnearAPIKey:   getEnv("FASTNEAR_API_KEY", ""),
		BackupEndpoint:   getEnv("BACKUP_S3_ENDPOINT", ""),
		BackupBucket:     getEnv("BACKUP_S3_BUCKET", ""),
		BackupAccessKey:  getEnv("BACKUP_S3_ACCESS_KEY", ""),
		BackupSecretKey:  getEnv("BACKUP_S3_SECRET_KEY", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}

	// Indexer keys are optional at startup: endpoints that need them fail
	// loudly at call time instead of silently degrading.
	return nil
}

// BackupConfigured reports whether all S3 backup settings are present.
func (c *Config) BackupConfigured() bool {
	return c.BackupEndpoint != "" && c.BackupBucket != "" &&
		c.BackupAccessKey != "" && c.BackupSecretKey != ""
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
