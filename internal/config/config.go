// Package config provides configuration loading and validation from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"
)

// Config holds all application configuration for the connector service.
type Config struct {
	LogLevel           string        // debug, info, warn, error
	ListenAddr         string        // API listen address (e.g., ":8080")
	MetricsListenAddr  string        // Metrics listener address (e.g., "localhost:9090")
	DatabasePath       string        // SQLite database path
	EdflexBaseURL      string        // Base URL for the Edflex catalog API
	EdflexClientID     string        // OAuth client id (may also come from saved settings)
	EdflexClientSecret string        // OAuth client secret (may also come from saved settings)
	EdflexCatalogID    string        // Default catalog to browse
	SyncInterval       time.Duration // Interval between scheduled sync runs
	SyncMaxAge         time.Duration // Records older than this are considered stale
	EncryptionKey      []byte        // 32-byte key for encrypting the stored client secret
	AdminTokenHash     string        // bcrypt hash of the admin bearer token
}

// Load parses configuration from environment variables.
// All configuration options except the encryption key have sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		ListenAddr:         getEnv("LISTEN_ADDR", ":8080"),
		MetricsListenAddr:  getEnv("METRICS_LISTEN_ADDR", "localhost:9090"),
		DatabasePath:       getEnv("DATABASE_PATH", "/data/connector.db"),
		EdflexBaseURL:      getEnv("EDFLEX_BASE_URL", ""),
		EdflexClientID:     getEnv("EDFLEX_CLIENT_ID", ""),
		EdflexClientSecret: getEnv("EDFLEX_CLIENT_SECRET", ""),
		EdflexCatalogID:    getEnv("EDFLEX_CATALOG_ID", ""),
		AdminTokenHash:     getEnv("ADMIN_TOKEN_HASH", ""),
	}

	var err error
	cfg.SyncInterval, err = getDuration("SYNC_INTERVAL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg.SyncMaxAge, err = getDuration("SYNC_MAX_AGE", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	if raw := os.Getenv("ENCRYPTION_KEY"); raw != "" {
		key, err := hex.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("ENCRYPTION_KEY must be hex-encoded: %w", err)
		}
		cfg.EncryptionKey = key
	}

	return cfg, nil
}

// Validate checks all configuration constraints.
func (c *Config) Validate() error {
	if len(c.EncryptionKey) == 0 {
		return fmt.Errorf("ENCRYPTION_KEY environment variable is required")
	}
	if len(c.EncryptionKey) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must decode to 32 bytes, got %d", len(c.EncryptionKey))
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL must be positive")
	}
	return nil
}

// getEnv returns the environment variable value or a default when unset.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getDuration parses a duration environment variable, falling back when unset.
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 30m or 24h: %w", key, err)
	}
	return d, nil
}
