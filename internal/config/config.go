// Package config provides application-wide configuration management.
// All configuration is loaded from a JSON file and environment variables.
// No configuration is hardcoded in the analyzer or store logic.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds all system configuration. Loaded once at startup and
// passed as read-only to the orchestrator.
type Config struct {
	// DatabasePath is the path to the local SQLite database file.
	DatabasePath string `json:"database_path"`

	// DefaultHorizon is the horizon (days) used when a request omits one.
	DefaultHorizon int `json:"default_horizon"`

	// Broker holds credentials for the live market-data adapter.
	// Populated from environment variables only; never persisted to
	// the config file.
	Broker BrokerConfig `json:"-"`
}

// BrokerConfig holds the opaque credentials consumed only by the live
// market-data adapter (internal/marketdata/live). The core engine never
// inspects these values.
type BrokerConfig struct {
	TigerID       string
	PrivateKeyPK1 string
	Account       string
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		DatabasePath:   "tradecoach.db",
		DefaultHorizon: 30,
	}
}

// Load reads configuration from a JSON file and applies environment
// variable overrides. Validation happens once here, before any I/O;
// downstream code assumes the returned Config is well-formed.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("config: resolve path: %w", err)
		}

		data, err := os.ReadFile(absPath)
		if err != nil {
			return nil, fmt.Errorf("config: read file %s: %w", absPath, err)
		}

		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse json: %w", err)
		}
	}

	if v := os.Getenv("TRADECOACH_DB_PATH"); v != "" {
		cfg.DatabasePath = v
	}

	cfg.Broker = BrokerConfig{
		TigerID:       os.Getenv("TIGER_ID"),
		PrivateKeyPK1: os.Getenv("PRIVATE_KEY_PK1"),
		Account:       os.Getenv("ACCOUNT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are present and sane.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	if c.DefaultHorizon <= 0 {
		return fmt.Errorf("default_horizon must be positive, got %d", c.DefaultHorizon)
	}
	return nil
}
