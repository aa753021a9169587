package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return path
}

func TestConfig_LoadValid(t *testing.T) {
	path := writeTestConfig(t, `{
		"database_path": "./data/trades.db",
		"default_horizon": 30
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabasePath != "./data/trades.db" {
		t.Errorf("expected ./data/trades.db, got %s", cfg.DatabasePath)
	}
	if cfg.DefaultHorizon != 30 {
		t.Errorf("expected 30, got %d", cfg.DefaultHorizon)
	}
}

func TestConfig_LoadMissingPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabasePath != "tradecoach.db" {
		t.Errorf("expected default db path, got %s", cfg.DatabasePath)
	}
	if cfg.DefaultHorizon != 30 {
		t.Errorf("expected default horizon 30, got %d", cfg.DefaultHorizon)
	}
}

func TestConfig_RejectsZeroHorizon(t *testing.T) {
	path := writeTestConfig(t, `{"database_path": "./data/trades.db", "default_horizon": 0}`)

	_, err := Load(path)
	if err == nil {
		t.Error("expected error for zero default_horizon")
	}
}

func TestConfig_RejectsEmptyDatabasePath(t *testing.T) {
	path := writeTestConfig(t, `{"database_path": "", "default_horizon": 30}`)

	_, err := Load(path)
	if err == nil {
		t.Error("expected error for empty database_path")
	}
}

func TestConfig_EnvOverridesDatabasePath(t *testing.T) {
	path := writeTestConfig(t, `{"database_path": "./data/trades.db", "default_horizon": 30}`)

	os.Setenv("TRADECOACH_DB_PATH", "/tmp/override.db")
	defer os.Unsetenv("TRADECOACH_DB_PATH")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabasePath != "/tmp/override.db" {
		t.Errorf("expected env override, got %s", cfg.DatabasePath)
	}
}

func TestConfig_BrokerCredentialsFromEnv(t *testing.T) {
	os.Setenv("TIGER_ID", "tid-1")
	os.Setenv("PRIVATE_KEY_PK1", "pk-1")
	os.Setenv("ACCOUNT", "acct-1")
	defer os.Unsetenv("TIGER_ID")
	defer os.Unsetenv("PRIVATE_KEY_PK1")
	defer os.Unsetenv("ACCOUNT")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Broker.TigerID != "tid-1" || cfg.Broker.PrivateKeyPK1 != "pk-1" || cfg.Broker.Account != "acct-1" {
		t.Errorf("expected broker credentials from env, got %+v", cfg.Broker)
	}
}
