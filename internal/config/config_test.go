package config

import (
	"encoding/hex"
	"testing"
	"time"
)

// TestLoadDefaults verifies defaults are applied when env vars are unset.
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %s", cfg.LogLevel)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("expected default listen addr :8080, got %s", cfg.ListenAddr)
	}
	if cfg.SyncInterval != 24*time.Hour {
		t.Errorf("expected default sync interval 24h, got %s", cfg.SyncInterval)
	}
}

// TestLoadEnvOverrides verifies env vars override defaults.
func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SYNC_INTERVAL", "30m")
	t.Setenv("EDFLEX_BASE_URL", "https://api.example.test")
	t.Setenv("ENCRYPTION_KEY", hex.EncodeToString(make([]byte, 32)))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug, got %s", cfg.LogLevel)
	}
	if cfg.SyncInterval != 30*time.Minute {
		t.Errorf("expected 30m, got %s", cfg.SyncInterval)
	}
	if cfg.EdflexBaseURL != "https://api.example.test" {
		t.Errorf("unexpected base URL %s", cfg.EdflexBaseURL)
	}
	if len(cfg.EncryptionKey) != 32 {
		t.Errorf("expected 32-byte key, got %d bytes", len(cfg.EncryptionKey))
	}
}

// TestLoadBadDuration verifies malformed durations are rejected.
func TestLoadBadDuration(t *testing.T) {
	t.Setenv("SYNC_INTERVAL", "not-a-duration")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed SYNC_INTERVAL")
	}
}

// TestLoadBadEncryptionKey verifies non-hex keys are rejected.
func TestLoadBadEncryptionKey(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "zz-not-hex")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-hex ENCRYPTION_KEY")
	}
}

// TestValidate verifies the encryption key constraints.
func TestValidate(t *testing.T) {
	cfg := &Config{SyncInterval: time.Hour}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing encryption key")
	}

	cfg.EncryptionKey = make([]byte, 16)
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for short encryption key")
	}

	cfg.EncryptionKey = make([]byte, 32)
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}

	cfg.SyncInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero sync interval")
	}
}
