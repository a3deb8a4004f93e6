package config_test

import (
	"os"
	"testing"
	"time"

	"storagesync/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"STORAGESYNC_SYNC_ENABLED", "STORAGESYNC_HUB_URL", "STORAGESYNC_ACCOUNT_KEY",
		"STORAGESYNC_JWT_SECRET", "STORAGESYNC_SYNC_INTERVAL", "STORAGESYNC_REQUEST_TIMEOUT",
		"STORAGESYNC_DB_PATH", "STORAGESYNC_LISTEN_ADDR",
	}
	for _, k := range keys {
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for _, k := range keys {
			os.Unsetenv(k)
		}
	})
}

func TestLoad_DefaultsWhenUnset(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Enabled {
		t.Fatal("Enabled must default to false")
	}
	if cfg.SyncInterval != 5*time.Minute {
		t.Fatalf("SyncInterval = %v, want 5m default", cfg.SyncInterval)
	}
	if cfg.RequestTimeout != 15*time.Second {
		t.Fatalf("RequestTimeout = %v, want 15s default", cfg.RequestTimeout)
	}
	if cfg.DBPath != "storagesync.duckdb" {
		t.Fatalf("DBPath = %q, want default", cfg.DBPath)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("ListenAddr = %q, want default", cfg.ListenAddr)
	}
}

func TestLoad_ReadsOverridesFromEnv(t *testing.T) {
	clearEnv(t)
	os.Setenv("STORAGESYNC_SYNC_ENABLED", "true")
	os.Setenv("STORAGESYNC_HUB_URL", "https://hub.example")
	os.Setenv("STORAGESYNC_ACCOUNT_KEY", "acct-1")
	os.Setenv("STORAGESYNC_JWT_SECRET", "shh")
	os.Setenv("STORAGESYNC_SYNC_INTERVAL", "30s")
	os.Setenv("STORAGESYNC_REQUEST_TIMEOUT", "2s")
	os.Setenv("STORAGESYNC_DB_PATH", "/tmp/x.duckdb")
	os.Setenv("STORAGESYNC_LISTEN_ADDR", ":9999")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Enabled {
		t.Fatal("Enabled must be true")
	}
	if cfg.HubURL != "https://hub.example" {
		t.Fatalf("HubURL = %q", cfg.HubURL)
	}
	if cfg.SyncInterval != 30*time.Second {
		t.Fatalf("SyncInterval = %v, want 30s", cfg.SyncInterval)
	}
	if cfg.RequestTimeout != 2*time.Second {
		t.Fatalf("RequestTimeout = %v, want 2s", cfg.RequestTimeout)
	}
	if cfg.DBPath != "/tmp/x.duckdb" {
		t.Fatalf("DBPath = %q", cfg.DBPath)
	}
	if cfg.ListenAddr != ":9999" {
		t.Fatalf("ListenAddr = %q", cfg.ListenAddr)
	}
}

func TestLoad_RejectsMalformedBool(t *testing.T) {
	clearEnv(t)
	os.Setenv("STORAGESYNC_SYNC_ENABLED", "not-a-bool")
	if _, err := config.Load(); err == nil {
		t.Fatal("expected an error for a malformed STORAGESYNC_SYNC_ENABLED value")
	}
}

func TestLoad_RejectsMalformedDuration(t *testing.T) {
	clearEnv(t)
	os.Setenv("STORAGESYNC_SYNC_INTERVAL", "not-a-duration")
	if _, err := config.Load(); err == nil {
		t.Fatal("expected an error for a malformed STORAGESYNC_SYNC_INTERVAL value")
	}
}

func TestValidate_SkipsChecksWhenDisabled(t *testing.T) {
	cfg := &config.Config{Enabled: false}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("a disabled config must validate with no required fields: %v", err)
	}
}

func TestValidate_RequiresHubURLAccountKeyAndJWTSecret(t *testing.T) {
	base := config.Config{Enabled: true, SyncInterval: time.Minute}

	missingHub := base
	if err := missingHub.Validate(); err == nil {
		t.Fatal("expected an error when HubURL is missing")
	}

	missingAccount := base
	missingAccount.HubURL = "https://hub.example"
	if err := missingAccount.Validate(); err == nil {
		t.Fatal("expected an error when AccountKey is missing")
	}

	missingSecret := base
	missingSecret.HubURL = "https://hub.example"
	missingSecret.AccountKey = "acct"
	if err := missingSecret.Validate(); err == nil {
		t.Fatal("expected an error when JWTSecret is missing")
	}
}

func TestValidate_RejectsTooShortSyncInterval(t *testing.T) {
	cfg := config.Config{
		Enabled:      true,
		HubURL:       "https://hub.example",
		AccountKey:   "acct",
		JWTSecret:    "shh",
		SyncInterval: 5 * time.Second,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error: SyncInterval below 10s must be rejected")
	}
}

func TestValidate_AcceptsWellFormedEnabledConfig(t *testing.T) {
	cfg := config.Config{
		Enabled:      true,
		HubURL:       "https://hub.example",
		AccountKey:   "acct",
		JWTSecret:    "shh",
		SyncInterval: 10 * time.Second,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("a well-formed enabled config must validate cleanly: %v", err)
	}
}
