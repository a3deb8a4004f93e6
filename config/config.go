// Package config loads the demo daemon's environment-variable configuration.
// The reconciliation core itself has no CLI or env surface (§6) — this
// belongs to cmd/storagesyncd, the ambient wiring a real repository needs
// around the library, modeled on the teacher's LoadSyncConfig/Validate
// shape (models/sync_config.go).
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rohanthewiz/serr"
)

// defaultSyncInterval balances freshness against hub load for a
// single-account demo daemon driving Sync on a timer.
const defaultSyncInterval = 5 * time.Minute

// defaultRequestTimeout bounds each Storage Service RPC (§5 "network
// operations carry per-call timeouts").
const defaultRequestTimeout = 15 * time.Second

// Config holds the demo daemon's settings, loaded from environment
// variables so deployment configuration stays external to the binary.
type Config struct {
	Enabled        bool          // STORAGESYNC_SYNC_ENABLED
	HubURL         string        // STORAGESYNC_HUB_URL
	AccountKey     string        // STORAGESYNC_ACCOUNT_KEY
	JWTSecret      string        // STORAGESYNC_JWT_SECRET
	SyncInterval   time.Duration // STORAGESYNC_SYNC_INTERVAL
	RequestTimeout time.Duration // STORAGESYNC_REQUEST_TIMEOUT
	DBPath         string        // STORAGESYNC_DB_PATH
	ListenAddr     string        // STORAGESYNC_LISTEN_ADDR
}

// Load reads configuration from environment variables. It returns a config
// even when sync is disabled so callers can inspect state without nil
// checks, matching the teacher's LoadSyncConfig contract.
func Load() (*Config, error) {
	cfg := &Config{
		SyncInterval:   defaultSyncInterval,
		RequestTimeout: defaultRequestTimeout,
		DBPath:         "storagesync.duckdb",
		ListenAddr:     ":8080",
	}

	if v := os.Getenv("STORAGESYNC_SYNC_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, serr.Wrap(err, "invalid STORAGESYNC_SYNC_ENABLED value, expected true/false")
		}
		cfg.Enabled = enabled
	}

	cfg.HubURL = os.Getenv("STORAGESYNC_HUB_URL")
	cfg.AccountKey = os.Getenv("STORAGESYNC_ACCOUNT_KEY")
	cfg.JWTSecret = os.Getenv("STORAGESYNC_JWT_SECRET")

	if v := os.Getenv("STORAGESYNC_SYNC_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, serr.Wrap(err, "invalid STORAGESYNC_SYNC_INTERVAL value, expected duration like '5m' or '30s'")
		}
		cfg.SyncInterval = d
	}

	if v := os.Getenv("STORAGESYNC_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, serr.Wrap(err, "invalid STORAGESYNC_REQUEST_TIMEOUT value, expected duration like '15s'")
		}
		cfg.RequestTimeout = d
	}

	if v := os.Getenv("STORAGESYNC_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("STORAGESYNC_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}

	return cfg, nil
}

// Validate checks required fields are present when sync is enabled, only
// enforcing fields the feature actually needs — mirroring the teacher's
// "nothing to validate when disabled" early return.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.HubURL == "" {
		return serr.New("STORAGESYNC_HUB_URL is required when sync is enabled")
	}
	if c.AccountKey == "" {
		return serr.New("STORAGESYNC_ACCOUNT_KEY is required when sync is enabled")
	}
	if c.JWTSecret == "" {
		return serr.New("STORAGESYNC_JWT_SECRET is required when sync is enabled")
	}
	if c.SyncInterval < 10*time.Second {
		return serr.New("STORAGESYNC_SYNC_INTERVAL must be at least 10s to avoid overwhelming the hub")
	}
	return nil
}
