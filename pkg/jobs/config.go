package jobs

import (
	"os"
	"strconv"
	"time"
)

// SwitchConfig controls the scheduled status switch worker.
type SwitchConfig struct {
	Interval         time.Duration // How often due entities are switched. Default 1m.
	BatchSize        int           // Max entities handled per pass. Default 500.
	DeletedRetention time.Duration // How long an entity stays DELETED before it is purged. Default 30 days.
	ClaimTimeout     time.Duration // Max time a pass can stay "running" before considered stuck. Default 10m.
	RetentionDays    int           // How long to keep finished pass records. Default 7.
	Enabled          bool          // Whether the worker is active. Default true.
}

// DefaultSwitchConfig returns the default switch worker configuration.
func DefaultSwitchConfig() *SwitchConfig {
	return &SwitchConfig{
		Interval:         time.Minute,
		BatchSize:        500,
		DeletedRetention: 30 * 24 * time.Hour,
		ClaimTimeout:     10 * time.Minute,
		RetentionDays:    7,
		Enabled:          true,
	}
}

// SwitchConfigFromEnv loads config from environment variables.
// CATALOG_STATUS_SWITCH_INTERVAL_SECONDS, CATALOG_STATUS_SWITCH_BATCH_SIZE,
// CATALOG_STATUS_SWITCH_DELETED_RETENTION_HOURS, CATALOG_STATUS_SWITCH_CLAIM_TIMEOUT_MINUTES,
// CATALOG_STATUS_SWITCH_RETENTION_DAYS, CATALOG_STATUS_SWITCH_ENABLED
func SwitchConfigFromEnv() *SwitchConfig {
	cfg := DefaultSwitchConfig()

	if v := os.Getenv("CATALOG_STATUS_SWITCH_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Interval = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("CATALOG_STATUS_SWITCH_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BatchSize = n
		}
	}

	if v := os.Getenv("CATALOG_STATUS_SWITCH_DELETED_RETENTION_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.DeletedRetention = time.Duration(n) * time.Hour
		}
	}

	if v := os.Getenv("CATALOG_STATUS_SWITCH_CLAIM_TIMEOUT_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ClaimTimeout = time.Duration(n) * time.Minute
		}
	}

	if v := os.Getenv("CATALOG_STATUS_SWITCH_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RetentionDays = n
		}
	}

	if v := os.Getenv("CATALOG_STATUS_SWITCH_ENABLED"); v != "" {
		cfg.Enabled, _ = strconv.ParseBool(v)
	}

	return cfg
}
