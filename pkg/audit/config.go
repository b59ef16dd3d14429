package audit

import (
	"os"
	"strconv"
)

// AuditConfig controls the activity log.
type AuditConfig struct {
	RetentionDays int  // Default 90
	Enabled       bool // Whether activity events are recorded
}

// DefaultAuditConfig returns the default configuration.
func DefaultAuditConfig() *AuditConfig {
	return &AuditConfig{
		RetentionDays: 90,
		Enabled:       true,
	}
}

// AuditConfigFromEnv loads config from environment variables.
// CATALOG_AUDIT_RETENTION_DAYS, CATALOG_AUDIT_ENABLED
func AuditConfigFromEnv() *AuditConfig {
	cfg := DefaultAuditConfig()

	if v := os.Getenv("CATALOG_AUDIT_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			cfg.RetentionDays = days
		}
	}

	if v := os.Getenv("CATALOG_AUDIT_ENABLED"); v != "" {
		cfg.Enabled, _ = strconv.ParseBool(v)
	}

	return cfg
}
