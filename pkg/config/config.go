// Package config loads the catalog configuration from a YAML file and
// CATALOG_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/kubeflow/data-catalog/pkg/audit"
	"github.com/kubeflow/data-catalog/pkg/catalog/service"
	"github.com/kubeflow/data-catalog/pkg/ha"
	"github.com/kubeflow/data-catalog/pkg/jobs"
)

// Config is the catalog configuration.
type Config struct {
	Database     DatabaseConfig     `mapstructure:"database" yaml:"database"`
	Log          LogConfig          `mapstructure:"log" yaml:"log"`
	Enrichment   EnrichmentConfig   `mapstructure:"enrichment" yaml:"enrichment"`
	StatusSwitch StatusSwitchConfig `mapstructure:"status_switch" yaml:"status_switch"`
	HA           HAConfig           `mapstructure:"ha" yaml:"ha"`
	Audit        AuditConfig        `mapstructure:"audit" yaml:"audit"`
}

// DatabaseConfig selects the database driver and connection.
type DatabaseConfig struct {
	Type     string `mapstructure:"type" yaml:"type"` // postgres, mysql, sqlite
	DSN      string `mapstructure:"dsn" yaml:"dsn"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"` // silent, error, warn, info
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"` // debug, info, warn, error
	Mode  string `mapstructure:"mode" yaml:"mode"`   // production, development
}

// EnrichmentConfig bounds enrichment batches.
type EnrichmentConfig struct {
	MaxBatchSize    int `mapstructure:"max_batch_size" yaml:"max_batch_size"`
	DefaultPageSize int `mapstructure:"default_page_size" yaml:"default_page_size"`
}

// StatusSwitchConfig configures the scheduled status switch worker.
type StatusSwitchConfig struct {
	Enabled          bool          `mapstructure:"enabled" yaml:"enabled"`
	Interval         time.Duration `mapstructure:"interval" yaml:"interval"`
	BatchSize        int           `mapstructure:"batch_size" yaml:"batch_size"`
	DeletedRetention time.Duration `mapstructure:"deleted_retention" yaml:"deleted_retention"`
	ClaimTimeout     time.Duration `mapstructure:"claim_timeout" yaml:"claim_timeout"`
	RetentionDays    int           `mapstructure:"retention_days" yaml:"retention_days"`
}

// AuditConfig configures the activity log.
type AuditConfig struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	RetentionDays int    `mapstructure:"retention_days" yaml:"retention_days"`
	Actor         string `mapstructure:"actor" yaml:"actor"`
}

// HAConfig configures leader election and the migration lock.
type HAConfig struct {
	LeaderElectionEnabled bool          `mapstructure:"leader_election_enabled" yaml:"leader_election_enabled"`
	LeaseName             string        `mapstructure:"lease_name" yaml:"lease_name"`
	LeaseNamespace        string        `mapstructure:"lease_namespace" yaml:"lease_namespace"`
	LeaseDuration         time.Duration `mapstructure:"lease_duration" yaml:"lease_duration"`
	RenewDeadline         time.Duration `mapstructure:"renew_deadline" yaml:"renew_deadline"`
	RetryPeriod           time.Duration `mapstructure:"retry_period" yaml:"retry_period"`
	MigrationLockEnabled  bool          `mapstructure:"migration_lock_enabled" yaml:"migration_lock_enabled"`
	Identity              string        `mapstructure:"identity" yaml:"identity"`
	Kubeconfig            string        `mapstructure:"kubeconfig" yaml:"kubeconfig"`
}

// Load reads the configuration. An empty path looks for config.yaml in
// ./configs and the working directory and falls back to defaults when none
// is found. Environment variables such as CATALOG_DATABASE_DSN override the
// file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults seeds viper from the component defaults, which already honor
// the component-level environment variables.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "data-catalog.db")
	v.SetDefault("database.log_level", "silent")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.mode", "production")

	svc := service.DefaultConfig()
	v.SetDefault("enrichment.max_batch_size", svc.MaxBatchSize)
	v.SetDefault("enrichment.default_page_size", svc.DefaultPageSize)

	sw := jobs.SwitchConfigFromEnv()
	v.SetDefault("status_switch.enabled", sw.Enabled)
	v.SetDefault("status_switch.interval", sw.Interval)
	v.SetDefault("status_switch.batch_size", sw.BatchSize)
	v.SetDefault("status_switch.deleted_retention", sw.DeletedRetention)
	v.SetDefault("status_switch.claim_timeout", sw.ClaimTimeout)
	v.SetDefault("status_switch.retention_days", sw.RetentionDays)

	h := ha.HAConfigFromEnv()
	v.SetDefault("ha.leader_election_enabled", h.LeaderElectionEnabled)
	v.SetDefault("ha.lease_name", h.LeaseName)
	v.SetDefault("ha.lease_namespace", h.LeaseNamespace)
	v.SetDefault("ha.lease_duration", h.LeaseDuration)
	v.SetDefault("ha.renew_deadline", h.RenewDeadline)
	v.SetDefault("ha.retry_period", h.RetryPeriod)
	v.SetDefault("ha.migration_lock_enabled", h.MigrationLockEnabled)
	v.SetDefault("ha.identity", h.Identity)
	v.SetDefault("ha.kubeconfig", h.Kubeconfig)

	a := audit.AuditConfigFromEnv()
	v.SetDefault("audit.enabled", a.Enabled)
	v.SetDefault("audit.retention_days", a.RetentionDays)
	v.SetDefault("audit.actor", "")
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database type %q (expected postgres, mysql or sqlite)", c.Database.Type)
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn is required")
	}
	if c.Enrichment.MaxBatchSize <= 0 {
		return fmt.Errorf("invalid enrichment max batch size: %d", c.Enrichment.MaxBatchSize)
	}
	if c.StatusSwitch.Enabled && c.StatusSwitch.Interval <= 0 {
		return fmt.Errorf("invalid status switch interval: %s", c.StatusSwitch.Interval)
	}
	if c.Audit.RetentionDays < 0 {
		return fmt.Errorf("invalid audit retention days: %d", c.Audit.RetentionDays)
	}
	if c.StatusSwitch.DeletedRetention < 0 {
		return fmt.Errorf("invalid deleted retention: %s", c.StatusSwitch.DeletedRetention)
	}
	return nil
}

// ServiceConfig returns the service configuration.
func (c *Config) ServiceConfig() service.Config {
	return service.Config{
		MaxBatchSize:    c.Enrichment.MaxBatchSize,
		DefaultPageSize: c.Enrichment.DefaultPageSize,
	}
}

// SwitchConfig returns the status switch worker configuration.
func (c *Config) SwitchConfig() *jobs.SwitchConfig {
	return &jobs.SwitchConfig{
		Enabled:          c.StatusSwitch.Enabled,
		Interval:         c.StatusSwitch.Interval,
		BatchSize:        c.StatusSwitch.BatchSize,
		DeletedRetention: c.StatusSwitch.DeletedRetention,
		ClaimTimeout:     c.StatusSwitch.ClaimTimeout,
		RetentionDays:    c.StatusSwitch.RetentionDays,
	}
}

// HAConfig returns the high-availability configuration.
func (c *Config) HAConfig() *ha.HAConfig {
	return &ha.HAConfig{
		LeaderElectionEnabled: c.HA.LeaderElectionEnabled,
		LeaseName:             c.HA.LeaseName,
		LeaseNamespace:        c.HA.LeaseNamespace,
		LeaseDuration:         c.HA.LeaseDuration,
		RenewDeadline:         c.HA.RenewDeadline,
		RetryPeriod:           c.HA.RetryPeriod,
		MigrationLockEnabled:  c.HA.MigrationLockEnabled,
		Identity:              c.HA.Identity,
		Kubeconfig:            c.HA.Kubeconfig,
	}
}
