package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, cfg any) string {
	t.Helper()
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "data-catalog.db", cfg.Database.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 500, cfg.Enrichment.MaxBatchSize)
	assert.Equal(t, time.Minute, cfg.StatusSwitch.Interval)
	assert.Equal(t, 30*24*time.Hour, cfg.StatusSwitch.DeletedRetention)
	assert.True(t, cfg.HA.MigrationLockEnabled)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, 90, cfg.Audit.RetentionDays)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, map[string]any{
		"database": map[string]any{"type": "postgres", "dsn": "host=db user=catalog"},
		"log":      map[string]any{"level": "debug", "mode": "development"},
		"enrichment": map[string]any{
			"max_batch_size": 50,
		},
		"status_switch": map[string]any{
			"interval":          "30s",
			"deleted_retention": "48h",
		},
		"ha":    map[string]any{"leader_election_enabled": true, "lease_name": "switch"},
		"audit": map[string]any{"retention_days": 14, "actor": "ops"},
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "host=db user=catalog", cfg.Database.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 50, cfg.Enrichment.MaxBatchSize)
	assert.Equal(t, 20, cfg.Enrichment.DefaultPageSize)
	assert.Equal(t, 30*time.Second, cfg.StatusSwitch.Interval)
	assert.Equal(t, 48*time.Hour, cfg.StatusSwitch.DeletedRetention)
	assert.True(t, cfg.HA.LeaderElectionEnabled)
	assert.Equal(t, 14, cfg.Audit.RetentionDays)
	assert.Equal(t, "ops", cfg.Audit.Actor)
	assert.Equal(t, "switch", cfg.HA.LeaseName)

	assert.Equal(t, 50, cfg.ServiceConfig().MaxBatchSize)
	assert.Equal(t, 48*time.Hour, cfg.SwitchConfig().DeletedRetention)
	assert.Equal(t, "switch", cfg.HAConfig().LeaseName)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, map[string]any{
		"database": map[string]any{"type": "sqlite", "dsn": "file.db"},
	})
	t.Setenv("CATALOG_DATABASE_DSN", "override.db")
	t.Setenv("CATALOG_ENRICHMENT_MAX_BATCH_SIZE", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "override.db", cfg.Database.DSN)
	assert.Equal(t, 7, cfg.Enrichment.MaxBatchSize)
}

func TestLoad_ComponentEnvSeedsDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CATALOG_STATUS_SWITCH_INTERVAL_SECONDS", "5")
	t.Setenv("CATALOG_LEADER_LEASE_NAME", "from-env")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.StatusSwitch.Interval)
	assert.Equal(t, "from-env", cfg.HA.LeaseName)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "unknown database", mutate: func(c *Config) { c.Database.Type = "oracle" }, wantErr: true},
		{name: "empty dsn", mutate: func(c *Config) { c.Database.DSN = "" }, wantErr: true},
		{name: "zero batch", mutate: func(c *Config) { c.Enrichment.MaxBatchSize = 0 }, wantErr: true},
		{name: "zero interval", mutate: func(c *Config) { c.StatusSwitch.Interval = 0 }, wantErr: true},
		{name: "zero interval when disabled", mutate: func(c *Config) {
			c.StatusSwitch.Enabled = false
			c.StatusSwitch.Interval = 0
		}},
		{name: "negative retention", mutate: func(c *Config) { c.StatusSwitch.DeletedRetention = -time.Hour }, wantErr: true},
		{name: "negative audit retention", mutate: func(c *Config) { c.Audit.RetentionDays = -1 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
