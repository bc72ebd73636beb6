package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, time.Minute, cfg.AnalyticsCacheTTL)
	assert.Equal(t, "0 0 * * * *", cfg.RescoreSchedule)
	assert.Equal(t, 4, cfg.RescoreWorkers)
	assert.Equal(t, 200, cfg.RescoreBatchSize)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "US", cfg.PhoneRegion)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crm.yaml")
	content := "port: \"9090\"\nenv: dev\nrescore_workers: 8\nanalytics_cache_ttl: 5m\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CRM_RESCORE_WORKERS", "2")
	t.Setenv("CRM_PHONE_REGION", "GB")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 2, cfg.RescoreWorkers, "environment overrides the file")
	assert.Equal(t, 5*time.Minute, cfg.AnalyticsCacheTTL)
	assert.Equal(t, "GB", cfg.PhoneRegion)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CRM_RESCORE_WORKERS", "0")

	_, err := Load("")
	assert.ErrorContains(t, err, "rescore_workers")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
