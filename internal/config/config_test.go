package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
database:
  path: `+filepath.Join(dir, "data", "test.db")+`
booking:
  slot_minutes: 30
  min_advance_minutes: 120
  max_advance_days: 14
  max_active_per_user: 3
qualification:
  submits_per_hour: 2
operators:
  - 100001
  - 100002
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.SlotGranularity())
	assert.Equal(t, 2*time.Hour, cfg.BookingMinAdvance())
	assert.Equal(t, 14*24*time.Hour, cfg.BookingMaxAdvance())
	assert.Equal(t, 2, cfg.QualificationSubmitsPerHour())
	assert.True(t, cfg.IsOperator(100001))
	assert.False(t, cfg.IsOperator(7))

	// The database directory is created on load.
	_, err = os.Stat(filepath.Join(dir, "data"))
	assert.NoError(t, err)
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeConfig(t, `booking: {}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "data/hearth.db", cfg.Database.Path)
	assert.Equal(t, time.Hour, cfg.SlotGranularity())
	assert.Equal(t, time.Hour, cfg.BookingMinAdvance())
	assert.Equal(t, 30*24*time.Hour, cfg.BookingMaxAdvance())
	assert.Equal(t, 5, cfg.QualificationSubmitsPerHour())
}

func TestLoadExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("HEARTH_TEST_REDIS", "redis-test:6379")
	dir := t.TempDir()
	path := writeConfig(t, `
database:
  path: `+filepath.Join(dir, "test.db")+`
redis:
  address: ${HEARTH_TEST_REDIS}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis-test:6379", cfg.Redis.Address)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
