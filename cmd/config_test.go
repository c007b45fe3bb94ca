package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 0.33, cfg.Matching.AcceptableScoreThreshold)
	assert.Equal(t, 10, cfg.Matching.IntervalMinutes)
	assert.Equal(t, 2, cfg.Matching.RetentionFactor)
	assert.Equal(t, 2*time.Minute, cfg.Scheduler.Timeout)
	assert.Equal(t, time.Second, cfg.Notifier.LiveTimeout)
	assert.Equal(t, 15*time.Minute, cfg.Links.TokenTTL)
	assert.Equal(t, "matching.triggers", cfg.Trigger.Queue)
	assert.Equal(t, "New WiseUp Notification: ", cfg.Email.SubjectPrefix)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "custom.yaml")
	data := `
server:
  addr: ":9090"
matching:
  acceptable_score_threshold: 0.5
  interval_minutes: 15
  run_timeout: 30s
redis:
  addr: localhost:6379
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	t.Setenv("RM_DATABASE_DSN", "/tmp/override.db")
	t.Setenv("RM_MATCHING_WORKERS", "8")

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 0.5, cfg.Matching.AcceptableScoreThreshold)
	assert.Equal(t, 15, cfg.Matching.IntervalMinutes)
	assert.Equal(t, 8, cfg.Matching.Workers)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.Timeout)
	assert.Equal(t, "/tmp/override.db", cfg.Database.DSN)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := loadConfig("does-not-exist.yaml")
	require.Error(t, err)
}

// chdir switches the working directory for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
