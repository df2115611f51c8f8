package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sync-service", cfg.App.Name)
	assert.Equal(t, 100, cfg.Sync.DefaultLimit)
	assert.Equal(t, 1000, cfg.Sync.MaxLimit)
	assert.True(t, cfg.Compaction.Enabled)
	assert.Equal(t, 1000, cfg.Compaction.BatchSize)
	assert.Equal(t, 180*24*time.Hour, cfg.Compaction.TTL())
	assert.Equal(t, 6*time.Hour, cfg.Compaction.Interval())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SYNC_DEFAULT_LIMIT", "25")
	t.Setenv("COMPACTION_ENABLED", "false")
	t.Setenv("COMPACTION_TTL_DAYS", "30")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Sync.DefaultLimit)
	assert.False(t, cfg.Compaction.Enabled)
	assert.Equal(t, 30*24*time.Hour, cfg.Compaction.TTL())
}
