package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "riskscan.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 5, cfg.Search.PageSize)
	assert.Equal(t, 3, cfg.Search.BatchSize)
	assert.Equal(t, 25, cfg.Search.MaxResults)
	assert.Equal(t, 30, cfg.Scan.FreshnessDays)
	assert.Equal(t, 3, cfg.Scan.ClassifyBatchSize)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RISKSCAN_SEARCH_KEY", "env-key")
	t.Setenv("RISKSCAN_SEARCH_ENGINE_ID", "env-cx")
	t.Setenv("RISKSCAN_SCAN_FRESHNESS_DAYS", "7")
	t.Setenv("RISKSCAN_STORE_DRIVER", "postgres")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Search.Key)
	assert.Equal(t, "env-cx", cfg.Search.EngineID)
	assert.Equal(t, 7, cfg.Scan.FreshnessDays)
	assert.Equal(t, "postgres", cfg.Store.Driver)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "not-a-level"}))
}
