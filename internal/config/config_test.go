package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 50, cfg.Engine.PopulationSize)
	assert.Equal(t, 200, cfg.Engine.MaxGenerations)
	assert.Equal(t, 1, cfg.Engine.LogInterval)
	assert.Equal(t, 1000, cfg.Engine.MaxStagnation)
	assert.Equal(t, int64(0), cfg.Engine.Seed)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("ENGINE_POP_SIZE", "120")
	t.Setenv("ENGINE_MAX_GEN", "500")
	t.Setenv("ENGINE_LOG_INTERVAL", "0")
	t.Setenv("ENGINE_SEED", "42")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 120, cfg.Engine.PopulationSize)
	assert.Equal(t, 500, cfg.Engine.MaxGenerations)
	assert.Equal(t, 0, cfg.Engine.LogInterval)
	assert.Equal(t, int64(42), cfg.Engine.Seed)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("ENGINE_MAX_GEN", "plenty")

	_, err := Load()
	assert.Error(t, err)
}
