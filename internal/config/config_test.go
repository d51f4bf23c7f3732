package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowpost/slowpost/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SLOWPOST_PORT", "")
	t.Setenv("SLOWPOST_BACKEND", "")
	t.Setenv("DATA_DIR", "")
	t.Setenv("SKIP_PIN", "")
	t.Setenv("COOKIE_SECURE", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, config.BackendBBolt, cfg.Backend)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.False(t, cfg.SkipPin)
	assert.False(t, cfg.CookieSecure)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SLOWPOST_PORT", "9999")
	t.Setenv("SLOWPOST_BACKEND", "memory")
	t.Setenv("SKIP_PIN", "true")
	t.Setenv("COOKIE_SECURE", "1")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.ServerPort)
	assert.Equal(t, config.BackendMemory, cfg.Backend)
	assert.True(t, cfg.SkipPin)
	assert.True(t, cfg.CookieSecure)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("SLOWPOST_BACKEND", "cassandra")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestPostgresRequiresDatabaseURL(t *testing.T) {
	t.Setenv("SLOWPOST_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "")
	_, err := config.Load()
	require.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://localhost/slowpost")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/slowpost", cfg.DatabaseURL)
}
