package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Engine.RoundLength)
	assert.Equal(t, 5*time.Second, cfg.Engine.BreakLength)
	assert.NotEmpty(t, cfg.Client.ServerURL)
	assert.NotEmpty(t, cfg.Client.StateFile)
}

func TestLoadAppliesDefaultsToMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 4000
engine:
  round_length: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Engine.RoundLength)
	// untouched fields fall back to defaults
	assert.Equal(t, 5*time.Second, cfg.Engine.BreakLength)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestPortEnvOverride(t *testing.T) {
	t.Setenv("PORT", "9999")
	cfg := DefaultConfig()
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestDevelopmentEnvFlag(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	cfg := DefaultConfig()
	assert.True(t, cfg.Server.Development)
}
