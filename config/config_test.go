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
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.Backend.BaseURL)
	assert.Equal(t, 300*time.Second, cfg.Timeout())
	assert.Equal(t, time.Second, cfg.QuietPeriod())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NotEmpty(t, cfg.Data.DBPath)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contractintel.toml")
	content := `
[backend]
base_url = "http://10.0.0.5:8000"
timeout_seconds = 60

[autosave]
quiet_millis = 250

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.5:8000", cfg.Backend.BaseURL)
	assert.Equal(t, time.Minute, cfg.Timeout())
	assert.Equal(t, 250*time.Millisecond, cfg.QuietPeriod())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CONTRACTINTEL_BACKEND_BASE_URL", "http://env-host:8000")
	t.Setenv("CONTRACTINTEL_BACKEND_TIMEOUT_SECONDS", "60")
	t.Setenv("CONTRACTINTEL_DATA_DB_PATH", "/tmp/env.db")
	t.Setenv("CONTRACTINTEL_AUTOSAVE_QUIET_MILLIS", "250")
	t.Setenv("CONTRACTINTEL_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://env-host:8000", cfg.Backend.BaseURL)
	assert.Equal(t, time.Minute, cfg.Timeout())
	assert.Equal(t, "/tmp/env.db", cfg.Data.DBPath)
	assert.Equal(t, 250*time.Millisecond, cfg.QuietPeriod())
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestEnvUnknownVariableIgnored(t *testing.T) {
	t.Setenv("CONTRACTINTEL_BOGUS_KEY", "x")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.Backend.BaseURL)
}
