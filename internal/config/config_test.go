package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 25, cfg.Database.MaxConnections)
	require.Equal(t, "24h", cfg.Auth.JWTExpiry)
	require.Equal(t, "admin", cfg.Auth.AdminUsername)
	require.True(t, cfg.Scheduler.Exclusive)
	require.Equal(t, "UTC", cfg.Scheduler.Timezone)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "homeduty.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 9000

[scheduler]
exclusive = false
timezone = "Europe/Berlin"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9000, cfg.Server.Port)
	require.False(t, cfg.Scheduler.Exclusive)
	require.Equal(t, "Europe/Berlin", cfg.Scheduler.Timezone)
	// Untouched keys keep their defaults.
	require.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "homeduty.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[logging]
level = "warn"
`), 0o644))

	t.Setenv("HD_LOGGING_LEVEL", "debug")
	t.Setenv("HD_DATABASE_URL", "postgres://localhost/homeduty_test")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "postgres://localhost/homeduty_test", cfg.Database.URL)
}

func TestLoadEmptyEnvDoesNotOverride(t *testing.T) {
	t.Setenv("HD_LOGGING_LEVEL", "")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "info", cfg.Logging.Level)
}
