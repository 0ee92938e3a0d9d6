package daemonconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)
	assert.EqualValues(t, 500, cfg.WindowPollIntervalMS)
	assert.Contains(t, cfg.SettingsPath, "typls")
	assert.Contains(t, cfg.SocketPath, "typls")
	assert.False(t, cfg.AuditEnabled)
	assert.NoError(t, cfg.Validate())
}

func TestConfigPath(t *testing.T) {
	path := ConfigPath()
	assert.NotEmpty(t, path)
	assert.True(t, strings.HasSuffix(path, "daemon.toml"))
}

func TestWindowPollInterval(t *testing.T) {
	cfg := &Config{WindowPollIntervalMS: 250}
	assert.EqualValues(t, 250, cfg.WindowPollInterval().Milliseconds())
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.EqualValues(t, 500, cfg.WindowPollIntervalMS)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daemon.toml")
	toml := "window_poll_interval_ms = 1000\nlog_level = \"debug\"\n"
	require.NoError(t, os.WriteFile(path, []byte(toml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.EqualValues(t, 1000, cfg.WindowPollIntervalMS)
	assert.Equal(t, "debug", cfg.LogLevel)
	// untouched fields keep their default
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero poll interval", Config{WindowPollIntervalMS: 0, SocketPath: "x", SettingsPath: "y", LogFormat: "text", LogOutput: "stderr"}},
		{"empty socket path", Config{WindowPollIntervalMS: 1, SocketPath: "", SettingsPath: "y", LogFormat: "text", LogOutput: "stderr"}},
		{"bad log format", Config{WindowPollIntervalMS: 1, SocketPath: "x", SettingsPath: "y", LogFormat: "xml", LogOutput: "stderr"}},
		{"bad log output", Config{WindowPollIntervalMS: 1, SocketPath: "x", SettingsPath: "y", LogFormat: "text", LogOutput: "syslog"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}

func TestEnsureDirectoriesCreatesParents(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		SettingsPath:      filepath.Join(dir, "a", "settings.json"),
		SocketPath:        filepath.Join(dir, "b", "expandd.sock"),
		LogFilePath:       filepath.Join(dir, "c", "expandd.log"),
		AuditEnabled:      true,
		AuditDatabasePath: filepath.Join(dir, "d", "history.db"),
	}
	require.NoError(t, cfg.EnsureDirectories())
	for _, sub := range []string{"a", "b", "c", "d"} {
		info, err := os.Stat(filepath.Join(dir, sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
