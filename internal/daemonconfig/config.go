// Package daemonconfig handles the expandd daemon's own operational
// configuration, distinct from the user-facing settings.Settings document
// the expansion engine reads. It answers "where does the daemon listen,
// log, and store state", not "what gets expanded".
package daemonconfig

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the daemon's operational configuration.
type Config struct {
	// SettingsPath is the path to the user-facing settings.json file.
	SettingsPath string `toml:"settings_path"`

	// SocketPath is the control-socket path (named pipe path on Windows).
	SocketPath string `toml:"socket_path"`

	// WindowPollIntervalMS is a poll period in milliseconds, checked by
	// Validate and returned by WindowPollInterval. The daemon does not pass
	// it to the window watcher, which polls on its own fixed ~500ms period.
	WindowPollIntervalMS int `toml:"window_poll_interval_ms"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `toml:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `toml:"log_format"`

	// LogOutput is "stdout", "stderr", "file", or "both".
	LogOutput string `toml:"log_output"`

	// LogFilePath is the log file path when LogOutput includes "file".
	LogFilePath string `toml:"log_file_path"`

	// AuditEnabled turns on the SQLite expansion history trail.
	AuditEnabled bool `toml:"audit_enabled"`

	// AuditDatabasePath is the SQLite database file for the audit trail.
	AuditDatabasePath string `toml:"audit_database_path"`
}

// WindowPollInterval returns WindowPollIntervalMS as a time.Duration.
func (c *Config) WindowPollInterval() time.Duration {
	return time.Duration(c.WindowPollIntervalMS) * time.Millisecond
}

// DefaultConfig returns a configuration with sensible per-platform defaults.
func DefaultConfig() *Config {
	dir := StateDir()
	return &Config{
		SettingsPath:         filepath.Join(dir, "settings.json"),
		SocketPath:           filepath.Join(dir, "expandd.sock"),
		WindowPollIntervalMS: 500,
		LogLevel:             "info",
		LogFormat:            "text",
		LogOutput:            "stderr",
		LogFilePath:          filepath.Join(dir, "expandd.log"),
		AuditEnabled:         false,
		AuditDatabasePath:    filepath.Join(dir, "history.db"),
	}
}

// ConfigPath returns the default location of the daemon config file itself.
func ConfigPath() string {
	return filepath.Join(StateDir(), "daemon.toml")
}

// StateDir returns the platform-specific directory expandd keeps its
// state under (settings, socket, logs, history database).
func StateDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "typls")
	case "windows":
		appData := os.Getenv("LOCALAPPDATA")
		if appData == "" {
			appData = os.Getenv("APPDATA")
		}
		return filepath.Join(appData, "typls")
	default:
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			home, _ := os.UserHomeDir()
			configHome = filepath.Join(home, ".config")
		}
		return filepath.Join(configHome, "typls")
	}
}

// Load reads the daemon config from path, falling back to defaults for any
// field the file doesn't set and to Defaults entirely if the file is
// missing.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = ConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for obviously broken values.
func (c *Config) Validate() error {
	if c.WindowPollIntervalMS < 1 {
		return errors.New("daemonconfig: window_poll_interval_ms must be at least 1")
	}
	if c.SocketPath == "" {
		return errors.New("daemonconfig: socket_path is required")
	}
	if c.SettingsPath == "" {
		return errors.New("daemonconfig: settings_path is required")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return errors.New("daemonconfig: log_format must be \"text\" or \"json\"")
	}
	switch c.LogOutput {
	case "stdout", "stderr", "file", "both":
	default:
		return errors.New("daemonconfig: log_output must be one of stdout, stderr, file, both")
	}
	return nil
}

// EnsureDirectories creates every directory this config's paths live in.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.SettingsPath),
		filepath.Dir(c.SocketPath),
		filepath.Dir(c.LogFilePath),
	}
	if c.AuditEnabled {
		dirs = append(dirs, filepath.Dir(c.AuditDatabasePath))
	}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return nil
}
