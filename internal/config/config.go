// Package config handles configuration file loading and parsing for the
// toast CLI and the toastd daemon.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "500ms", "5s", "1m", or integer milliseconds for
// backwards compatibility. A value of "0" or 0 means disabled / never expire.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	// Try parsing as integer (milliseconds) for backwards compatibility
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '500ms', '5s', '1m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Milliseconds returns the duration in milliseconds.
func (d Duration) Milliseconds() int {
	return int(time.Duration(d).Milliseconds())
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default CLI configuration values.
const (
	DefaultAppName      = "toast"
	DefaultOutputFormat = "table"
	DefaultOutputColor  = "auto"
)

// Config represents the toast CLI configuration.
type Config struct {
	Send    SendConfig    `toml:"send"`
	Output  OutputConfig  `toml:"output"`
	Monitor MonitorConfig `toml:"monitor"`
}

// SendConfig holds defaults applied by the send command.
type SendConfig struct {
	AppName  string `toml:"app_name"` // Application name reported to the daemon
	Urgency  string `toml:"urgency"`  // low, normal, critical
	Position string `toml:"position"` // Empty = daemon default
	Timeout  string `toml:"timeout"`  // e.g. "5s", "0" = sticky, empty = daemon default
}

// OutputConfig holds output formatting settings for history and status commands.
type OutputConfig struct {
	Format string `toml:"format"` // table, json, yaml
	Color  string `toml:"color"`  // auto, always, never
}

// MonitorConfig holds settings for the monitor TUI.
type MonitorConfig struct {
	ClipboardCommand string `toml:"clipboard_command"` // Empty = auto-detect wl-copy/xclip/xsel
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Send: SendConfig{
			AppName: DefaultAppName,
			Urgency: "normal",
		},
		Output: OutputConfig{
			Format: DefaultOutputFormat,
			Color:  DefaultOutputColor,
		},
	}
}

// ConfigPath returns the path to the CLI config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "toast", "config.toml")
}

// LoadConfig loads the CLI configuration from the given path.
// An empty path means the default location; a missing file returns
// the default configuration.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// stateDir returns the base directory for runtime state files.
// Uses XDG_STATE_HOME if set, otherwise ~/.local/state.
func stateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state")
}

// HistoryPath returns the path to the notification history file.
func HistoryPath() string {
	return filepath.Join(stateDir(), "toast", "history.jsonl")
}

// DnDStatePath returns the path to the do-not-disturb state file.
func DnDStatePath() string {
	return filepath.Join(stateDir(), "toast", "dnd")
}

// LockPath returns the path to the daemon's single-instance lock file.
// Uses XDG_RUNTIME_DIR if set, otherwise the system temp directory.
func LockPath() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "toastd.lock")
}
