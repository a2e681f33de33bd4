package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"toast/internal/notify"
)

// DaemonConfig is the configuration for toastd.
// Loaded from ~/.config/toast/toastd.toml
type DaemonConfig struct {
	Display   DisplayConfig   `toml:"display"`
	Timeouts  TimeoutConfig   `toml:"timeouts"`
	Animation AnimationConfig `toml:"animation"`
	Behavior  BehaviorConfig  `toml:"behavior"`
	Theme     ThemeConfig     `toml:"theme"`
	Audio     AudioConfig     `toml:"audio"`
	History   HistoryConfig   `toml:"history"`
	DnD       DnDConfig       `toml:"dnd"`
	Logging   LoggingConfig   `toml:"logging"`
}

// DisplayConfig contains display-related settings.
type DisplayConfig struct {
	Backend    string `toml:"backend"`     // "auto", "x11", "layershell"
	Position   string `toml:"position"`    // "bottom-right", "top-left", etc.
	Width      int    `toml:"width"`       // Popup width in pixels
	MaxVisible int    `toml:"max_visible"` // Maximum simultaneous popups, 0 = unlimited
	Monitor    int    `toml:"monitor"`     // 0 = primary, 1+ = specific monitor
}

// TimeoutConfig contains timeout settings per urgency level.
// Durations can be specified as "5s", "10s", "1m", etc. or as integer milliseconds.
// A value of "0" or 0 means never expire.
type TimeoutConfig struct {
	Low      Duration `toml:"low"`      // e.g., "5s", "1m", or 5000
	Normal   Duration `toml:"normal"`   // e.g., "5s", "1m", or 5000
	Critical Duration `toml:"critical"` // e.g., "0" for never expire
}

// AnimationConfig contains animation timing settings.
type AnimationConfig struct {
	Fade   Duration `toml:"fade"`   // Opacity fade on hide
	Reflow Duration `toml:"reflow"` // Stack reposition transition
}

// BehaviorConfig contains behavior settings.
type BehaviorConfig struct {
	StackDuplicates bool `toml:"stack_duplicates"` // Combine identical notifications
	ShowCount       bool `toml:"show_count"`       // Show "(2)" for stacked duplicates
}

// ThemeConfig contains theme settings.
type ThemeConfig struct {
	ColorScheme     string `toml:"color_scheme"`      // "system", "light", or "dark"
	ShowCloseButton bool   `toml:"show_close_button"` // Render a close button on popups
}

// ColorScheme represents the color scheme preference.
type ColorScheme string

const (
	ColorSchemeSystem ColorScheme = "system"
	ColorSchemeLight  ColorScheme = "light"
	ColorSchemeDark   ColorScheme = "dark"
)

// ValidColorSchemes returns all valid color scheme values.
func ValidColorSchemes() []ColorScheme {
	return []ColorScheme{ColorSchemeSystem, ColorSchemeLight, ColorSchemeDark}
}

// AudioConfig contains audio settings.
type AudioConfig struct {
	Enabled bool       `toml:"enabled"`
	Volume  int        `toml:"volume"` // 0-100
	Sounds  SoundFiles `toml:"sounds"`
}

// SoundFiles contains per-urgency sound file paths.
type SoundFiles struct {
	Low      string `toml:"low"`
	Normal   string `toml:"normal"`
	Critical string `toml:"critical"`
}

// HistoryConfig contains notification history settings.
type HistoryConfig struct {
	Enabled    bool   `toml:"enabled"`
	Path       string `toml:"path"`        // Empty = XDG state directory
	MaxEntries int    `toml:"max_entries"` // 0 = unlimited
}

// DnDConfig contains Do Not Disturb settings.
type DnDConfig struct {
	Enabled        bool `toml:"enabled"`         // Initial state
	CriticalBypass bool `toml:"critical_bypass"` // Show critical even in DnD mode
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `toml:"level"`  // "debug", "info", "warn", "error"
	Format string `toml:"format"` // "text" or "json"
}

// SlogLevel returns the slog level for the configured level string.
// Unknown values fall back to info.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Display backends.
const (
	BackendAuto       = "auto"
	BackendX11        = "x11"
	BackendLayerShell = "layershell"
)

// ValidBackends returns all valid display backend values.
func ValidBackends() []string {
	return []string{BackendAuto, BackendX11, BackendLayerShell}
}

// DefaultDaemonConfig returns a new DaemonConfig with default values.
func DefaultDaemonConfig() *DaemonConfig {
	return &DaemonConfig{
		Display: DisplayConfig{
			Backend:    BackendAuto,
			Position:   string(notify.DefaultPosition),
			Width:      400,
			MaxVisible: 0, // Unlimited
			Monitor:    0,
		},
		Timeouts: TimeoutConfig{
			Low:      Duration(5 * time.Second),
			Normal:   Duration(5 * time.Second),
			Critical: Duration(0), // Never expires
		},
		Animation: AnimationConfig{
			Fade:   Duration(500 * time.Millisecond),
			Reflow: Duration(350 * time.Millisecond),
		},
		Behavior: BehaviorConfig{
			StackDuplicates: true,
			ShowCount:       true,
		},
		Theme: ThemeConfig{
			ColorScheme:     string(ColorSchemeSystem),
			ShowCloseButton: true,
		},
		Audio: AudioConfig{
			Enabled: true,
			Volume:  80,
			Sounds:  SoundFiles{},
		},
		History: HistoryConfig{
			Enabled:    true,
			Path:       "",
			MaxEntries: 1000,
		},
		DnD: DnDConfig{
			Enabled:        false,
			CriticalBypass: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DaemonConfigPath returns the path to the daemon config file.
func DaemonConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "toast", "toastd.toml"), nil
}

// LoadDaemonConfig loads the daemon configuration from the given path.
// If the file doesn't exist, returns the default configuration.
func LoadDaemonConfig(path string) (*DaemonConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultDaemonConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	cfg := DefaultDaemonConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SaveDaemonConfig saves the daemon configuration to the given path.
func SaveDaemonConfig(cfg *DaemonConfig, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *DaemonConfig) Validate() error {
	validBackend := false
	for _, b := range ValidBackends() {
		if c.Display.Backend == b {
			validBackend = true
			break
		}
	}
	if !validBackend {
		return fmt.Errorf("invalid backend %q, must be one of: %v", c.Display.Backend, ValidBackends())
	}

	if _, err := notify.ParsePosition(c.Display.Position); err != nil {
		return fmt.Errorf("invalid position %q, must be one of: %v", c.Display.Position, notify.Positions())
	}

	if c.Display.Width < 100 || c.Display.Width > 1000 {
		return fmt.Errorf("width must be between 100 and 1000, got %d", c.Display.Width)
	}
	if c.Display.MaxVisible < 0 || c.Display.MaxVisible > 50 {
		return fmt.Errorf("max_visible must be between 0 and 50, got %d", c.Display.MaxVisible)
	}
	if c.Display.Monitor < 0 {
		return fmt.Errorf("monitor must be >= 0, got %d", c.Display.Monitor)
	}

	if c.Animation.Fade < 0 || c.Animation.Reflow < 0 {
		return fmt.Errorf("animation durations must not be negative")
	}

	validScheme := false
	for _, s := range ValidColorSchemes() {
		if c.Theme.ColorScheme == string(s) {
			validScheme = true
			break
		}
	}
	if !validScheme {
		return fmt.Errorf("invalid color_scheme %q, must be one of: %v", c.Theme.ColorScheme, ValidColorSchemes())
	}

	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}

	if c.History.MaxEntries < 0 {
		return fmt.Errorf("max_entries must be >= 0, got %d", c.History.MaxEntries)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q, must be text or json", c.Logging.Format)
	}

	return nil
}

// TimeoutForUrgency returns the configured display duration for the given
// urgency level. Zero means the notification never expires.
func (c *DaemonConfig) TimeoutForUrgency(urgency notify.Urgency) time.Duration {
	switch urgency {
	case notify.UrgencyLow:
		return c.Timeouts.Low.Duration()
	case notify.UrgencyCritical:
		return c.Timeouts.Critical.Duration()
	default:
		return c.Timeouts.Normal.Duration()
	}
}

// SoundForUrgency returns the sound file path for the given urgency level.
// Expands ~ to home directory.
func (c *DaemonConfig) SoundForUrgency(urgency notify.Urgency) string {
	var path string
	switch urgency {
	case notify.UrgencyLow:
		path = c.Audio.Sounds.Low
	case notify.UrgencyCritical:
		path = c.Audio.Sounds.Critical
	default:
		path = c.Audio.Sounds.Normal
	}
	return expandPath(path)
}

// HistoryFilePath returns the configured history path, falling back to the
// XDG state directory.
func (c *DaemonConfig) HistoryFilePath() string {
	if c.History.Path != "" {
		return expandPath(c.History.Path)
	}
	return HistoryPath()
}

// Dark reports whether popups should render with a dark color scheme.
func (c *DaemonConfig) Dark() bool {
	return c.Theme.ColorScheme == string(ColorSchemeDark)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
