package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete pyexpl configuration
type Config struct {
	Client  ClientConfig  `mapstructure:"client" yaml:"client"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Sandbox SandboxConfig `mapstructure:"sandbox" yaml:"sandbox"`
	TUI     TUIConfig     `mapstructure:"tui" yaml:"tui"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Paths   PathsConfig   `mapstructure:"paths" yaml:"paths"`
}

// ClientConfig controls how front ends reach the execution backend
type ClientConfig struct {
	// BackendURL is the base URL of the execution backend (POST /run, /share)
	BackendURL string `mapstructure:"backend_url" yaml:"backend_url"`
	// RequestTimeout bounds each HTTP request. Zero means no timeout: a
	// runner whose backend never answers stays pending.
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// StoreConfig controls where the editor text and runner selection persist
type StoreConfig struct {
	// Backend is one of "file", "sqlite", "memory"
	Backend string `mapstructure:"backend" yaml:"backend"`
	// Path overrides the default location (<state>/selection for file,
	// <state>/pyexpl.db for sqlite). Ignored for memory.
	Path string `mapstructure:"path" yaml:"path"`
}

// ServerConfig controls `pyexpl serve`
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
	// DBPath is the sqlite database holding shared sessions (default <state>/shares.db)
	DBPath            string        `mapstructure:"db_path" yaml:"db_path"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
}

// SandboxConfig controls how the backend executes runners
type SandboxConfig struct {
	// MaxOutputBytes caps combined stdout+stderr; overflow is truncated and
	// reported with exit code 143
	MaxOutputBytes int `mapstructure:"max_output_bytes" yaml:"max_output_bytes"`
	// NsjailConfig, when set, prefixes every command with `nsjail -C <cfg> ... -q --`
	NsjailConfig string        `mapstructure:"nsjail_config" yaml:"nsjail_config"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// TUIConfig controls the terminal UI layout
type TUIConfig struct {
	// MinPaneLines is the minimum height of a runner pane
	MinPaneLines int `mapstructure:"min_pane_lines" yaml:"min_pane_lines"`
	// GutterLines separates adjacent runner panes
	GutterLines int `mapstructure:"gutter_lines" yaml:"gutter_lines"`
	// EditorWidthPercent is the share of the terminal width given to the editor
	EditorWidthPercent int  `mapstructure:"editor_width_percent" yaml:"editor_width_percent"`
	Mouse              bool `mapstructure:"mouse" yaml:"mouse"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Level     string `mapstructure:"level" yaml:"level"`
	MaxSizeMB int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
}

// PathsConfig controls where pyexpl keeps its state
type PathsConfig struct {
	// StateDir overrides the state directory (default $XDG_STATE_HOME/pyexpl
	// or ~/.local/state/pyexpl). Supports ~ expansion.
	StateDir string `mapstructure:"state_dir" yaml:"state_dir"`
}

// Store backends
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Client: ClientConfig{
			BackendURL: "http://127.0.0.1:8000",
		},
		Store: StoreConfig{
			Backend: StoreFile,
		},
		Server: ServerConfig{
			Addr:              ":8000",
			ReadHeaderTimeout: 5 * time.Second,
		},
		Sandbox: SandboxConfig{
			MaxOutputBytes: 10000,
			Timeout:        30 * time.Second,
		},
		TUI: TUIConfig{
			MinPaneLines:       4,
			GutterLines:        1,
			EditorWidthPercent: 50,
			Mouse:              true,
		},
		Logging: LoggingConfig{
			Enabled:   true,
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("client.backend_url", defaults.Client.BackendURL)
	viper.SetDefault("client.request_timeout", defaults.Client.RequestTimeout)

	viper.SetDefault("store.backend", defaults.Store.Backend)
	viper.SetDefault("store.path", defaults.Store.Path)

	viper.SetDefault("server.addr", defaults.Server.Addr)
	viper.SetDefault("server.db_path", defaults.Server.DBPath)
	viper.SetDefault("server.read_header_timeout", defaults.Server.ReadHeaderTimeout)

	viper.SetDefault("sandbox.max_output_bytes", defaults.Sandbox.MaxOutputBytes)
	viper.SetDefault("sandbox.nsjail_config", defaults.Sandbox.NsjailConfig)
	viper.SetDefault("sandbox.timeout", defaults.Sandbox.Timeout)

	viper.SetDefault("tui.min_pane_lines", defaults.TUI.MinPaneLines)
	viper.SetDefault("tui.gutter_lines", defaults.TUI.GutterLines)
	viper.SetDefault("tui.editor_width_percent", defaults.TUI.EditorWidthPercent)
	viper.SetDefault("tui.mouse", defaults.TUI.Mouse)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)

	viper.SetDefault("paths.state_dir", defaults.Paths.StateDir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults if
// unmarshaling or validation fails
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "pyexpl")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pyexpl"
	}
	return filepath.Join(home, ".config", "pyexpl")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// StateDir returns the resolved state directory.
func (c *Config) StateDir() string {
	if c.Paths.StateDir != "" {
		return expandHome(c.Paths.StateDir)
	}
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "pyexpl")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pyexpl"
	}
	return filepath.Join(home, ".local", "state", "pyexpl")
}

// StorePath returns the location of the selection store for the configured
// backend. It is empty for the memory backend.
func (c *Config) StorePath() string {
	if c.Store.Backend == StoreMemory {
		return ""
	}
	if c.Store.Path != "" {
		return expandHome(c.Store.Path)
	}
	if c.Store.Backend == StoreSQLite {
		return filepath.Join(c.StateDir(), "pyexpl.db")
	}
	return filepath.Join(c.StateDir(), "selection")
}

// ShareDBPath returns the sqlite path of the server's shared-session store.
func (c *Config) ShareDBPath() string {
	if c.Server.DBPath != "" {
		return expandHome(c.Server.DBPath)
	}
	return filepath.Join(c.StateDir(), "shares.db")
}

// LogPath returns the debug log file path.
func (c *Config) LogPath() string {
	return filepath.Join(c.StateDir(), "pyexpl.log")
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return path
}

// ValidStoreBackends returns the list of valid store.backend values
func ValidStoreBackends() []string {
	return []string{StoreFile, StoreSQLite, StoreMemory}
}
