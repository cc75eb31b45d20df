package cmd

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/pyexpl/internal/config"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "View or modify pyexpl configuration",
		Long: `View or modify pyexpl configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
		RunE: runConfigShow,
	}

	configCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show current configuration",
			RunE:  runConfigShow,
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set a configuration value",
			Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  pyexpl config set client.backend_url http://localhost:8000
  pyexpl config set store.backend sqlite
  pyexpl config set sandbox.timeout 10s

Valid keys:
` + validKeysHelp(),
			Args: cobra.ExactArgs(2),
			RunE: runConfigSet,
		},
		&cobra.Command{
			Use:   "init",
			Short: "Create a default config file",
			Long:  `Create a default config file at ~/.config/pyexpl/config.yaml with all available options.`,
			RunE:  runConfigInit,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Show the config file path",
			RunE:  runConfigPath,
		},
	)
	return configCmd
}

type configKey struct {
	kind string // string, bool, int or duration
	help string
}

var validKeys = map[string]configKey{
	"client.backend_url":         {"string", "Execution backend base URL"},
	"client.request_timeout":     {"duration", "Per-request timeout, 0 for none"},
	"store.backend":              {"string", "Session store: " + strings.Join(config.ValidStoreBackends(), ", ")},
	"store.path":                 {"string", "Session store location"},
	"server.addr":                {"string", "Listen address for pyexpl serve"},
	"server.db_path":             {"string", "Shared session database"},
	"server.read_header_timeout": {"duration", "HTTP read header timeout"},
	"sandbox.max_output_bytes":   {"int", "Output kept per run"},
	"sandbox.nsjail_config":      {"string", "nsjail config; empty runs unsandboxed"},
	"sandbox.timeout":            {"duration", "Wall clock limit per run"},
	"tui.min_pane_lines":         {"int", "Minimum output pane height"},
	"tui.gutter_lines":           {"int", "Lines between output panes"},
	"tui.editor_width_percent":   {"int", "Editor share of the screen width"},
	"tui.mouse":                  {"bool", "Enable mouse support (true/false)"},
	"logging.enabled":            {"bool", "Write the debug log (true/false)"},
	"logging.level":              {"string", "Log level: " + strings.Join(config.ValidLogLevels(), ", ")},
	"logging.max_size_mb":        {"int", "Rotate the log at this size"},
	"paths.state_dir":            {"string", "Directory for the log and session store"},
}

func validKeysHelp() string {
	keys := make([]string, 0, len(validKeys))
	for k := range validKeys {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "  %-28s - %s\n", k, validKeys[k].help)
	}
	return strings.TrimRight(b.String(), "\n")
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintln(out)
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintln(out, "Config file: (none - using defaults)")
	}
	fmt.Fprintln(out)

	settings := viper.AllSettings()
	delete(settings, "config")
	data, err := yaml.Marshal(displayable(settings))
	if err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}
	_, err = out.Write(data)
	return err
}

// displayable renders durations the way they are written in the config file.
func displayable(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = displayable(val)
		}
		return out
	case time.Duration:
		return v.String()
	default:
		return v
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	spec, ok := validKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'pyexpl config set --help' to see valid keys", key)
	}

	var typedValue any
	switch spec.kind {
	case "string":
		typedValue = value
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = b
	case "int":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		typedValue = n
	case "duration":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected a duration such as 30s", key)
		}
		typedValue = d.String()
	}

	previous := viper.Get(key)
	viper.Set(key, typedValue)
	if _, err := config.Load(); err != nil {
		viper.Set(key, previous)
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	if err := os.MkdirAll(config.ConfigDir(), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = config.ConfigFile()
	}
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	configFile := config.ConfigFile()
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'pyexpl config set' to modify values", configFile)
	}
	if err := os.MkdirAll(config.ConfigDir(), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configFile, []byte(defaultConfigFile(config.Default())), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	fmt.Fprintln(out, "Edit this file to customize pyexpl.")
	return nil
}

func defaultConfigFile(d *config.Config) string {
	return fmt.Sprintf(`# pyexpl configuration

# Where the playground sends code
client:
  backend_url: %s
  # Per-request timeout; 0 waits for the backend
  request_timeout: %s

# Where the editor text and open runners are kept between sessions
# Options: %s
store:
  backend: %s
  # Defaults to a location under paths.state_dir
  path: ""

# pyexpl serve
server:
  addr: %q
  db_path: ""
  read_header_timeout: %s

# How pyexpl serve (and run --local) executes code
sandbox:
  max_output_bytes: %d
  # nsjail config file; empty runs runners as plain processes
  nsjail_config: ""
  timeout: %s

tui:
  min_pane_lines: %d
  gutter_lines: %d
  editor_width_percent: %d
  mouse: %t

logging:
  enabled: %t
  # Options: %s
  level: %s
  max_size_mb: %d

paths:
  # Defaults to $XDG_STATE_HOME/pyexpl
  state_dir: ""
`,
		d.Client.BackendURL, d.Client.RequestTimeout,
		strings.Join(config.ValidStoreBackends(), ", "), d.Store.Backend,
		d.Server.Addr, d.Server.ReadHeaderTimeout,
		d.Sandbox.MaxOutputBytes, d.Sandbox.Timeout,
		d.TUI.MinPaneLines, d.TUI.GutterLines, d.TUI.EditorWidthPercent, d.TUI.Mouse,
		d.Logging.Enabled, strings.Join(config.ValidLogLevels(), ", "), d.Logging.Level, d.Logging.MaxSizeMB,
	)
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", config.ConfigFile())
	}

	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", config.ConfigFile())
	fmt.Fprintln(out, "  2. ./config.yaml (current directory)")
	fmt.Fprintln(out, "\nEnvironment variables: PYEXPL_* (e.g., PYEXPL_CLIENT_BACKEND_URL)")
	return nil
}
