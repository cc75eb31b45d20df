// Package cmd holds the pyexpl cobra commands.
package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/pyexpl/internal/client"
	"github.com/Iron-Ham/pyexpl/internal/config"
	"github.com/Iron-Ham/pyexpl/internal/logging"
	"github.com/Iron-Ham/pyexpl/internal/store"
)

var rootCmd = newRootCmd()

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
}

// newRootCmd assembles the command tree. Tests build a fresh tree per run so
// flag values never leak between executions.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pyexpl",
		Short: "Multi-runner Python playground for the terminal",
		Long: `pyexpl runs the code in its editor on several Python versions, type
checkers and linters at once, with one output pane per runner.

The same binary hosts the execution backend (pyexpl serve) and headless
front ends for scripts and editors (pyexpl run, pyexpl watch).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	root.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/pyexpl/config.yaml)")
	_ = viper.BindPFlag("config", root.PersistentFlags().Lookup("config"))

	root.AddCommand(
		newStartCmd(),
		newRunCmd(),
		newWatchCmd(),
		newServeCmd(),
		newShareCmd(),
		newRunnersCmd(),
		newConfigCmd(),
	)
	return root
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("PYEXPL")
	// Replace dots with underscores for nested keys in env vars
	// e.g., PYEXPL_CLIENT_BACKEND_URL for client.backend_url
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// loadConfig returns the validated configuration. Unlike config.Get it
// reports validation problems instead of silently using defaults.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger opens the debug log. Interactive commands log to the state
// directory; serve passes toStderr.
func newLogger(cfg *config.Config, toStderr bool) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	opts := logging.Options{
		Level:     cfg.Logging.Level,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
	}
	if !toStderr {
		opts.Path = cfg.LogPath()
	}
	return logging.NewLogger(opts)
}

// openSelection opens the configured key/value store and wraps it in a
// Selection. The closer must be called on exit.
func openSelection(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*store.Selection, io.Closer, error) {
	kv, closer, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return store.NewSelection(kv, logger), closer, nil
}

func newClient(cfg *config.Config) *client.Client {
	return client.New(cfg.Client.BackendURL, cfg.Client.RequestTimeout)
}
