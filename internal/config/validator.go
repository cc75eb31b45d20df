package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "sandbox.max_output_bytes")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateClient()...)
	errors = append(errors, c.validateStore()...)
	errors = append(errors, c.validateServer()...)
	errors = append(errors, c.validateSandbox()...)
	errors = append(errors, c.validateTUI()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validatePaths()...)

	return errors
}

func (c *Config) validateClient() []ValidationError {
	var errors []ValidationError

	u, err := url.Parse(c.Client.BackendURL)
	if c.Client.BackendURL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "client.backend_url",
			Value:   c.Client.BackendURL,
			Message: "must be an absolute http(s) URL",
		})
	}

	if c.Client.RequestTimeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "client.request_timeout",
			Value:   c.Client.RequestTimeout,
			Message: "must be non-negative (0 disables the timeout)",
		})
	}

	return errors
}

func (c *Config) validateStore() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidStoreBackends(), c.Store.Backend) {
		errors = append(errors, ValidationError{
			Field:   "store.backend",
			Value:   c.Store.Backend,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidStoreBackends(), ", ")),
		})
	}

	if strings.ContainsRune(c.Store.Path, '\x00') {
		errors = append(errors, ValidationError{
			Field:   "store.path",
			Value:   c.Store.Path,
			Message: "path contains invalid null character",
		})
	}

	return errors
}

func (c *Config) validateServer() []ValidationError {
	var errors []ValidationError

	if c.Server.Addr == "" {
		errors = append(errors, ValidationError{
			Field:   "server.addr",
			Value:   c.Server.Addr,
			Message: "must not be empty",
		})
	}

	if c.Server.ReadHeaderTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "server.read_header_timeout",
			Value:   c.Server.ReadHeaderTimeout,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validateSandbox() []ValidationError {
	var errors []ValidationError

	if c.Sandbox.MaxOutputBytes <= 0 {
		errors = append(errors, ValidationError{
			Field:   "sandbox.max_output_bytes",
			Value:   c.Sandbox.MaxOutputBytes,
			Message: "must be positive",
		})
	}

	if c.Sandbox.Timeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "sandbox.timeout",
			Value:   c.Sandbox.Timeout,
			Message: "must be non-negative (0 disables the timeout)",
		})
	}

	return errors
}

func (c *Config) validateTUI() []ValidationError {
	var errors []ValidationError

	if c.TUI.MinPaneLines < 1 {
		errors = append(errors, ValidationError{
			Field:   "tui.min_pane_lines",
			Value:   c.TUI.MinPaneLines,
			Message: "must be at least 1",
		})
	}

	if c.TUI.GutterLines < 0 || c.TUI.GutterLines > 5 {
		errors = append(errors, ValidationError{
			Field:   "tui.gutter_lines",
			Value:   c.TUI.GutterLines,
			Message: "must be between 0 and 5",
		})
	}

	if c.TUI.EditorWidthPercent < 20 || c.TUI.EditorWidthPercent > 80 {
		errors = append(errors, ValidationError{
			Field:   "tui.editor_width_percent",
			Value:   c.TUI.EditorWidthPercent,
			Message: "must be between 20 and 80",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	const maxLogSizeMB = 1000
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	return errors
}

func (c *Config) validatePaths() []ValidationError {
	var errors []ValidationError

	path := c.Paths.StateDir
	if path == "" {
		return nil
	}
	if strings.ContainsRune(path, '\x00') {
		errors = append(errors, ValidationError{
			Field:   "paths.state_dir",
			Value:   path,
			Message: "path contains invalid null character",
		})
	}
	const maxPathLength = 4096
	if len(path) > maxPathLength {
		errors = append(errors, ValidationError{
			Field:   "paths.state_dir",
			Value:   path,
			Message: fmt.Sprintf("path exceeds maximum length of %d characters", maxPathLength),
		})
	}

	return errors
}
