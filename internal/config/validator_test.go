package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "test.field",
		Value:   123,
		Message: "must be greater than zero",
	}

	expected := "test.field: must be greater than zero (got: 123)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty errors", func(t *testing.T) {
		var errs ValidationErrors
		if errs.Error() != "" {
			t.Errorf("Error() for empty = %q, want empty string", errs.Error())
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "field1", Value: "bad", Message: "is invalid"},
			{Field: "field2", Value: -1, Message: "must be positive"},
		}
		result := errs.Error()
		if !strings.Contains(result, "2 validation errors") {
			t.Errorf("Error() should mention 2 errors: %s", result)
		}
		if !strings.Contains(result, "field1") || !strings.Contains(result, "field2") {
			t.Errorf("Error() should mention both fields: %s", result)
		}
	})
}

func TestConfig_Validate_DefaultConfig(t *testing.T) {
	if errs := Default().Validate(); len(errs) != 0 {
		t.Errorf("default config should be valid, got: %v", ValidationErrors(errs))
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty backend url", func(c *Config) { c.Client.BackendURL = "" }, "client.backend_url"},
		{"relative backend url", func(c *Config) { c.Client.BackendURL = "/run" }, "client.backend_url"},
		{"ftp backend url", func(c *Config) { c.Client.BackendURL = "ftp://host" }, "client.backend_url"},
		{"negative request timeout", func(c *Config) { c.Client.RequestTimeout = -time.Second }, "client.request_timeout"},
		{"unknown store", func(c *Config) { c.Store.Backend = "redis" }, "store.backend"},
		{"null in store path", func(c *Config) { c.Store.Path = "a\x00b" }, "store.path"},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"zero header timeout", func(c *Config) { c.Server.ReadHeaderTimeout = 0 }, "server.read_header_timeout"},
		{"zero output cap", func(c *Config) { c.Sandbox.MaxOutputBytes = 0 }, "sandbox.max_output_bytes"},
		{"negative sandbox timeout", func(c *Config) { c.Sandbox.Timeout = -1 }, "sandbox.timeout"},
		{"zero pane lines", func(c *Config) { c.TUI.MinPaneLines = 0 }, "tui.min_pane_lines"},
		{"huge gutter", func(c *Config) { c.TUI.GutterLines = 9 }, "tui.gutter_lines"},
		{"narrow editor", func(c *Config) { c.TUI.EditorWidthPercent = 10 }, "tui.editor_width_percent"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"zero log size", func(c *Config) { c.Logging.MaxSizeMB = 0 }, "logging.max_size_mb"},
		{"huge log size", func(c *Config) { c.Logging.MaxSizeMB = 5000 }, "logging.max_size_mb"},
		{"null in state dir", func(c *Config) { c.Paths.StateDir = "x\x00" }, "paths.state_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()
			if len(errs) != 1 {
				t.Fatalf("Validate() returned %d errors, want 1: %v", len(errs), ValidationErrors(errs))
			}
			if errs[0].Field != tt.field {
				t.Errorf("Field = %q, want %q", errs[0].Field, tt.field)
			}
		})
	}
}

func TestConfig_Validate_AcceptsEdgeValues(t *testing.T) {
	cfg := Default()
	cfg.Client.BackendURL = "https://pyexpl.example.com/api"
	cfg.Store.Backend = StoreMemory
	cfg.TUI.GutterLines = 0
	cfg.TUI.EditorWidthPercent = 80
	cfg.Sandbox.Timeout = 0
	cfg.Logging.Level = ""

	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("expected valid config, got: %v", ValidationErrors(errs))
	}
}
