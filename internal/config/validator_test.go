package config

import (
	"strings"
	"testing"
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

	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "test.field", Value: 123, Message: "is invalid"},
		}
		expected := "test.field: is invalid (got: 123)"
		if errs.Error() != expected {
			t.Errorf("Error() = %q, want %q", errs.Error(), expected)
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

func hasFieldError(errs []ValidationError, field string) bool {
	for _, err := range errs {
		if err.Field == field {
			return true
		}
	}
	return false
}

func TestConfig_Validate_DefaultConfig(t *testing.T) {
	cfg := Default()
	errs := cfg.Validate()
	if len(errs) != 0 {
		t.Errorf("Default config should be valid, got %d errors: %v", len(errs), errs)
	}
}

func TestConfig_Validate_Decompiler(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(*Config)
		field    string
		hasError bool
	}{
		{"empty path is valid here", func(c *Config) { c.Decompiler.Path = "" }, "decompiler.path", false},
		{"debuggable style", func(c *Config) { c.Decompiler.ReformatStyle = "debuggable" }, "decompiler.reformat_style", false},
		{"empty style", func(c *Config) { c.Decompiler.ReformatStyle = "" }, "decompiler.reformat_style", false},
		{"unknown style", func(c *Config) { c.Decompiler.ReformatStyle = "pretty" }, "decompiler.reformat_style", true},
		{"case sensitive style", func(c *Config) { c.Decompiler.ReformatStyle = "Debuggable" }, "decompiler.reformat_style", true},
		{"zero timeout", func(c *Config) { c.Decompiler.TimeoutSeconds = 0 }, "decompiler.timeout_seconds", false},
		{"negative timeout", func(c *Config) { c.Decompiler.TimeoutSeconds = -1 }, "decompiler.timeout_seconds", true},
		{"huge timeout", func(c *Config) { c.Decompiler.TimeoutSeconds = 100000 }, "decompiler.timeout_seconds", true},
		{"dashed flag", func(c *Config) { c.Decompiler.Properties = []Property{{Flag: "-ff"}} }, "decompiler.properties[0].flag", false},
		{"empty flag", func(c *Config) { c.Decompiler.Properties = []Property{{Flag: "ff"}, {Flag: ""}} }, "decompiler.properties[1].flag", true},
		{"bare dash flag", func(c *Config) { c.Decompiler.Properties = []Property{{Flag: "-"}} }, "decompiler.properties[0].flag", true},
		{"flag with space", func(c *Config) { c.Decompiler.Properties = []Property{{Flag: "s java"}} }, "decompiler.properties[0].flag", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if got := hasFieldError(cfg.Validate(), tt.field); got != tt.hasError {
				t.Errorf("Validate() error on %s = %v, want %v", tt.field, got, tt.hasError)
			}
		})
	}
}

func TestConfig_Validate_Output(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(*Config)
		field    string
		hasError bool
	}{
		{"absolute dir", func(c *Config) { c.Output.Directory = "/tmp/out" }, "output.directory", false},
		{"null byte", func(c *Config) { c.Output.Directory = "out\x00dir" }, "output.directory", true},
		{"txt extension", func(c *Config) { c.Output.Extension = "jad" }, "output.extension", false},
		{"empty extension", func(c *Config) { c.Output.Extension = "" }, "output.extension", true},
		{"dotted extension", func(c *Config) { c.Output.Extension = ".java" }, "output.extension", true},
		{"path extension", func(c *Config) { c.Output.Extension = "a/b" }, "output.extension", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if got := hasFieldError(cfg.Validate(), tt.field); got != tt.hasError {
				t.Errorf("Validate() error on %s = %v, want %v", tt.field, got, tt.hasError)
			}
		})
	}
}

func TestConfig_Validate_Exclusions(t *testing.T) {
	cfg := Default()
	cfg.Exclusions = []ExclusionRule{
		{Package: "com.foo", Applies: true, Recursive: true},
		{Package: "  ", Applies: true},
	}
	errs := cfg.Validate()
	if hasFieldError(errs, "exclusions[0].package") {
		t.Error("exclusions[0] should be valid")
	}
	if !hasFieldError(errs, "exclusions[1].package") {
		t.Error("exclusions[1] with a blank package should be rejected")
	}
}

func TestConfig_Validate_Scope(t *testing.T) {
	for _, scope := range []string{"", ScopeProject, ScopeApplication} {
		cfg := Default()
		cfg.Scope = scope
		if hasFieldError(cfg.Validate(), "scope") {
			t.Errorf("scope %q should be valid", scope)
		}
	}
	cfg := Default()
	cfg.Scope = "global"
	if !hasFieldError(cfg.Validate(), "scope") {
		t.Error("scope \"global\" should be rejected")
	}
}

func TestConfig_Validate_Logging(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(*Config)
		field    string
		hasError bool
	}{
		{"debug level", func(c *Config) { c.Logging.Level = "debug" }, "logging.level", false},
		{"uppercase level", func(c *Config) { c.Logging.Level = "DEBUG" }, "logging.level", true},
		{"zero size", func(c *Config) { c.Logging.MaxSizeMB = 0 }, "logging.max_size_mb", true},
		{"huge size", func(c *Config) { c.Logging.MaxSizeMB = 5000 }, "logging.max_size_mb", true},
		{"zero backups", func(c *Config) { c.Logging.MaxBackups = 0 }, "logging.max_backups", false},
		{"negative backups", func(c *Config) { c.Logging.MaxBackups = -1 }, "logging.max_backups", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if got := hasFieldError(cfg.Validate(), tt.field); got != tt.hasError {
				t.Errorf("Validate() error on %s = %v, want %v", tt.field, got, tt.hasError)
			}
		})
	}
}

func TestConfig_Validate_BatchWatchPump(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(*Config)
		field    string
		hasError bool
	}{
		{"one worker", func(c *Config) { c.Batch.MaxParallel = 1 }, "batch.max_parallel", false},
		{"zero workers", func(c *Config) { c.Batch.MaxParallel = 0 }, "batch.max_parallel", true},
		{"too many workers", func(c *Config) { c.Batch.MaxParallel = 65 }, "batch.max_parallel", true},
		{"valid glob", func(c *Config) { c.Batch.Include = []string{"com/**.class", "{a,b}/*.class"} }, "batch.include[1]", false},
		{"broken glob", func(c *Config) { c.Batch.Include = []string{"[a-"} }, "batch.include[0]", true},
		{"zero debounce", func(c *Config) { c.Watch.DebounceMs = 0 }, "watch.debounce_ms", false},
		{"negative debounce", func(c *Config) { c.Watch.DebounceMs = -5 }, "watch.debounce_ms", true},
		{"zero drain", func(c *Config) { c.Pump.DrainTimeoutMs = 0 }, "pump.drain_timeout_ms", false},
		{"negative drain", func(c *Config) { c.Pump.DrainTimeoutMs = -1 }, "pump.drain_timeout_ms", true},
		{"tiny tail", func(c *Config) { c.Pump.TailBytes = 100 }, "pump.tail_bytes", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if got := hasFieldError(cfg.Validate(), tt.field); got != tt.hasError {
				t.Errorf("Validate() error on %s = %v, want %v", tt.field, got, tt.hasError)
			}
		})
	}
}

func TestConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := Default()
	cfg.Decompiler.ReformatStyle = "bogus"
	cfg.Batch.MaxParallel = 0
	cfg.Pump.DrainTimeoutMs = -1

	errs := cfg.Validate()
	if len(errs) != 3 {
		t.Errorf("Validate() returned %d errors, want 3: %v", len(errs), errs)
	}
	msg := ValidationErrors(errs).Error()
	if !strings.Contains(msg, "3 validation errors") {
		t.Errorf("ValidationErrors.Error() = %q", msg)
	}
}
