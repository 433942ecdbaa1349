package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "decompiler.reformat_style")
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

// Validate checks the Config for invalid values and returns all validation errors found.
//
// The decompiler path is deliberately not checked here: a missing or broken
// path is recoverable through reconfiguration and is reported by envcheck.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateDecompiler()...)
	errors = append(errors, c.validateOutput()...)
	errors = append(errors, c.validateExclusions()...)
	errors = append(errors, c.validateScope()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateBatch()...)
	errors = append(errors, c.validateWatch()...)
	errors = append(errors, c.validatePump()...)

	return errors
}

// validateDecompiler validates the DecompilerConfig
func (c *Config) validateDecompiler() []ValidationError {
	var errors []ValidationError

	if c.Decompiler.ReformatStyle != "" && !slices.Contains(ValidReformatStyles(), c.Decompiler.ReformatStyle) {
		errors = append(errors, ValidationError{
			Field:   "decompiler.reformat_style",
			Value:   c.Decompiler.ReformatStyle,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidReformatStyles(), ", ")),
		})
	}

	if c.Decompiler.TimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "decompiler.timeout_seconds",
			Value:   c.Decompiler.TimeoutSeconds,
			Message: "must be non-negative",
		})
	}

	const maxTimeoutSeconds = 24 * 60 * 60
	if c.Decompiler.TimeoutSeconds > maxTimeoutSeconds {
		errors = append(errors, ValidationError{
			Field:   "decompiler.timeout_seconds",
			Value:   c.Decompiler.TimeoutSeconds,
			Message: fmt.Sprintf("exceeds maximum of %d", maxTimeoutSeconds),
		})
	}

	for i, p := range c.Decompiler.Properties {
		field := fmt.Sprintf("decompiler.properties[%d].flag", i)
		flag := strings.TrimPrefix(p.Flag, "-")
		switch {
		case flag == "":
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   p.Flag,
				Message: "cannot be empty",
			})
		case strings.ContainsAny(flag, " \t\r\n"):
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   p.Flag,
				Message: "cannot contain whitespace",
			})
		}
	}

	return errors
}

// validateOutput validates the OutputConfig
func (c *Config) validateOutput() []ValidationError {
	var errors []ValidationError

	if strings.ContainsRune(c.Output.Directory, '\x00') {
		errors = append(errors, ValidationError{
			Field:   "output.directory",
			Value:   c.Output.Directory,
			Message: "contains invalid null character",
		})
	}

	ext := c.Output.Extension
	switch {
	case ext == "":
		errors = append(errors, ValidationError{
			Field:   "output.extension",
			Value:   ext,
			Message: "cannot be empty",
		})
	case strings.ContainsAny(ext, `./\ `):
		errors = append(errors, ValidationError{
			Field:   "output.extension",
			Value:   ext,
			Message: "must be a bare extension such as \"java\"",
		})
	}

	return errors
}

// validateExclusions validates the exclusion rules
func (c *Config) validateExclusions() []ValidationError {
	var errors []ValidationError

	for i, rule := range c.Exclusions {
		if strings.TrimSpace(rule.Package) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("exclusions[%d].package", i),
				Value:   rule.Package,
				Message: "cannot be empty",
			})
		}
	}

	return errors
}

func (c *Config) validateScope() []ValidationError {
	if c.Scope == "" || slices.Contains(ValidScopes(), c.Scope) {
		return nil
	}
	return []ValidationError{{
		Field:   "scope",
		Value:   c.Scope,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidScopes(), ", ")),
	}}
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Validate log level
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	// Max size must be positive
	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	// Reasonable upper bound for log file size
	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	// Max backups must be non-negative
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateBatch validates the BatchConfig
func (c *Config) validateBatch() []ValidationError {
	var errors []ValidationError

	const maxParallelLimit = 64
	if c.Batch.MaxParallel < 1 || c.Batch.MaxParallel > maxParallelLimit {
		errors = append(errors, ValidationError{
			Field:   "batch.max_parallel",
			Value:   c.Batch.MaxParallel,
			Message: fmt.Sprintf("must be between 1 and %d", maxParallelLimit),
		})
	}

	for i, pattern := range c.Batch.Include {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("batch.include[%d]", i),
				Value:   pattern,
				Message: fmt.Sprintf("invalid glob: %v", err),
			})
		}
	}

	return errors
}

func (c *Config) validateWatch() []ValidationError {
	const maxDebounceMs = 60000
	if c.Watch.DebounceMs < 0 || c.Watch.DebounceMs > maxDebounceMs {
		return []ValidationError{{
			Field:   "watch.debounce_ms",
			Value:   c.Watch.DebounceMs,
			Message: fmt.Sprintf("must be between 0 and %d", maxDebounceMs),
		}}
	}
	return nil
}

// validatePump validates the PumpConfig
func (c *Config) validatePump() []ValidationError {
	var errors []ValidationError

	if c.Pump.DrainTimeoutMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "pump.drain_timeout_ms",
			Value:   c.Pump.DrainTimeoutMs,
			Message: "must be non-negative",
		})
	}

	// The stderr tail must hold at least one pump chunk.
	const minTailBytes = 512
	if c.Pump.TailBytes < minTailBytes {
		errors = append(errors, ValidationError{
			Field:   "pump.tail_bytes",
			Value:   c.Pump.TailBytes,
			Message: fmt.Sprintf("must be at least %d", minTailBytes),
		})
	}

	return errors
}
