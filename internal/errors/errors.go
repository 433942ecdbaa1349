// Package errors provides centralized error definitions and error handling utilities
// for jdecomp. It defines domain-specific errors, sentinel errors, error
// constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// Domain-specific errors represent failures of one stage of a decompilation:
//   - ConfigError: the decompiler executable is missing or misconfigured
//   - FileSystemError: the output tree or a temporary file could not be written
//   - DecompileError: the external process failed or produced nothing
//   - TimeoutError: the external process exceeded its configured time bound
//
// An excluded class is not an error. The orchestrator reports it as a
// skipped result instead.
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewConfigError("decompiler not found", errors.ErrPathNotFound).
//		WithPath("/opt/jad/jad")
//
//	err := errors.NewDecompileError("decompiler exited with an error", errors.ErrProcessFailed).
//		WithClass("com.example.Foo").WithExitCode(1).WithStderr(tail)
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrPathNotFound) { ... }
//
//	var decompErr *errors.DecompileError
//	if errors.As(err, &decompErr) { ... }
//
// # Retries
//
// Nothing in the decompilation core is retried automatically. Every failure
// is reported once and left to the caller, so no error type in this package
// reports itself as retryable.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Configuration sentinel errors
var (
	// ErrUnspecifiedPath indicates that no decompiler executable was configured.
	ErrUnspecifiedPath = New("decompiler path not specified")
	// ErrPathNotFound indicates that the configured executable does not exist.
	ErrPathNotFound = New("decompiler path does not exist")
	// ErrNotRegularFile indicates that the configured executable is not a regular file.
	ErrNotRegularFile = New("decompiler path is not a regular file")
	// ErrValidationCancelled indicates that the user aborted reconfiguration.
	ErrValidationCancelled = New("configuration validation cancelled")
)

// Filesystem sentinel errors
var (
	// ErrOutputDir indicates that the output directory is missing or could not be created.
	ErrOutputDir = New("output directory unavailable")
	// ErrWriteOutput indicates that decompiled source could not be written.
	ErrWriteOutput = New("failed to write output")
	// ErrExtract indicates that a class could not be extracted from an archive.
	ErrExtract = New("failed to extract class")
)

// Process sentinel errors
var (
	// ErrLaunch indicates that the decompiler process could not be started.
	ErrLaunch = New("failed to launch decompiler")
	// ErrProcessFailed indicates that the decompiler exited with a non-zero code.
	ErrProcessFailed = New("decompiler exited with an error")
	// ErrNoOutput indicates that the decompiler exited cleanly but produced no source.
	ErrNoOutput = New("decompiler produced no output")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// DecompError is the base interface for all jdecomp errors.
type DecompError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

type baseError struct {
	message    string
	cause      error
	severity   Severity
	userFacing bool
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *baseError) Unwrap() error {
	return e.cause
}

func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

func (e *baseError) Severity() Severity {
	return e.severity
}

func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// format renders "<kind> [k=v, ...]: message: cause".
func (e *baseError) format(kind string, parts []string) string {
	prefix := kind
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", kind, strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// ConfigError represents a problem with the decompiler configuration.
//
// Example:
//
//	err := errors.NewConfigError("decompiler not found", errors.ErrPathNotFound)
//	err = err.WithPath("/opt/jad/jad")
//	fmt.Println(err) // "config error [path=/opt/jad/jad]: decompiler not found: decompiler path does not exist"
type ConfigError struct {
	baseError
	Path string
	Code string
}

// NewConfigError creates a new ConfigError.
func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithPath adds the offending executable path to the error context.
func (e *ConfigError) WithPath(path string) *ConfigError {
	e.Path = path
	return e
}

// WithCode attaches the console message code that describes the failure.
func (e *ConfigError) WithCode(code string) *ConfigError {
	e.Code = code
	return e
}

// Error returns the formatted error message.
func (e *ConfigError) Error() string {
	var parts []string
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	return e.format("config error", parts)
}

// Is checks if this error matches the target.
func (e *ConfigError) Is(target error) bool {
	if _, ok := target.(*ConfigError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// FileSystemError represents a failure to read or write the output tree.
//
// Example:
//
//	err := errors.NewFileSystemError("cannot create output directory", errors.ErrOutputDir).
//		WithPath("/tmp/out/com/example")
type FileSystemError struct {
	baseError
	Path string
	Op   string
}

// NewFileSystemError creates a new FileSystemError.
func NewFileSystemError(message string, cause error) *FileSystemError {
	return &FileSystemError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithPath adds the attempted path to the error context.
func (e *FileSystemError) WithPath(path string) *FileSystemError {
	e.Path = path
	return e
}

// WithOp adds the failed operation name (mkdir, create, rename...).
func (e *FileSystemError) WithOp(op string) *FileSystemError {
	e.Op = op
	return e
}

// WithSeverity sets the error severity.
func (e *FileSystemError) WithSeverity(s Severity) *FileSystemError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *FileSystemError) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	return e.format("filesystem error", parts)
}

// Is checks if this error matches the target.
func (e *FileSystemError) Is(target error) bool {
	if _, ok := target.(*FileSystemError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// DecompileError represents a failed run of the external decompiler.
//
// Example:
//
//	err := errors.NewDecompileError("decompiler exited with an error", errors.ErrProcessFailed).
//		WithClass("com.example.Foo").WithExitCode(1)
type DecompileError struct {
	baseError
	Class    string
	ExitCode int
	Stderr   string
}

// NewDecompileError creates a new DecompileError. ExitCode starts at -1,
// meaning the process never reported one.
func NewDecompileError(message string, cause error) *DecompileError {
	return &DecompileError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
		ExitCode: -1,
	}
}

// WithClass adds the fully qualified class name to the error context.
func (e *DecompileError) WithClass(class string) *DecompileError {
	e.Class = class
	return e
}

// WithExitCode adds the process exit code to the error context.
func (e *DecompileError) WithExitCode(code int) *DecompileError {
	e.ExitCode = code
	return e
}

// WithStderr attaches captured stderr. It is kept out of Error() because it
// can span many lines.
func (e *DecompileError) WithStderr(stderr string) *DecompileError {
	e.Stderr = stderr
	return e
}

// WithSeverity sets the error severity.
func (e *DecompileError) WithSeverity(s Severity) *DecompileError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *DecompileError) Error() string {
	var parts []string
	if e.Class != "" {
		parts = append(parts, fmt.Sprintf("class=%s", e.Class))
	}
	if e.ExitCode >= 0 {
		parts = append(parts, fmt.Sprintf("exit=%d", e.ExitCode))
	}
	return e.format("decompile error", parts)
}

// Is checks if this error matches the target.
func (e *DecompileError) Is(target error) bool {
	if _, ok := target.(*DecompileError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that exceeded its time bound.
//
// Example:
//
//	err := errors.NewTimeoutError("decompiling com.example.Foo", 30*time.Second)
//	fmt.Println(err) // "timeout error: decompiling com.example.Foo (timeout: 30s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    operation,
			severity:   SeverityWarning,
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsUserFacing returns true if the error message is safe to display to end users.
//
// Example:
//
//	if errors.IsUserFacing(err) {
//	    fmt.Fprintln(os.Stderr, err)
//	} else {
//	    fmt.Fprintln(os.Stderr, "an internal error occurred")
//	    logger.Error("internal error", "error", err.Error())
//	}
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	var de DecompError
	if As(err, &de) {
		return de.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement DecompError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}
	var de DecompError
	if As(err, &de) {
		return de.Severity()
	}
	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike fmt.Errorf with %w, this returns nil for a nil error.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to read class file")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to open archive %s", path)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
