// Package envcheck verifies that the configured decompiler can be launched
// before any process is started.
//
// Validation under automation is terminal: a broken configuration is logged
// and reported as cancelled. When a user is present, a Prompter offers to
// reconfigure, and validation repeats until it passes or the user gives up.
package envcheck

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/jdecomp/internal/config"
	"github.com/Iron-Ham/jdecomp/internal/console"
	"github.com/Iron-Ham/jdecomp/internal/errors"
	"github.com/Iron-Ham/jdecomp/internal/logging"
)

// Mode tells the validator whether a user can answer prompts.
type Mode int

const (
	// NonInteractive never prompts; failures are logged and terminal.
	NonInteractive Mode = iota
	// Interactive offers reconfiguration through the Prompter.
	Interactive
)

// String returns the mode name used in logs.
func (m Mode) String() string {
	if m == Interactive {
		return "interactive"
	}
	return "non-interactive"
}

// Choice is the user's answer to a validation failure.
type Choice int

const (
	ChoiceCancel Choice = iota
	ChoiceReconfigure
)

// Failure describes why validation failed. Entry is the console entry the
// prompt should show.
type Failure struct {
	Code  string
	Path  string
	Err   error
	Entry console.Entry
}

// Prompter is the interactive collaborator. Choose must offer exactly two
// options, reconfigure and cancel. Reconfigure receives a copy of the
// current config and returns its replacement.
type Prompter interface {
	Choose(ctx context.Context, failure Failure) (Choice, error)
	Reconfigure(ctx context.Context, cfg *config.Config) (*config.Config, error)
}

// Result is the verdict of Validate. Cancelled takes precedence over Valid.
type Result struct {
	Valid     bool
	Cancelled bool
	// Code is the console code of the last failure, empty on success.
	Code string
	Err  error
	// Config is the configuration that was validated last. It differs from
	// the input when the user reconfigured.
	Config       *config.Config
	Reconfigured bool
}

// Usable reports whether a decompilation may proceed.
func (r Result) Usable() bool {
	return r.Valid && !r.Cancelled
}

// Validator checks the decompiler executable.
type Validator struct {
	fs       afero.Fs
	sink     console.Sink
	prompter Prompter
	logger   *logging.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithPrompter sets the prompter used in Interactive mode. Without one,
// Interactive behaves like NonInteractive.
func WithPrompter(p Prompter) Option {
	return func(v *Validator) { v.prompter = p }
}

// WithLogger sets the debug logger.
func WithLogger(l *logging.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// New creates a Validator that inspects fs and reports to sink.
func New(fs afero.Fs, sink console.Sink, opts ...Option) *Validator {
	if sink == nil {
		sink = console.Discard
	}
	v := &Validator{
		fs:     fs,
		sink:   sink,
		logger: logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Check validates cfg once and returns a *errors.ConfigError carrying the
// console code on failure.
func (v *Validator) Check(cfg *config.Config) error {
	raw := strings.TrimSpace(cfg.Decompiler.Path)
	if raw == "" {
		return errors.NewConfigError("decompiler path is not configured", errors.ErrUnspecifiedPath).
			WithCode(console.CodeUnspecifiedPath)
	}

	path := ExecutablePath(raw)
	info, err := v.fs.Stat(path)
	if err != nil {
		cause := errors.ErrPathNotFound
		if !os.IsNotExist(err) {
			cause = errors.Join(errors.ErrPathNotFound, err)
		}
		return errors.NewConfigError("decompiler not found", cause).
			WithPath(path).
			WithCode(console.CodePathNotFound)
	}
	if !info.Mode().IsRegular() {
		return errors.NewConfigError("decompiler is not a file", errors.ErrNotRegularFile).
			WithPath(path).
			WithCode(console.CodeInvalidPath)
	}
	return nil
}

// Validate checks cfg, prompting for a replacement in Interactive mode until
// the configuration passes or the user cancels. There is no retry limit;
// every iteration waits on the user.
func (v *Validator) Validate(ctx context.Context, cfg *config.Config, mode Mode) Result {
	reconfigured := false
	for {
		err := v.Check(cfg)
		if err == nil {
			return Result{Valid: true, Config: cfg, Reconfigured: reconfigured}
		}

		failure := describe(err)
		cancelled := Result{Cancelled: true, Code: failure.Code, Err: err, Config: cfg, Reconfigured: reconfigured}
		v.logger.Warn("decompiler validation failed", "code", failure.Code, "path", failure.Path, "mode", mode.String(), "error", err.Error())

		if mode != Interactive || v.prompter == nil {
			v.sink.Log(failure.Entry)
			return cancelled
		}
		if ctx.Err() != nil {
			return cancelled
		}

		choice, perr := v.prompter.Choose(ctx, failure)
		if perr != nil {
			v.logger.Warn("prompt failed", "error", perr.Error())
			return cancelled
		}
		if choice != ChoiceReconfigure {
			v.logger.Info("validation cancelled by user")
			return cancelled
		}

		next, perr := v.prompter.Reconfigure(ctx, cfg.Clone())
		if perr != nil || next == nil {
			if perr != nil {
				v.logger.Warn("reconfiguration failed", "error", perr.Error())
			}
			return cancelled
		}
		cfg = next
		reconfigured = true
	}
}

// ExecutablePath strips one level of matching quotes the user may have
// added around a path containing spaces.
func ExecutablePath(p string) string {
	if len(p) >= 2 {
		first, last := p[0], p[len(p)-1]
		if (first == '"' || first == '\'') && first == last {
			return p[1 : len(p)-1]
		}
	}
	return p
}

func describe(err error) Failure {
	var cerr *errors.ConfigError
	if !errors.As(err, &cerr) {
		return Failure{Code: console.CodeInvalidPath, Err: err, Entry: console.Error(console.CodeInvalidPath, "")}
	}
	f := Failure{Code: cerr.Code, Path: cerr.Path, Err: err}
	if cerr.Code == console.CodeUnspecifiedPath {
		f.Entry = console.Error(cerr.Code)
	} else {
		f.Entry = console.Error(cerr.Code, cerr.Path)
	}
	return f
}
