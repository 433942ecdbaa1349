// Package decompile coordinates a decompilation request end to end.
//
// A request moves through validate, filter, prepare, launch, pump, await
// and resolve, and ends in exactly one of Succeeded, Failed, Skipped or
// Cancelled. Nothing is retried; a failed request is reported once.
package decompile

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/Iron-Ham/jdecomp/internal/command"
	"github.com/Iron-Ham/jdecomp/internal/config"
	"github.com/Iron-Ham/jdecomp/internal/console"
	"github.com/Iron-Ham/jdecomp/internal/envcheck"
	"github.com/Iron-Ham/jdecomp/internal/errors"
	"github.com/Iron-Ham/jdecomp/internal/exclusion"
	"github.com/Iron-Ham/jdecomp/internal/linealign"
	"github.com/Iron-Ham/jdecomp/internal/logging"
	"github.com/Iron-Ham/jdecomp/internal/pump"
	"github.com/Iron-Ham/jdecomp/internal/util"
)

const (
	// partialSuffix marks an output file the decompiler is still writing.
	partialSuffix = ".partial"
	// stderrLines is how much decompiler stderr a failure message shows.
	stderrLines = 20
)

// Orchestrator runs decompilation requests. Requests may run concurrently;
// each owns its process, pipes and pumpers. The configuration is shared
// read-only and only replaced wholesale after an interactive
// reconfiguration.
type Orchestrator struct {
	cfg atomic.Pointer[config.Config]

	fs          afero.Fs
	sink        console.Sink
	validator   *envcheck.Validator
	mode        envcheck.Mode
	logger      *logging.Logger
	baseDir     string
	onReconfig  func(*config.Config)
	newID       func() string
	environment []string

	// promptMu serializes interactive validation so concurrent requests
	// share one prompt. declined is the config the user last refused to
	// fix; requests that still see it fail without prompting again.
	promptMu sync.Mutex
	declined *config.Config
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithFs sets the filesystem used for validation and output. Defaults to
// the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(o *Orchestrator) { o.fs = fs }
}

// WithSink sets the console sink. Defaults to console.Discard.
func WithSink(s console.Sink) Option {
	return func(o *Orchestrator) { o.sink = s }
}

// WithValidator replaces the default non-prompting validator.
func WithValidator(v *envcheck.Validator) Option {
	return func(o *Orchestrator) { o.validator = v }
}

// WithMode sets whether validation may prompt.
func WithMode(m envcheck.Mode) Option {
	return func(o *Orchestrator) { o.mode = m }
}

// WithLogger sets the debug logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithBaseDir sets the directory relative output paths resolve against.
// Defaults to the working directory.
func WithBaseDir(dir string) Option {
	return func(o *Orchestrator) { o.baseDir = dir }
}

// WithReconfigureHook is called with the replacement config after the user
// fixed it interactively, for example to persist it.
func WithReconfigureHook(fn func(*config.Config)) Option {
	return func(o *Orchestrator) { o.onReconfig = fn }
}

// WithEnv overrides the environment of the decompiler process. By default
// it inherits the host environment.
func WithEnv(env []string) Option {
	return func(o *Orchestrator) { o.environment = env }
}

// New creates an Orchestrator for cfg.
func New(cfg *config.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fs:     afero.NewOsFs(),
		sink:   console.Discard,
		mode:   envcheck.NonInteractive,
		logger: logging.NopLogger(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.validator == nil {
		o.validator = envcheck.New(o.fs, o.sink, envcheck.WithLogger(o.logger))
	}
	if o.baseDir == "" {
		if wd, err := os.Getwd(); err == nil {
			o.baseDir = wd
		}
	}
	o.cfg.Store(cfg)
	return o
}

// Config returns the active configuration.
func (o *Orchestrator) Config() *config.Config {
	return o.cfg.Load()
}

// SetConfig replaces the active configuration. Requests already running
// keep the config they started with.
func (o *Orchestrator) SetConfig(cfg *config.Config) {
	o.cfg.Store(cfg)
}

// Decompile runs one request to completion.
func (o *Orchestrator) Decompile(ctx context.Context, target Target) Result {
	start := time.Now()
	id := o.newID()
	log := o.logger.WithRequest(id).WithClass(target.ClassName)
	log.Debug("decompilation requested", "source", target.Source(), "java_version", target.JavaVersion)

	res := o.decompile(ctx, target, log)
	res.Target = target
	res.RequestID = id
	res.Duration = time.Since(start)

	args := []any{"status", res.Status.String(), "duration_ms", res.Duration.Milliseconds()}
	if res.Code != "" {
		args = append(args, "code", res.Code)
	}
	if res.OutputFile != "" {
		args = append(args, "output", res.OutputFile)
	}
	if res.Err != nil {
		args = append(args, "error", res.Err.Error())
	}
	if res.Outcome != nil {
		args = append(args, "exit_code", res.Outcome.ExitCode, "output_bytes", res.Outcome.OutputBytes)
	}
	switch {
	case !res.Failed():
		log.Info("decompilation finished", args...)
	case errors.GetSeverity(res.Err) >= errors.SeverityError:
		log.Error("decompilation finished", args...)
	default:
		log.Warn("decompilation finished", args...)
	}
	return res
}

// validate runs the environment check. In interactive mode only one
// request at a time may prompt; the others wait and then re-check the
// config the prompt produced.
func (o *Orchestrator) validate(ctx context.Context, log *logging.Logger) envcheck.Result {
	if o.mode != envcheck.Interactive {
		return o.validator.Validate(ctx, o.Config(), o.mode)
	}

	o.promptMu.Lock()
	defer o.promptMu.Unlock()

	cfg := o.Config()
	mode := o.mode
	if cfg == o.declined {
		mode = envcheck.NonInteractive
	}
	vr := o.validator.Validate(ctx, cfg, mode)
	switch {
	case vr.Usable() && vr.Reconfigured:
		o.SetConfig(vr.Config)
		log.Info("configuration replaced after validation")
		if o.onReconfig != nil {
			o.onReconfig(vr.Config)
		}
	case !vr.Usable() && mode == envcheck.Interactive && ctx.Err() == nil:
		o.declined = cfg
	}
	return vr
}

func (o *Orchestrator) decompile(ctx context.Context, target Target, log *logging.Logger) Result {
	// Validate
	vr := o.validate(ctx, log)
	if !vr.Usable() {
		return Result{Status: StatusCancelled, Code: vr.Code, Err: errors.Join(errors.ErrValidationCancelled, vr.Err)}
	}
	cfg := vr.Config

	// Filter
	if d := exclusion.New(cfg.Exclusions).DecideTarget(target); d.Excluded {
		o.sink.Log(console.Info(console.CodeExcluded, target.ClassName, d.Rule.Package))
		return Result{Status: StatusSkipped, Code: console.CodeExcluded}
	}

	if err := ctx.Err(); err != nil {
		return o.cancelled(target)
	}

	// Prepare
	root := cfg.Output.ResolveDirectory(o.baseDir)
	outFile := target.OutputPath(root, cfg.Output.Extension)
	if res, ok := o.prepareOutput(root, filepath.Dir(outFile), cfg.Output.CreateIfMissing); !ok {
		return res
	}

	classFile := target.ClassFile
	if target.IsArchived() {
		tmp, err := afero.TempDir(o.fs, "", "jdecomp-")
		if err != nil {
			return o.fail(console.Error(console.CodeExtract, target.Entry, target.Archive, err),
				errors.NewFileSystemError("cannot create extraction directory", errors.Join(errors.ErrExtract, err)).WithOp("mkdir"))
		}
		defer func() { _ = o.fs.RemoveAll(tmp) }()

		classFile, err = extractClass(o.fs, target, tmp)
		if err != nil {
			return o.fail(console.Error(console.CodeExtract, target.Entry, target.Archive, err),
				errors.NewFileSystemError("cannot extract class", errors.Join(errors.ErrExtract, err)).
					WithOp("extract").WithPath(target.Archive))
		}
	}

	// Build & launch
	cmdline := command.ForTarget(command.Build(cfg), classFile)
	partial := outFile + partialSuffix
	out, err := o.fs.Create(partial)
	if err != nil {
		return o.fail(console.Error(console.CodeWriteOutput, partial, err),
			errors.NewFileSystemError("cannot create output file", errors.Join(errors.ErrWriteOutput, err)).
				WithOp("create").WithPath(partial))
	}
	removePartial := func() { _ = o.fs.Remove(partial) }

	o.sink.Log(console.Info(console.CodeDecompiling, target.ClassName))
	log.Debug("launching decompiler", "command", cmdline)

	runCtx := ctx
	timeout := cfg.Decompiler.Timeout()
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	outcome, runErr := o.run(runCtx, cmdline, out, cfg)
	closeErr := out.Close()

	// Resolve
	switch {
	case outcome == nil:
		removePartial()
		return o.fail(console.Error(console.CodeLaunch, cmdline, runErr),
			errors.NewDecompileError("cannot launch decompiler", errors.Join(errors.ErrLaunch, runErr)).
				WithClass(target.ClassName))

	case outcome.Killed && ctx.Err() != nil:
		removePartial()
		res := o.cancelled(target)
		res.Outcome = outcome
		return res

	case outcome.Killed:
		removePartial()
		res := o.fail(console.Error(console.CodeTimeout, target.ClassName, timeout),
			errors.NewTimeoutError("decompiling "+target.ClassName, timeout).WithCause(runCtx.Err()))
		res.Outcome = outcome
		return res

	case runErr != nil:
		removePartial()
		res := o.fail(console.Error(console.CodeLaunch, cmdline, runErr),
			errors.NewDecompileError("decompiler did not finish cleanly", errors.Join(errors.ErrLaunch, runErr)).
				WithClass(target.ClassName))
		res.Outcome = outcome
		return res

	case outcome.ExitCode != 0:
		removePartial()
		res := o.fail(console.Error(console.CodeProcessExit, target.ClassName, outcome.ExitCode, util.LastLines(outcome.Stderr, stderrLines)),
			errors.NewDecompileError("decompiler failed", errors.ErrProcessFailed).
				WithClass(target.ClassName).WithExitCode(outcome.ExitCode).WithStderr(outcome.Stderr))
		res.Outcome = outcome
		return res

	case outcome.OutputBytes == 0:
		removePartial()
		res := o.fail(console.Error(console.CodeNoOutput, target.ClassName),
			errors.NewDecompileError("decompiler produced no output", errors.ErrNoOutput).
				WithClass(target.ClassName).WithExitCode(0).WithStderr(outcome.Stderr).
				WithSeverity(errors.SeverityWarning))
		res.Outcome = outcome
		return res

	case closeErr != nil:
		removePartial()
		res := o.fail(console.Error(console.CodeWriteOutput, partial, closeErr),
			errors.NewFileSystemError("cannot write output file", errors.Join(errors.ErrWriteOutput, closeErr)).
				WithOp("close").WithPath(partial))
		res.Outcome = outcome
		return res
	}

	if cfg.Decompiler.ReformatStyle == config.StyleDebuggable {
		if st, err := linealign.AlignFile(o.fs, partial); err != nil {
			log.Warn("line alignment failed", "error", err.Error())
		} else {
			log.Debug("aligned line numbers", "inserted", st.Inserted, "late", st.Late)
		}
	}

	if err := o.fs.Rename(partial, outFile); err != nil {
		removePartial()
		res := o.fail(console.Error(console.CodeWriteOutput, outFile, err),
			errors.NewFileSystemError("cannot move output into place", errors.Join(errors.ErrWriteOutput, err)).
				WithOp("rename").WithPath(outFile))
		res.Outcome = outcome
		return res
	}
	if _, err := o.fs.Stat(outFile); err != nil {
		res := o.fail(console.Error(console.CodeNoOutput, target.ClassName),
			errors.NewDecompileError("output file missing", errors.ErrNoOutput).WithClass(target.ClassName))
		res.Outcome = outcome
		return res
	}

	o.sink.Log(console.Info(console.CodeDecompiled, target.ClassName, outFile))
	return Result{Status: StatusSucceeded, OutputFile: outFile, Outcome: outcome}
}

// prepareOutput makes sure the output root and the package directory exist.
func (o *Orchestrator) prepareOutput(root, dir string, create bool) (Result, bool) {
	info, err := o.fs.Stat(root)
	switch {
	case err == nil && !info.IsDir():
		return o.fail(console.Error(console.CodeOutputDir, root, "not a directory"),
			errors.NewFileSystemError("output path is not a directory", errors.ErrOutputDir).WithOp("stat").WithPath(root)), false
	case err != nil && !os.IsNotExist(err):
		return o.fail(console.Error(console.CodeOutputDir, root, err),
			errors.NewFileSystemError("cannot inspect output directory", errors.Join(errors.ErrOutputDir, err)).WithOp("stat").WithPath(root)), false
	case err != nil && !create:
		return o.fail(console.Error(console.CodeOutputDir, root, "does not exist"),
			errors.NewFileSystemError("output directory does not exist", errors.ErrOutputDir).WithOp("stat").WithPath(root)), false
	}

	if err := o.fs.MkdirAll(dir, 0755); err != nil {
		return o.fail(console.Error(console.CodeOutputDir, dir, err),
			errors.NewFileSystemError("cannot create output directory", errors.Join(errors.ErrOutputDir, err)).
				WithOp("mkdir").WithPath(dir).WithSeverity(errors.SeverityCritical)), false
	}
	return Result{}, true
}

// run launches cmdline through the shell with stdout copied to out. Both
// streams are pumped before waiting so the child can never block on a full
// pipe. The outcome is nil only when the process could not be started.
func (o *Orchestrator) run(ctx context.Context, cmdline string, out io.Writer, cfg *config.Config) (*ProcessOutcome, error) {
	name, args := command.Shell(cmdline)
	cmd := exec.Command(name, args...)
	cmd.Env = o.environment
	configureProcess(cmd)

	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		closeAll(outR, outW)
		return nil, err
	}
	cmd.Stdout = outW
	cmd.Stderr = errW

	start := time.Now()
	if err := cmd.Start(); err != nil {
		closeAll(outR, outW, errR, errW)
		return nil, err
	}
	// The child holds its own copies; ours must go or EOF never arrives.
	closeAll(outW, errW)

	stdoutTail := pump.NewTail(cfg.Pump.TailBytes)
	stderrTail := pump.NewTail(cfg.Pump.TailBytes)
	stdout := pump.New("stdout", outR, io.MultiWriter(out, stdoutTail), o.sink)
	stderr := pump.New("stderr", errR, stderrTail, o.sink)
	stdout.Start()
	stderr.Start()

	// A pumper that stopped on an error no longer drains its pipe; closing
	// the read end turns further child writes into EPIPE instead of a hang.
	for _, pr := range []struct {
		p *pump.Pumper
		r *os.File
	}{{stdout, outR}, {stderr, errR}} {
		go func() {
			<-pr.p.Done()
			if pr.p.Err() != nil {
				_ = pr.r.Close()
			}
		}()
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var waitErr error
	killed := false
	select {
	case waitErr = <-waitCh:
	case <-ctx.Done():
		_ = killProcess(cmd)
		killed = true
		waitErr = <-waitCh
	}

	o.drain(cfg.Pump.DrainTimeout(), []*pump.Pumper{stdout, stderr}, []*os.File{outR, errR})

	outcome := &ProcessOutcome{
		ExitCode:    -1,
		Stdout:      stdoutTail.String(),
		Stderr:      stderrTail.String(),
		OutputBytes: stdout.Bytes(),
		Duration:    time.Since(start),
		Killed:      killed,
	}
	if cmd.ProcessState != nil {
		outcome.ExitCode = cmd.ProcessState.ExitCode()
	}
	if stderrTail.Truncated() {
		o.logger.Debug("decompiler stderr truncated", "kept_bytes", len(outcome.Stderr))
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return outcome, fmt.Errorf("waiting for decompiler: %w", waitErr)
	}
	return outcome, nil
}

// drain lets the pumpers finish reading what the process left in the
// pipes. Pumpers still running after grace are stopped and their sources
// closed, which ends any blocked read.
func (o *Orchestrator) drain(grace time.Duration, pumpers []*pump.Pumper, sources []*os.File) {
	timer := time.NewTimer(grace)
	defer timer.Stop()

	for _, p := range pumpers {
		select {
		case <-p.Done():
		case <-timer.C:
			o.logger.Debug("pumper still running after drain timeout", "stream", p.Name())
			for _, q := range pumpers {
				q.StopPumping()
			}
			closeAll(sources...)
			for _, q := range pumpers {
				_ = q.Wait()
			}
			return
		}
	}
	for _, p := range pumpers {
		p.StopPumping()
	}
	closeAll(sources...)
}

func (o *Orchestrator) fail(entry console.Entry, err error) Result {
	o.sink.Log(entry)
	return Result{Status: StatusFailed, Code: entry.Code, Err: err}
}

func (o *Orchestrator) cancelled(target Target) Result {
	o.sink.Log(console.Info(console.CodeCancelled, target.ClassName))
	return Result{Status: StatusCancelled, Code: console.CodeCancelled, Err: errors.ErrCanceled}
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
