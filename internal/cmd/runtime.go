package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/Iron-Ham/jdecomp/internal/config"
	"github.com/Iron-Ham/jdecomp/internal/console"
	"github.com/Iron-Ham/jdecomp/internal/decompile"
	"github.com/Iron-Ham/jdecomp/internal/envcheck"
	"github.com/Iron-Ham/jdecomp/internal/errors"
	"github.com/Iron-Ham/jdecomp/internal/logging"
	"github.com/Iron-Ham/jdecomp/internal/tui/prompt"
)

// runtime bundles what every decompiling command needs.
type runtime struct {
	cfg       *config.Config
	logger    *logging.Logger
	sink      console.Sink
	mode      envcheck.Mode
	validator *envcheck.Validator
}

// newRuntime loads the configuration and wires logging, console output and
// the validator for cmd. Close the returned logger when done.
func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.NewConfigError("invalid configuration", err).WithPath(viper.ConfigFileUsed())
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	catalog := console.NewCatalog()
	width := 0
	if f, ok := cmd.ErrOrStderr().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil {
			width = w
		}
	}
	sink := console.Multi(
		console.NewPrinter(cmd.ErrOrStderr(), catalog, console.WithWidth(width)),
		console.NewLoggerSink(logger.WithComponent("console"), catalog),
	)

	mode := interactiveMode()
	opts := []envcheck.Option{envcheck.WithLogger(logger)}
	if mode == envcheck.Interactive {
		opts = append(opts, envcheck.WithPrompter(prompt.New(catalog)))
	}

	return &runtime{
		cfg:       cfg,
		logger:    logger,
		sink:      sink,
		mode:      mode,
		validator: envcheck.New(afero.NewOsFs(), sink, opts...),
	}, nil
}

// newLogger returns a rotating file logger, or a no-op logger when logging
// is disabled.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	logger, err := logging.NewLoggerWithRotation(cfg.Logging.ResolveDirectory(), cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	return logger, nil
}

// interactiveMode prompts only when both stdin and stdout are terminals and
// --no-input was not given.
func interactiveMode() envcheck.Mode {
	if viper.GetBool("no_input") {
		return envcheck.NonInteractive
	}
	if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
		return envcheck.Interactive
	}
	return envcheck.NonInteractive
}

// orchestrator builds an Orchestrator that persists interactive fixes to
// the active config file.
func (r *runtime) orchestrator(opts ...decompile.Option) *decompile.Orchestrator {
	base := []decompile.Option{
		decompile.WithSink(r.sink),
		decompile.WithValidator(r.validator),
		decompile.WithMode(r.mode),
		decompile.WithLogger(r.logger),
		decompile.WithReconfigureHook(r.persist),
	}
	return decompile.New(r.cfg, append(base, opts...)...)
}

// persist writes the decompiler path chosen at the prompt into the active
// config file. Only that key changes: flag and environment overrides merged
// into the running config stay out of the file.
func (r *runtime) persist(cfg *config.Config) {
	path, err := activeConfigFile(cfg)
	if err == nil {
		err = savePath(path, cfg.Decompiler.Path)
	}
	if err != nil {
		r.logger.Error("failed to save configuration", "error", err.Error())
		r.sink.Log(console.Error(console.CodeWriteOutput, path, err))
		return
	}
	r.sink.Log(console.Info(console.CodeReconfigured, path))
}

func savePath(path, decompiler string) error {
	onDisk, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	onDisk.Decompiler.Path = decompiler
	return config.Save(onDisk, path)
}

func (r *runtime) close() {
	_ = r.logger.Close()
}
