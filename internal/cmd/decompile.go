package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/jdecomp/internal/decompile"
	"github.com/Iron-Ham/jdecomp/internal/errors"
)

var decompileCmd = &cobra.Command{
	Use:   "decompile <path>...",
	Short: "Decompile class files, directories or jar archives",
	Long: `Decompile one or more classes.

Each path may be a .class file, a directory searched recursively for class
files, or a .jar/.zip archive. Nested classes are decompiled together with
their outer class; a nested class file given on its own stands in for its
outer class when that class file sits next to it.

Examples:
  # Decompile a single class
  jdecomp decompile build/classes/com/foo/Bar.class

  # Decompile a whole jar with 8 parallel decompilers
  jdecomp decompile -j 8 lib/app.jar

  # Only classes below com/foo, written to ./src-out
  jdecomp decompile --include 'com/foo/**' -o src-out build/classes`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecompile,
}

var (
	decompileJobs    int
	decompileOutput  string
	decompileInclude []string
)

func init() {
	rootCmd.AddCommand(decompileCmd)

	decompileCmd.Flags().IntVarP(&decompileJobs, "jobs", "j", 0, "Parallel decompilations (default: batch.max_parallel)")
	decompileCmd.Flags().StringVarP(&decompileOutput, "output", "o", "", "Output directory (default: output.directory)")
	decompileCmd.Flags().StringSliceVar(&decompileInclude, "include", nil, "Glob of class paths to include (default: batch.include)")
}

func runDecompile(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	if decompileOutput != "" {
		rt.cfg.Output.Directory = decompileOutput
	}
	include := rt.cfg.Batch.Include
	if len(decompileInclude) > 0 {
		include = decompileInclude
	}
	jobs := rt.cfg.Batch.MaxParallel
	if decompileJobs > 0 {
		jobs = decompileJobs
	}

	matcher, err := decompile.NewMatcher(include)
	if err != nil {
		return err
	}
	targets, err := collectTargets(afero.NewOsFs(), args, matcher, func(path string, err error) {
		rt.logger.Warn("skipping unreadable class file", "path", path, "error", err.Error())
		fmt.Fprintf(cmd.ErrOrStderr(), "skipping %s: %v\n", path, err)
	})
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No class files found.")
		return nil
	}

	ctx, stop := notifyContext(cmd.Context())
	defer stop()

	rt.logger.Info("batch started", "targets", len(targets), "jobs", jobs)
	results := rt.orchestrator().DecompileAll(ctx, targets, jobs)
	summary := decompile.Summarize(results)
	rt.logger.Info("batch finished",
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"cancelled", summary.Cancelled)

	printSummary(cmd, summary)
	if summary.Failed > 0 || summary.Cancelled > 0 {
		return errors.NewDecompileError(fmt.Sprintf("%d of %d classes were not decompiled", summary.Failed+summary.Cancelled, summary.Total()), nil)
	}
	return nil
}

// collectTargets expands args into targets. Directories are walked, archives
// listed, and anything else is read as a class file.
func collectTargets(fsys afero.Fs, args []string, m *decompile.Matcher, skipped func(string, error)) ([]decompile.Target, error) {
	var targets []decompile.Target
	seen := make(map[string]bool)
	add := func(ts ...decompile.Target) {
		for _, t := range ts {
			key := t.Source()
			if !seen[key] {
				seen[key] = true
				targets = append(targets, t)
			}
		}
	}

	for _, arg := range args {
		path, err := filepath.Abs(arg)
		if err != nil {
			return nil, err
		}
		info, err := fsys.Stat(path)
		if err != nil {
			return nil, errors.NewFileSystemError("cannot read input", err).WithOp("stat").WithPath(arg)
		}

		switch {
		case info.IsDir():
			ts, err := decompile.TargetsFromDir(fsys, path, m, skipped)
			if err != nil {
				return nil, err
			}
			add(ts...)
		case isArchive(path):
			ts, err := decompile.TargetsFromArchive(fsys, path, m)
			if err != nil {
				return nil, err
			}
			add(ts...)
		default:
			t, err := decompile.TargetFromClassFile(fsys, path)
			if err != nil {
				return nil, errors.Wrap(err, arg)
			}
			add(t)
		}
	}
	return targets, nil
}

func isArchive(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jar", ".zip", ".war", ".ear":
		return true
	}
	return false
}

func printSummary(cmd *cobra.Command, s decompile.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%d decompiled", s.Succeeded)
	if s.Failed > 0 {
		fmt.Fprintf(out, ", %d failed", s.Failed)
	}
	if s.Skipped > 0 {
		fmt.Fprintf(out, ", %d excluded", s.Skipped)
	}
	if s.Cancelled > 0 {
		fmt.Fprintf(out, ", %d cancelled", s.Cancelled)
	}
	fmt.Fprintln(out)
}

// notifyContext cancels on interrupt.
func notifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt)
}
