package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/jdecomp/internal/decompile"
	"github.com/Iron-Ham/jdecomp/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Decompile class files as they are compiled",
	Long: `Watch a directory of class files and decompile every class that is
created or rewritten below it. Bursts of writes to the same file are
coalesced (watch.debounce_ms). Press Ctrl+C to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var (
	watchJobs    int
	watchOutput  string
	watchInclude []string
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().IntVarP(&watchJobs, "jobs", "j", 0, "Parallel decompilations (default: batch.max_parallel)")
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "", "Output directory (default: output.directory)")
	watchCmd.Flags().StringSliceVar(&watchInclude, "include", nil, "Glob of class paths to include (default: batch.include)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	root, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	if watchOutput != "" {
		rt.cfg.Output.Directory = watchOutput
	}
	include := rt.cfg.Batch.Include
	if len(watchInclude) > 0 {
		include = watchInclude
	}
	jobs := rt.cfg.Batch.MaxParallel
	if watchJobs > 0 {
		jobs = watchJobs
	}
	matcher, err := decompile.NewMatcher(include)
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()
	orch := rt.orchestrator(decompile.WithFs(fs))
	log := rt.logger.WithComponent("watch")

	w, err := watch.New(root, func(ctx context.Context, path string) {
		target, err := decompile.TargetFromClassFile(fs, path)
		if err != nil {
			// Usually a half-written file; the next write event retries.
			log.Debug("ignoring unreadable class file", "path", path, "error", err.Error())
			return
		}
		orch.Decompile(ctx, target)
	},
		watch.WithMatch(matcher.Match),
		watch.WithDebounce(rt.cfg.Watch.DebounceInterval()),
		watch.WithMaxParallel(jobs),
		watch.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	ctx, stop := notifyContext(cmd.Context())
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl+C to stop)\n", root)
	log.Info("watch started", "root", root)
	return w.Run(ctx)
}
