// Package watch reports class files that appear or change below a
// directory tree, coalescing the bursts of events compilers produce.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sourcegraph/conc/pool"

	"github.com/Iron-Ham/jdecomp/internal/logging"
)

// DefaultDebounce is used when no debounce interval is configured.
const DefaultDebounce = 300 * time.Millisecond

// Handler is called once per changed file after the debounce interval.
type Handler func(ctx context.Context, path string)

// Watcher watches a directory tree for changed files
type Watcher struct {
	fsw  *fsnotify.Watcher
	root string

	// match receives the slash-separated path relative to root.
	match       func(rel string) bool
	handler     Handler
	debounce    time.Duration
	maxParallel int
	logger      *logging.Logger

	// Directory names never descended into
	ignoreDirs []string

	mu      sync.Mutex
	watched map[string]bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the watcher waits for events to settle.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithMatch restricts the handler to files for which match returns true.
func WithMatch(match func(rel string) bool) Option {
	return func(w *Watcher) { w.match = match }
}

// WithMaxParallel bounds concurrent handler calls. Defaults to 1.
func WithMaxParallel(n int) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.maxParallel = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New creates a watcher for root. Nothing is watched until Run.
func New(root string, handler Handler, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:         fsw,
		root:        root,
		match:       func(string) bool { return true },
		handler:     handler,
		debounce:    DefaultDebounce,
		maxParallel: 1,
		logger:      logging.NopLogger(),
		ignoreDirs:  []string{".git", ".svn", ".idea", "node_modules"},
		watched:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watched returns the directories currently registered, sorted.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	dirs := make([]string, 0, len(w.watched))
	for d := range w.watched {
		dirs = append(dirs, d)
	}
	slices.Sort(dirs)
	return dirs
}

// Run watches until ctx is done, then waits for running handlers and
// releases the underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fsw.Close() }()

	if err := w.addTree(w.root); err != nil {
		return err
	}

	// The dispatcher blocks while the pool is full; the event loop never
	// does, so fsnotify keeps draining behind a slow handler.
	p := pool.New().WithMaxGoroutines(w.maxParallel)
	work := make(chan string)
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		for path := range work {
			p.Go(func() { w.handler(ctx, path) })
		}
	}()
	defer func() {
		close(work)
		<-dispatched
		p.Wait()
	}()

	// Compilers write a class file in several chunks; wait for quiet.
	timer := time.NewTimer(0)
	<-timer.C
	pending := make(map[string]struct{})
	var queue []string

	for {
		var next chan<- string
		var head string
		if len(queue) > 0 {
			next, head = work, queue[0]
		}

		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					// Files may land before the directory is registered.
					w.addNewTree(event.Name, pending)
					timer.Reset(w.debounce)
					continue
				}
			}
			if w.accept(event.Name) {
				pending[event.Name] = struct{}{}
				timer.Reset(w.debounce)
			}

		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for path := range pending {
				paths = append(paths, path)
			}
			pending = make(map[string]struct{})
			slices.Sort(paths)

			for _, path := range paths {
				if slices.Contains(queue, path) {
					continue
				}
				w.logger.Debug("class file changed", "path", path)
				queue = append(queue, path)
			}

		case next <- head:
			queue = queue[1:]

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err.Error())
		}
	}
}

// accept reports whether path passes the match filter.
func (w *Watcher) accept(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	return w.match(filepath.ToSlash(rel))
}

func (w *Watcher) ignored(name string) bool {
	return slices.Contains(w.ignoreDirs, name)
}

// addTree registers root and every directory below it.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignored(d.Name()) {
			return filepath.SkipDir
		}
		return w.add(path)
	})
}

// addNewTree registers a directory created while running and queues the
// files already inside it.
func (w *Watcher) addNewTree(dir string, pending map[string]struct{}) {
	if w.ignored(filepath.Base(dir)) {
		return
	}
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && w.ignored(d.Name()) {
				return filepath.SkipDir
			}
			if err := w.add(path); err != nil {
				w.logger.Warn("cannot watch directory", "path", path, "error", err.Error())
			}
			return nil
		}
		if w.accept(path) {
			pending[path] = struct{}{}
		}
		return nil
	})
}

func (w *Watcher) add(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watched[dir] {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return err
	}
	w.watched[dir] = true
	return nil
}
