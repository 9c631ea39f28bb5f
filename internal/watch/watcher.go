package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
)

// RunFunc is called each time the watcher triggers a strip.
type RunFunc func(ctx context.Context) (*RunResult, error)

// RunResult holds the output of a single pipeline execution so the
// watcher can report what changed between runs.
type RunResult struct {
	Rows        int
	Retained    []string
	Removed     int
	OutputBytes int64
}

// Options configures the watch behaviour.
type Options struct {
	// Input is the PLY file to watch.
	Input string

	// ExtraFiles are additional files whose changes trigger a run
	// (e.g. the config file).
	ExtraFiles []string

	// Debounce is the quiet period before triggering a run.
	Debounce time.Duration

	// Logger is used for structured logging.
	Logger *slog.Logger

	// Out is the writer for user-facing status messages.
	Out io.Writer
}

// DefaultOptions returns the default watch options.
func DefaultOptions() Options {
	return Options{
		Debounce: 500 * time.Millisecond,
		Logger:   slog.Default(),
		Out:      os.Stderr,
	}
}

// Run starts the file watcher and blocks until the context is cancelled
// or a SIGINT/SIGTERM signal is received.
func Run(ctx context.Context, opts Options, runFn RunFunc) error {
	if opts.Input == "" {
		return errors.New("input path must not be empty")
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Out == nil {
		opts.Out = io.Discard
	}

	targets, dirs, err := resolveTargets(append([]string{opts.Input}, opts.ExtraFiles...))
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Directories are watched instead of the files so that editors and
	// tools that replace the file by rename keep triggering.
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching directory %q: %w", dir, err)
		}
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, _ = fmt.Fprintf(opts.Out, "watching %s (debounce=%s)\n", opts.Input, opts.Debounce)

	r := &runner{opts: opts, runFn: runFn}
	r.run(sigCtx, "(initial)")

	debouncer := NewDebouncer(opts.Debounce, func(path string) {
		r.run(sigCtx, path)
	})
	defer debouncer.Stop()

	for {
		select {
		case <-sigCtx.Done():
			_, _ = fmt.Fprintln(opts.Out, "\nshutting down watcher")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !isRelevant(event, targets) {
				continue
			}

			opts.Logger.Debug("change detected", slog.String("path", event.Name), slog.String("op", event.Op.String()))
			debouncer.Trigger(event.Name)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			opts.Logger.Error("watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// runner serializes pipeline runs and remembers the previous result.
type runner struct {
	opts  Options
	runFn RunFunc

	mu   sync.Mutex
	prev *RunResult
}

func (r *runner) run(ctx context.Context, trigger string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	now := time.Now().Format("15:04:05")

	result, err := r.runFn(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(r.opts.Out, "[%s] %s → ERROR: %v\n", now, trigger, err)
		return
	}

	_, _ = fmt.Fprintf(r.opts.Out, "[%s] %s → OK (%d rows, %d channels kept, %d removed, %s)\n",
		now, trigger, result.Rows, len(result.Retained), result.Removed,
		humanize.Bytes(uint64(max(result.OutputBytes, 0))))

	if r.prev != nil {
		if changes := ChannelDiff(r.prev.Retained, result.Retained); len(changes) > 0 {
			_, _ = fmt.Fprintf(r.opts.Out, "  channels: %s\n", ChannelDiffSummary(changes))
		}
	}

	r.prev = result
}

// resolveTargets returns the absolute watched paths and their distinct
// parent directories.
func resolveTargets(paths []string) (map[string]bool, []string, error) {
	targets := make(map[string]bool, len(paths))
	seen := make(map[string]bool)

	var dirs []string

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, nil, fmt.Errorf("resolving %q: %w", p, err)
		}

		targets[abs] = true

		dir := filepath.Dir(abs)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	return targets, dirs, nil
}

// isRelevant keeps write, create and rename events on watched paths.
func isRelevant(event fsnotify.Event, targets map[string]bool) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}

	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}

	return targets[abs]
}
