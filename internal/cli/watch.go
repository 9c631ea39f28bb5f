package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/plystrip/internal/config"
	"github.com/hupe1980/plystrip/internal/logging"
	"github.com/hupe1980/plystrip/internal/strip"
	"github.com/hupe1980/plystrip/internal/watch"
)

type watchOptions struct {
	debounce time.Duration
}

func newWatchCommand() *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch <input.ply> <output.ply>",
		Short: "Re-strip a PLY file whenever it changes",
		Long: `Watch strips the input once and then again every time the input
file or the config file changes. Rapid successive writes are debounced.

Each run reports the row count, the kept and removed channels and the
output size, plus which channels changed since the previous run. Failed
runs are reported and the watcher keeps going. Stop with Ctrl-C.`,
		Args: usageArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd, args[0], args[1], opts)
		},
	}

	registerChannelFlags(cmd)
	cmd.Flags().DurationVar(&opts.debounce, "debounce", 500*time.Millisecond, "debounce interval for file changes")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, input, outputPath string, opts *watchOptions) error {
	same, err := samePath(input, outputPath)
	if err != nil {
		return &ExitError{Code: exitUsage, Err: err}
	}

	if same {
		return &ExitError{Code: exitUsage, Err: fmt.Errorf("watch needs an output path different from the input %q", input)}
	}

	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx)

	// The selection is reloaded on every run so edits to the config file
	// take effect without restarting.
	runFn := func(fnCtx context.Context) (*watch.RunResult, error) {
		current, loadErr := config.Load(cmd, cfg.ConfigFile)
		if loadErr != nil {
			return nil, loadErr
		}

		report, runErr := strip.Run(fnCtx, input, outputPath, strip.Options{
			Selection: current.Selection(),
			Stdout:    cmd.OutOrStdout(),
			Logger:    logger,
		})
		if runErr != nil {
			return nil, runErr
		}

		return &watch.RunResult{
			Rows:        report.Rows,
			Retained:    report.Retained,
			Removed:     len(report.Removed),
			OutputBytes: report.OutputBytes,
		}, nil
	}

	var extra []string
	if cfg.ConfigFile != "" {
		extra = append(extra, cfg.ConfigFile)
	}

	return watch.Run(ctx, watch.Options{
		Input:      input,
		ExtraFiles: extra,
		Debounce:   opts.debounce,
		Logger:     logger,
		Out:        cmd.ErrOrStderr(),
	}, runFn)
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, fmt.Errorf("resolving %q: %w", a, err)
	}

	absB, err := filepath.Abs(b)
	if err != nil {
		return false, fmt.Errorf("resolving %q: %w", b, err)
	}

	return absA == absB, nil
}
