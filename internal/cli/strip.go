package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hupe1980/plystrip/internal/config"
	"github.com/hupe1980/plystrip/internal/logging"
	"github.com/hupe1980/plystrip/internal/output"
	"github.com/hupe1980/plystrip/internal/strip"
)

type stripOptions struct {
	dryRun bool
}

func runStrip(ctx context.Context, cmd *cobra.Command, input, outputPath string, opts *stripOptions) error {
	cfg := config.FromContext(ctx)

	report, err := strip.Run(ctx, input, outputPath, strip.Options{
		Selection: cfg.Selection(),
		DryRun:    opts.dryRun,
		Stdout:    cmd.OutOrStdout(),
		Logger:    logging.FromContext(ctx),
	})
	if err != nil {
		return &ExitError{Code: exitCode(err), Err: err}
	}

	if opts.dryRun {
		printDryRun(cmd, report, outputPath)
	}

	return nil
}

// printDryRun writes the planned result to stdout, or to stderr when the
// output itself would have gone to stdout.
func printDryRun(cmd *cobra.Command, r *strip.Report, outputPath string) {
	w := cmd.OutOrStdout()
	if outputPath == output.StdoutPath {
		w = cmd.ErrOrStderr()
	}

	_, _ = fmt.Fprintf(w, "Dry run: %s → %s (%s, %d rows)\n", r.Input, r.Output, r.Format, r.Rows)
	_, _ = fmt.Fprintf(w, "  remove (%d): %s\n", len(r.Removed), strings.Join(r.Removed, ", "))
	_, _ = fmt.Fprintf(w, "  keep   (%d): %s\n", len(r.Retained), strings.Join(r.Retained, ", "))

	if len(r.Dropped) > 0 {
		_, _ = fmt.Fprintf(w, "  drop elements: %s\n", strings.Join(r.Dropped, ", "))
	}

	_, _ = fmt.Fprintf(w, "  size: %s → %s (saves %s)\n",
		humanize.Bytes(uint64(r.InputBytes)), humanize.Bytes(uint64(r.OutputBytes)),
		humanize.Bytes(uint64(max(r.Saved(), 0))))
}
