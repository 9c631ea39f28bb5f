package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/plystrip/internal/config"
	"github.com/hupe1980/plystrip/internal/diff"
	"github.com/hupe1980/plystrip/internal/filter"
	"github.com/hupe1980/plystrip/internal/strip"
)

type diffOptions struct {
	// Output format: "unified" (default), "json".
	format string
}

func newDiffCommand() *cobra.Command {
	opts := &diffOptions{}

	cmd := &cobra.Command{
		Use:   "diff <file.ply>",
		Short: "Show how stripping would change a PLY header",
		Long: `Diff compares the header of a PLY file with the header a strip
would produce, as a unified diff. Only the header is read.

Exit codes:
  0  Diff printed
  1  Input could not be read or parsed
  2  Invalid arguments
  3  Channel selection removed nothing or everything`,
		Args: usageArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd.Context(), cmd, args[0], opts)
		},
	}

	registerChannelFlags(cmd)
	cmd.Flags().StringVar(&opts.format, "format", "unified", "output format: unified, json")

	return cmd
}

// diffSummary is the JSON output of the diff command.
type diffSummary struct {
	File     string   `json:"file"`
	Removed  []string `json:"removed"`
	Retained []string `json:"retained"`
	Dropped  []string `json:"droppedElements,omitempty"`
	Hunks    []string `json:"hunks"`
}

func runDiff(ctx context.Context, cmd *cobra.Command, path string, opts *diffOptions) error {
	if opts.format != "unified" && opts.format != "json" {
		return &ExitError{Code: exitUsage, Err: fmt.Errorf("unknown format %q: expected unified, json", opts.format)}
	}

	cfg := config.FromContext(ctx)

	chain, err := cfg.Selection().Build()
	if err != nil {
		return &ExitError{Code: exitCode(err), Err: err}
	}

	h, _, err := strip.ReadHeaderFile(path)
	if err != nil {
		return &ExitError{Code: exitFailed, Err: err}
	}

	sr, err := filter.Plan(ctx, h, chain)
	if err != nil {
		return &ExitError{Code: exitCode(err), Err: fmt.Errorf("%s: %w", path, err)}
	}

	dopts := diff.DefaultOptions()
	dopts.OldLabel = path
	dopts.NewLabel = path + " (stripped)"

	result, err := diff.Headers(h, filter.ProjectHeader(h, sr), dopts)
	if err != nil {
		return &ExitError{Code: exitFailed, Err: err}
	}

	w := cmd.OutOrStdout()

	if opts.format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		if err := enc.Encode(diffSummary{
			File:     path,
			Removed:  sr.ExcludedNames(),
			Retained: sr.IncludedNames(),
			Dropped:  sr.Dropped,
			Hunks:    result.Hunks,
		}); err != nil {
			return &ExitError{Code: exitFailed, Err: fmt.Errorf("formatting JSON: %w", err)}
		}

		return nil
	}

	diff.Write(w, result, !cfg.NoColor)

	return nil
}
