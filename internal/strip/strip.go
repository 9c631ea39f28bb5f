// Package strip runs the read, filter, write pipeline that removes channels
// from a PLY file on disk.
package strip

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hupe1980/plystrip/internal/filter"
	"github.com/hupe1980/plystrip/internal/logging"
	"github.com/hupe1980/plystrip/internal/output"
	"github.com/hupe1980/plystrip/internal/ply"
)

// Options configures a pipeline run.
type Options struct {
	// Selection picks the channels to remove. The zero value strips the
	// default higher-order SH channels.
	Selection filter.Selection

	// DryRun computes the result and output size without writing anything.
	DryRun bool

	// Stdout receives the output when the output path is "-".
	Stdout io.Writer

	// Logger overrides the logger taken from the context.
	Logger *slog.Logger
}

// Report summarizes a pipeline run.
type Report struct {
	Input       string        `json:"input"`
	Output      string        `json:"output"`
	Format      ply.Format    `json:"format"`
	Element     string        `json:"element"`
	Rows        int           `json:"rows"`
	Retained    []string      `json:"retained"`
	Removed     []string      `json:"removed"`
	Dropped     []string      `json:"droppedElements,omitempty"`
	InputBytes  int64         `json:"inputBytes"`
	OutputBytes int64         `json:"outputBytes"`
	DryRun      bool          `json:"dryRun,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// Saved returns the number of bytes the strip removed.
func (r *Report) Saved() int64 {
	return r.InputBytes - r.OutputBytes
}

// Run strips the channels selected by opts from the file at input and
// writes the result to output. Output is only replaced once the new content
// is complete.
func Run(ctx context.Context, input, outputPath string, opts Options) (*Report, error) {
	start := time.Now()

	logger := opts.Logger
	if logger == nil {
		logger = logging.FromContext(ctx)
	}

	chain, err := opts.Selection.Build()
	if err != nil {
		return nil, err
	}

	logger.Debug("reading input", slog.String("path", input))

	in, inSize, err := ReadFile(input)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, sr, err := filter.Strip(ctx, in, chain)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", input, err)
	}

	logger.Debug("channels selected",
		slog.Int("retained", len(sr.Included)),
		slog.Int("removed", len(sr.Excluded)),
		slog.Any("removedNames", sr.ExcludedNames()),
	)

	if len(sr.Dropped) > 0 {
		logger.Warn("dropping non-vertex elements", slog.Any("elements", sr.Dropped))
	}

	var w output.Writer = output.DiscardWriter{}
	if !opts.DryRun {
		w = output.New(outputPath, opts.Stdout, output.WithLogger(logger))
	}

	n, err := w.Write(func(dst io.Writer) error {
		return ply.Write(dst, out)
	})
	if err != nil {
		return nil, err
	}

	report := &Report{
		Input:       input,
		Output:      outputPath,
		Format:      in.Format,
		Element:     sr.Element,
		Rows:        sr.Rows,
		Retained:    sr.IncludedNames(),
		Removed:     sr.ExcludedNames(),
		Dropped:     sr.Dropped,
		InputBytes:  inSize,
		OutputBytes: n,
		DryRun:      opts.DryRun,
		Duration:    time.Since(start),
	}

	logger.Info("stripped channels",
		slog.String("input", input),
		slog.String("output", outputPath),
		slog.Int("rows", report.Rows),
		slog.Int("removed", len(report.Removed)),
		slog.String("inputSize", humanize.Bytes(uint64(report.InputBytes))),
		slog.String("outputSize", humanize.Bytes(uint64(report.OutputBytes))),
		slog.Bool("dryRun", report.DryRun),
	)

	return report, nil
}

// ReadFile loads the PLY file at path and returns it with its size on disk.
func ReadFile(path string) (*ply.File, int64, error) {
	fh, err := os.Open(path) //nolint:gosec // path is user-provided input
	if err != nil {
		return nil, 0, fmt.Errorf("opening input: %w", err)
	}
	defer fh.Close()

	info, err := fh.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("reading input: %w", err)
	}

	f, err := ply.Read(fh)
	if err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", path, err)
	}

	return f, info.Size(), nil
}

// ReadHeaderFile parses only the header of the PLY file at path and returns
// it with the file size.
func ReadHeaderFile(path string) (*ply.Header, int64, error) {
	fh, err := os.Open(path) //nolint:gosec // path is user-provided input
	if err != nil {
		return nil, 0, fmt.Errorf("opening input: %w", err)
	}
	defer fh.Close()

	info, err := fh.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("reading input: %w", err)
	}

	h, err := ply.ReadHeader(fh)
	if err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", path, err)
	}

	return h, info.Size(), nil
}
