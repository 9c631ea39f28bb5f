// Package plystrip provides a public Go API for removing channels from PLY
// point-cloud files, most commonly the higher-order spherical-harmonic
// coefficients of Gaussian splat captures.
//
// This package exposes the plystrip pipeline as a library, allowing
// programmatic use without the CLI.
//
// Basic usage:
//
//	result, err := plystrip.Strip(ctx, "scene.ply", "scene-dc.ply")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Removed)
//
// With options:
//
//	result, err := plystrip.Strip(ctx, "scene.ply", "scene-d1.ply",
//	    plystrip.WithMaxSHDegree(1),
//	    plystrip.WithExclude("nx|ny|nz"),
//	)
package plystrip

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hupe1980/plystrip/internal/filter"
	"github.com/hupe1980/plystrip/internal/logging"
	"github.com/hupe1980/plystrip/internal/strip"
)

// DefaultExclude is the exclusion pattern used when no other selection is
// given. It is matched case-insensitively against the start of each
// vertex property name.
const DefaultExclude = filter.DefaultPattern

var (
	// ErrNoChannelsMatched is returned when nothing would be removed.
	ErrNoChannelsMatched = filter.ErrNoChannelsMatched

	// ErrAllChannelsMatched is returned when every channel would be removed.
	ErrAllChannelsMatched = filter.ErrAllChannelsMatched

	// ErrInvalidPattern is returned for an exclusion pattern that does not compile.
	ErrInvalidPattern = filter.ErrInvalidPattern

	// ErrInvalidSHLayout is returned when a degree limit meets f_rest_*
	// channels that do not form a complete coefficient layout.
	ErrInvalidSHLayout = filter.ErrInvalidSHLayout

	// ErrElementNotFound is returned when the input has no vertex element.
	ErrElementNotFound = filter.ErrElementNotFound
)

// IsConfigError reports whether err was caused by the channel selection
// rather than by the input file or the file system.
func IsConfigError(err error) bool {
	return filter.IsConfigError(err)
}

// Option configures a strip.
// Use the With* functions to create Options.
type Option func(*options)

type options struct {
	exclude     []string
	profile     string
	profiles    map[string]Profile
	maxSHDegree *int
	dryRun      bool
	logger      *slog.Logger
}

// Profile is a named, reusable channel selection.
type Profile struct {
	// Exclude lists additional exclusion patterns.
	Exclude []string
	// MaxSHDegree keeps SH bands up to this degree when set.
	MaxSHDegree *int
	// Extends names a builtin or custom profile to inherit from.
	Extends string
}

// WithExclude adds exclusion patterns. Each pattern is anchored at the start
// of the property name and matched case-insensitively.
func WithExclude(patterns ...string) Option {
	return func(o *options) { o.exclude = append(o.exclude, patterns...) }
}

// WithProfile selects a builtin or custom profile by name.
func WithProfile(name string) Option { return func(o *options) { o.profile = name } }

// WithCustomProfile registers a profile usable by WithProfile.
func WithCustomProfile(name string, p Profile) Option {
	return func(o *options) {
		if o.profiles == nil {
			o.profiles = make(map[string]Profile)
		}

		o.profiles[name] = p
	}
}

// WithMaxSHDegree keeps spherical-harmonic bands up to degree d and removes
// the rest of the f_rest_* coefficients.
func WithMaxSHDegree(d int) Option { return func(o *options) { o.maxSHDegree = &d } }

// WithDryRun computes the result without writing the output file.
func WithDryRun() Option { return func(o *options) { o.dryRun = true } }

// WithLogger sets the logger for progress messages. Logging is discarded
// by default.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// Result describes a completed strip.
type Result struct {
	// Format is the PLY encoding shared by input and output.
	Format string
	// Rows is the vertex count.
	Rows int
	// Retained lists the kept channels in file order.
	Retained []string
	// Removed lists the removed channels in file order.
	Removed []string
	// DroppedElements lists non-vertex elements omitted from the output.
	DroppedElements []string
	// InputBytes is the size of the input file.
	InputBytes int64
	// OutputBytes is the size of the written (or, for dry runs, computed)
	// output.
	OutputBytes int64
}

// Strip reads the PLY file at inputPath, removes the selected vertex
// channels and writes the result to outputPath. Without options the
// channels matching DefaultExclude are removed.
//
// The output is written atomically; on any error it is left untouched.
func Strip(ctx context.Context, inputPath, outputPath string, opts ...Option) (*Result, error) {
	if inputPath == "" {
		return nil, errors.New("input path must not be empty")
	}

	if outputPath == "" {
		return nil, errors.New("output path must not be empty")
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		logger = logging.Discard()
	}

	sel := filter.Selection{
		Profile:     o.profile,
		Exclude:     o.exclude,
		MaxSHDegree: o.maxSHDegree,
	}

	if len(o.profiles) > 0 {
		sel.CustomProfiles = make(map[string]filter.ProfileConfig, len(o.profiles))
		for name, p := range o.profiles {
			sel.CustomProfiles[name] = filter.ProfileConfig{
				Exclude:     p.Exclude,
				MaxSHDegree: p.MaxSHDegree,
				Extends:     p.Extends,
			}
		}
	}

	report, err := strip.Run(ctx, inputPath, outputPath, strip.Options{
		Selection: sel,
		DryRun:    o.dryRun,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Format:          string(report.Format),
		Rows:            report.Rows,
		Retained:        report.Retained,
		Removed:         report.Removed,
		DroppedElements: report.Dropped,
		InputBytes:      report.InputBytes,
		OutputBytes:     report.OutputBytes,
	}, nil
}
