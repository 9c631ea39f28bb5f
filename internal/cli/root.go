// Package cli implements the cobra command tree for plystrip.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/plystrip/internal/config"
	"github.com/hupe1980/plystrip/internal/filter"
	"github.com/hupe1980/plystrip/internal/logging"
)

// Process exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
	exitConfig = 3
)

// ExitError wraps an error with a specific process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}

	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Execute builds the command tree, runs it, and returns the exit code.
func Execute() int {
	cmd := NewRootCommand()

	return report(cmd.Execute(), os.Stderr)
}

// report prints err to w and returns the matching exit code.
func report(err error, w io.Writer) int {
	if err == nil {
		return exitOK
	}

	_, _ = fmt.Fprintf(w, "Error: %v\n", err)

	return exitCode(err)
}

// exitCode maps err to a process exit code. An explicit ExitError wins;
// channel selection errors map to exitConfig; everything else is exitFailed.
func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	if filter.IsConfigError(err) {
		return exitConfig
	}

	return exitFailed
}

// NewRootCommand constructs the top-level cobra.Command with all
// subcommands attached.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	opts := &stripOptions{}

	cmd := &cobra.Command{
		Use:   "plystrip <input.ply> <output.ply>",
		Short: "Strip higher-order spherical-harmonic channels from PLY files",
		Long: `plystrip removes vertex channels from a PLY point cloud and writes
the remaining channels, unchanged, to a new file.

By default every vertex property whose name starts with "f_rest_" or
"sh_" (case-insensitive) is removed, leaving the position, base color,
opacity, scale and rotation of Gaussian splat captures. The input's
encoding (ascii, binary little or big endian), format version, comments
and the order of the remaining channels are preserved.

Exit codes:
  0  Success
  1  Input could not be read, parsed or written
  2  Invalid arguments, flags or config file
  3  Channel selection removed nothing or everything`,
		Example: `  plystrip scene.ply scene-dc.ply
  plystrip --max-sh-degree 1 scene.ply scene-d1.ply
  plystrip --exclude 'nx|ny|nz' scene.ply scene-lean.ply
  plystrip --dry-run scene.ply -`,
		Args:          usageArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd, cfgFile)
			if err != nil {
				code := exitUsage
				if filter.IsConfigError(err) {
					code = exitConfig
				}

				return &ExitError{Code: code, Err: err}
			}

			logger := logging.SetupWithWriter(cfg, cmd.ErrOrStderr())

			ctx := cmd.Context()
			ctx = config.NewContext(ctx, cfg)
			ctx = logging.NewContext(ctx, logger)
			cmd.SetContext(ctx)

			logger.Debug("configuration loaded",
				slog.String("logLevel", cfg.LogLevel),
				slog.String("logFormat", cfg.LogFormat),
				slog.String("configFile", cfg.ConfigFile),
			)

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStrip(cmd.Context(), cmd, args[0], args[1], opts)
		},
	}

	// Global persistent flags.
	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: .plystrip.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text, json")
	pf.Bool("no-color", false, "disable colored output")
	pf.BoolP("quiet", "q", false, "suppress non-essential output")

	registerChannelFlags(cmd)
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "compute the result without writing the output")

	// Flag parsing errors return exit code 2.
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: exitUsage, Err: err}
	})

	cmd.AddCommand(
		newVersionCommand(),
		newInspectCommand(),
		newDiffCommand(),
		newWatchCommand(),
		newCompletionCommand(),
	)

	return cmd
}

// usageArgs requires exactly n positional arguments. On mismatch the usage
// is printed to stderr and the command fails with exitUsage.
func usageArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) == n {
			return nil
		}

		_, _ = fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())

		return &ExitError{
			Code: exitUsage,
			Err:  fmt.Errorf("accepts %d arg(s), received %d", n, len(args)),
		}
	}
}
