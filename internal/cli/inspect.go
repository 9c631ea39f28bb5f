package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/plystrip/internal/config"
	"github.com/hupe1980/plystrip/internal/filter"
	"github.com/hupe1980/plystrip/internal/ply"
	"github.com/hupe1980/plystrip/internal/strip"
)

type inspectOptions struct {
	format string
}

func newInspectCommand() *cobra.Command {
	opts := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect <file.ply>",
		Short: "Show the layout of a PLY file and what a strip would remove",
		Long: `Inspect reads the header of a PLY file and prints its format,
version, comments, elements and properties. Vertex properties matched by
the current channel selection are marked with "strip".

Only the header is parsed, so inspect is fast even on large captures.`,
		Args: usageArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	registerChannelFlags(cmd)
	cmd.Flags().StringVar(&opts.format, "format", "table", "output format: table, json, yaml")

	return cmd
}

// inspectResult is the structured output of the inspect command.
type inspectResult struct {
	File     string        `json:"file" yaml:"file"`
	Size     int64         `json:"size" yaml:"size"`
	Format   string        `json:"format" yaml:"format"`
	Version  string        `json:"version" yaml:"version"`
	Comments []string      `json:"comments,omitempty" yaml:"comments,omitempty"`
	ObjInfo  []string      `json:"objInfo,omitempty" yaml:"objInfo,omitempty"`
	Elements []elementInfo `json:"elements" yaml:"elements"`
	Stripped int           `json:"stripped" yaml:"stripped"`
	Retained int           `json:"retained" yaml:"retained"`
}

type elementInfo struct {
	Name       string         `json:"name" yaml:"name"`
	Count      int            `json:"count" yaml:"count"`
	Properties []propertyInfo `json:"properties" yaml:"properties"`
}

type propertyInfo struct {
	Name   string `json:"name" yaml:"name"`
	Type   string `json:"type" yaml:"type"`
	Strip  bool   `json:"strip,omitempty" yaml:"strip,omitempty"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

func runInspect(ctx context.Context, w io.Writer, path string, opts *inspectOptions) error {
	switch opts.format {
	case "table", "json", "yaml":
	default:
		return &ExitError{Code: exitUsage, Err: fmt.Errorf("unknown format %q: expected table, json, yaml", opts.format)}
	}

	h, size, err := strip.ReadHeaderFile(path)
	if err != nil {
		return &ExitError{Code: exitFailed, Err: err}
	}

	chain, err := config.FromContext(ctx).Selection().Build()
	if err != nil {
		return &ExitError{Code: exitCode(err), Err: err}
	}

	result, err := buildInspectResult(ctx, path, size, h, chain)
	if err != nil {
		return &ExitError{Code: exitCode(err), Err: err}
	}

	switch opts.format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		if err := enc.Encode(result); err != nil {
			return &ExitError{Code: exitFailed, Err: fmt.Errorf("encoding JSON: %w", err)}
		}
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		if err := enc.Encode(result); err != nil {
			return &ExitError{Code: exitFailed, Err: fmt.Errorf("encoding YAML: %w", err)}
		}

		if err := enc.Close(); err != nil {
			return &ExitError{Code: exitFailed, Err: fmt.Errorf("encoding YAML: %w", err)}
		}
	default:
		printInspectTable(w, result)
	}

	return nil
}

func buildInspectResult(ctx context.Context, path string, size int64, h *ply.Header, flt filter.Filter) (*inspectResult, error) {
	result := &inspectResult{
		File:     path,
		Size:     size,
		Format:   string(h.Format),
		Version:  h.Version,
		Comments: h.Comments,
		ObjInfo:  h.ObjInfo,
	}

	for _, e := range h.Elements {
		ei := elementInfo{Name: e.Name, Count: e.Count}

		reasons := map[string]string{}

		if e.Name == filter.VertexElement {
			r, err := flt.Apply(ctx, e.Properties)
			if err != nil {
				return nil, err
			}

			for _, ex := range r.Excluded {
				reasons[ex.Property.Name] = ex.Reason
			}

			result.Stripped = len(r.Excluded)
			result.Retained = len(r.Included)
		}

		for _, p := range e.Properties {
			reason, stripped := reasons[p.Name]
			ei.Properties = append(ei.Properties, propertyInfo{
				Name:   p.Name,
				Type:   typeString(p),
				Strip:  stripped,
				Reason: reason,
			})
		}

		result.Elements = append(result.Elements, ei)
	}

	return result, nil
}

func typeString(p ply.Property) string {
	if p.List {
		return fmt.Sprintf("list %s %s", p.CountTypeName(), p.TypeName())
	}

	return p.TypeName()
}

func printInspectTable(w io.Writer, result *inspectResult) {
	_, _ = fmt.Fprintf(w, "=== %s ===\n", result.File)
	_, _ = fmt.Fprintf(w, "Format:  %s %s\n", result.Format, result.Version)
	_, _ = fmt.Fprintf(w, "Size:    %s\n", humanize.Bytes(uint64(result.Size)))

	for _, c := range result.Comments {
		_, _ = fmt.Fprintf(w, "Comment: %s\n", c)
	}

	for _, o := range result.ObjInfo {
		_, _ = fmt.Fprintf(w, "ObjInfo: %s\n", o)
	}

	for _, e := range result.Elements {
		_, _ = fmt.Fprintf(w, "\n--- Element %s (%s rows, %d properties) ---\n",
			e.Name, humanize.Comma(int64(e.Count)), len(e.Properties))

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "PROPERTY\tTYPE\tACTION")

		for _, p := range e.Properties {
			action := "keep"
			if p.Strip {
				action = "strip"
			}

			if e.Name != filter.VertexElement {
				action = "drop"
			}

			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name, p.Type, action)
		}

		_ = tw.Flush()
	}

	_, _ = fmt.Fprintf(w, "\n%d channel(s) would be stripped, %d retained\n", result.Stripped, result.Retained)
}
