package filter

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/plystrip/internal/ply"
)

// VertexElement is the name of the point-cloud element that gets stripped.
const VertexElement = "vertex"

var (
	// ErrElementNotFound is returned when the input has no vertex element.
	ErrElementNotFound = errors.New("element not found")

	// ErrNoChannelsMatched is returned when the filter excludes nothing.
	// The output would equal the input, which almost always means the
	// pattern is wrong.
	ErrNoChannelsMatched = errors.New("no channels matched the exclusion rules")

	// ErrAllChannelsMatched is returned when the filter excludes every channel.
	ErrAllChannelsMatched = errors.New("exclusion rules matched every channel")
)

// IsConfigError reports whether err stems from the channel selection rather
// than from the input file.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrNoChannelsMatched) ||
		errors.Is(err, ErrAllChannelsMatched) ||
		errors.Is(err, ErrInvalidPattern) ||
		errors.Is(err, ErrInvalidSHLayout)
}

// StripResult describes a completed projection.
type StripResult struct {
	*Result

	// Element is the stripped element name.
	Element string
	// Rows is the row count of the element, unchanged by the strip.
	Rows int
	// Dropped lists other elements of the input that the output omits.
	Dropped []string
}

// Plan applies flt to the vertex schema described by h and enforces the
// channel guards without touching any data.
func Plan(ctx context.Context, h *ply.Header, flt Filter) (*StripResult, error) {
	decl, ok := h.Element(VertexElement)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrElementNotFound, VertexElement)
	}

	r, err := flt.Apply(ctx, decl.Properties)
	if err != nil {
		return nil, err
	}

	if len(r.Excluded) == 0 {
		return nil, fmt.Errorf("%w (%d channels checked)", ErrNoChannelsMatched, len(decl.Properties))
	}

	if len(r.Included) == 0 {
		return nil, fmt.Errorf("%w (%d channels)", ErrAllChannelsMatched, len(decl.Properties))
	}

	sr := &StripResult{Result: r, Element: decl.Name, Rows: decl.Count}

	for _, e := range h.Elements {
		if e.Name != VertexElement {
			sr.Dropped = append(sr.Dropped, e.Name)
		}
	}

	return sr, nil
}

// ProjectHeader returns the header a strip planned by sr produces from h.
func ProjectHeader(h *ply.Header, sr *StripResult) *ply.Header {
	return &ply.Header{
		Format:   h.Format,
		Version:  h.Version,
		Comments: h.Comments,
		ObjInfo:  h.ObjInfo,
		Elements: []ply.ElementDecl{{
			Name:       sr.Element,
			Count:      sr.Rows,
			Properties: sr.Included,
		}},
	}
}

// Strip builds a new file holding only the retained vertex channels. The
// retained columns are shared with f, not copied; format, version, comments
// and obj_info are carried over. f itself is left unchanged.
func Strip(ctx context.Context, f *ply.File, flt Filter) (*ply.File, *StripResult, error) {
	sr, err := Plan(ctx, f.Header(), flt)
	if err != nil {
		return nil, nil, err
	}

	v, _ := f.Element(VertexElement)

	cols := make([]*ply.Column, 0, len(sr.Included))

	for _, p := range sr.Included {
		c, ok := v.Column(p.Name)
		if !ok {
			return nil, nil, fmt.Errorf("filter returned unknown channel %q", p.Name)
		}

		cols = append(cols, c)
	}

	e, err := ply.NewElement(v.Name, v.Count, cols...)
	if err != nil {
		return nil, nil, err
	}

	out := &ply.File{
		Format:   f.Format,
		Version:  f.Version,
		Comments: f.Comments,
		ObjInfo:  f.ObjInfo,
		Elements: []*ply.Element{e},
	}

	return out, sr, nil
}
