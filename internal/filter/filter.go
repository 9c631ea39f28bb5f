package filter

import (
	"context"

	"github.com/hupe1980/plystrip/internal/ply"
)

// Filter is the interface for all channel filters.
// Filters are stateless: they receive a schema and return a result without
// modifying shared state.
type Filter interface {
	// Apply splits props into included and excluded channels, preserving order.
	Apply(ctx context.Context, props []ply.Property) (*Result, error)
}

// ExcludedChannel records a channel that was excluded by a filter.
type ExcludedChannel struct {
	// Property is the excluded channel.
	Property ply.Property
	// Reason is a human-readable explanation for the exclusion.
	Reason string
}

// Result holds the outcome of a filter application.
type Result struct {
	// Included are the channels that passed the filter, in schema order.
	Included []ply.Property
	// Excluded are the channels removed by the filter, in schema order.
	Excluded []ExcludedChannel
}

// NewResult creates an empty Result.
func NewResult() *Result {
	return &Result{}
}

// IncludedNames returns the names of the included channels.
func (r *Result) IncludedNames() []string {
	names := make([]string, len(r.Included))
	for i, p := range r.Included {
		names[i] = p.Name
	}

	return names
}

// ExcludedNames returns the names of the excluded channels.
func (r *Result) ExcludedNames() []string {
	names := make([]string, len(r.Excluded))
	for i, e := range r.Excluded {
		names[i] = e.Property.Name
	}

	return names
}

// Chain applies multiple filters sequentially, passing the included
// channels from each filter as input to the next.
type Chain struct {
	filters []Filter
}

// NewChain creates a filter chain from the given filters.
func NewChain(filters ...Filter) *Chain {
	return &Chain{filters: filters}
}

// Len returns the number of filters in the chain.
func (c *Chain) Len() int { return len(c.filters) }

// Apply runs all filters in order and accumulates excluded channels.
// Excluded channels are reported in schema order regardless of which filter
// removed them.
func (c *Chain) Apply(ctx context.Context, props []ply.Property) (*Result, error) {
	combined := NewResult()
	current := props
	reasons := make(map[string]string)

	for _, f := range c.filters {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		r, err := f.Apply(ctx, current)
		if err != nil {
			return nil, err
		}

		current = r.Included

		for _, e := range r.Excluded {
			reasons[e.Property.Name] = e.Reason
		}
	}

	combined.Included = current

	for _, p := range props {
		if reason, ok := reasons[p.Name]; ok {
			combined.Excluded = append(combined.Excluded, ExcludedChannel{Property: p, Reason: reason})
		}
	}

	return combined, nil
}
