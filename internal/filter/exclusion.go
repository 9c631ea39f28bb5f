package filter

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/hupe1980/plystrip/internal/ply"
)

// DefaultPattern matches the higher-order spherical-harmonic channels written
// by 3D Gaussian Splatting trainers (f_rest_*) and the generic sh_* alias.
const DefaultPattern = `f_rest_|sh_`

// restPrefix is the name prefix of higher-order SH coefficients.
const restPrefix = "f_rest_"

var (
	// ErrInvalidPattern is returned when an exclusion pattern does not compile.
	ErrInvalidPattern = errors.New("invalid exclusion pattern")

	// ErrInvalidSHLayout is returned when f_rest_* channels do not form a
	// complete set of SH bands for three color channels.
	ErrInvalidSHLayout = errors.New("unrecognized spherical-harmonic layout")
)

// CompilePattern compiles expr as a case-insensitive regular expression
// anchored at the start of the channel name.
func CompilePattern(expr string) (*regexp.Regexp, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}

	re, err := regexp.Compile("(?i)^(?:" + expr + ")")
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, expr, err)
	}

	return re, nil
}

// PatternFilter excludes channels whose name matches any of its patterns.
type PatternFilter struct {
	patterns []*regexp.Regexp
	sources  []string
}

// NewPatternFilter compiles the given expressions with [CompilePattern].
// With no expressions the [DefaultPattern] is used.
func NewPatternFilter(exprs ...string) (*PatternFilter, error) {
	if len(exprs) == 0 {
		exprs = []string{DefaultPattern}
	}

	f := &PatternFilter{}

	for _, expr := range exprs {
		re, err := CompilePattern(expr)
		if err != nil {
			return nil, err
		}

		f.patterns = append(f.patterns, re)
		f.sources = append(f.sources, expr)
	}

	return f, nil
}

// Match reports whether name is excluded by the filter.
func (f *PatternFilter) Match(name string) bool {
	_, ok := f.match(name)
	return ok
}

func (f *PatternFilter) match(name string) (string, bool) {
	for i, re := range f.patterns {
		if re.MatchString(name) {
			return f.sources[i], true
		}
	}

	return "", false
}

// Apply filters out channels whose name matches.
func (f *PatternFilter) Apply(_ context.Context, props []ply.Property) (*Result, error) {
	r := NewResult()

	for _, p := range props {
		if src, ok := f.match(p.Name); ok {
			r.Excluded = append(r.Excluded, ExcludedChannel{
				Property: p,
				Reason:   fmt.Sprintf("excluded by pattern: %s", src),
			})
		} else {
			r.Included = append(r.Included, p)
		}
	}

	return r, nil
}

// SHDegreeFilter keeps spherical-harmonic bands up to a maximum degree and
// excludes the f_rest_* coefficients of every higher band. Degree 0 is the
// DC term (f_dc_*), which is never touched.
//
// Coefficients are expected in the channel-major order written by 3D Gaussian
// Splatting: f_rest_0 .. f_rest_{k-1} for red, then green, then blue, each
// channel holding (d+1)^2-1 coefficients for a degree d file.
type SHDegreeFilter struct {
	maxDegree int
}

// NewSHDegreeFilter creates a filter keeping SH bands up to maxDegree.
func NewSHDegreeFilter(maxDegree int) (*SHDegreeFilter, error) {
	if maxDegree < 0 {
		return nil, fmt.Errorf("max SH degree must be >= 0, got %d", maxDegree)
	}

	return &SHDegreeFilter{maxDegree: maxDegree}, nil
}

// Apply filters out SH coefficients above the configured degree.
func (f *SHDegreeFilter) Apply(_ context.Context, props []ply.Property) (*Result, error) {
	indices := make(map[string]int)

	for _, p := range props {
		if idx, ok := restIndex(p.Name); ok {
			indices[p.Name] = idx
		}
	}

	r := NewResult()

	if len(indices) == 0 {
		r.Included = append(r.Included, props...)
		return r, nil
	}

	perChannel, err := coefficientsPerChannel(indices)
	if err != nil {
		return nil, err
	}

	for _, p := range props {
		idx, ok := indices[p.Name]
		if !ok {
			r.Included = append(r.Included, p)
			continue
		}

		deg := coefficientDegree(idx % perChannel)
		if deg > f.maxDegree {
			r.Excluded = append(r.Excluded, ExcludedChannel{
				Property: p,
				Reason:   fmt.Sprintf("SH degree %d above max degree %d", deg, f.maxDegree),
			})
		} else {
			r.Included = append(r.Included, p)
		}
	}

	return r, nil
}

// restIndex parses the coefficient index of an f_rest_<n> name.
func restIndex(name string) (int, bool) {
	if len(name) <= len(restPrefix) || !strings.EqualFold(name[:len(restPrefix)], restPrefix) {
		return 0, false
	}

	n, err := strconv.Atoi(name[len(restPrefix):])
	if err != nil || n < 0 {
		return 0, false
	}

	return n, true
}

// coefficientsPerChannel validates that indices are exactly 0..k-1 with k
// three times a full band count.
func coefficientsPerChannel(indices map[string]int) (int, error) {
	seen := make([]int, 0, len(indices))
	for _, idx := range indices {
		seen = append(seen, idx)
	}

	sort.Ints(seen)

	for i, idx := range seen {
		if i != idx {
			return 0, fmt.Errorf("%w: f_rest_ indices are not contiguous from 0 (missing %d)", ErrInvalidSHLayout, i)
		}
	}

	total := len(seen)
	if total%3 != 0 {
		return 0, fmt.Errorf("%w: %d f_rest_ channels is not a multiple of 3", ErrInvalidSHLayout, total)
	}

	per := total / 3
	if coefficientDegree(per-1) < 1 || bandCount(coefficientDegree(per-1)) != per {
		return 0, fmt.Errorf("%w: %d coefficients per color channel", ErrInvalidSHLayout, per)
	}

	return per, nil
}

// bandCount returns the number of non-DC coefficients up to degree d.
func bandCount(d int) int {
	return (d+1)*(d+1) - 1
}

// coefficientDegree returns the SH degree of the j-th non-DC coefficient.
func coefficientDegree(j int) int {
	d := 1
	for j >= bandCount(d) {
		d++
	}

	return d
}
