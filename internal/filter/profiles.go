package filter

import (
	"fmt"
	"sort"
)

// ProfileConfig describes a reusable set of channel rules that can be
// applied by name via --profile.
type ProfileConfig struct {
	// Exclude lists name patterns to exclude.
	Exclude []string `mapstructure:"exclude" json:"exclude,omitempty" yaml:"exclude,omitempty"`
	// MaxSHDegree keeps SH bands up to this degree when set.
	MaxSHDegree *int `mapstructure:"max-sh-degree" json:"maxSHDegree,omitempty" yaml:"maxSHDegree,omitempty"`
	// Extends names a built-in profile to extend with these additional rules.
	Extends string `mapstructure:"extends" json:"extends,omitempty" yaml:"extends,omitempty"`
}

func degree(d int) *int { return &d }

// builtinProfiles contains the built-in profile definitions.
var builtinProfiles = map[string]ProfileConfig{
	// sh drops every higher-order SH channel (the default behavior).
	"sh":       {Exclude: []string{DefaultPattern}},
	"degree-0": {MaxSHDegree: degree(0)},
	"degree-1": {MaxSHDegree: degree(1)},
	"degree-2": {MaxSHDegree: degree(2)},
}

// BuiltinProfileNames returns the names of all built-in profiles, sorted.
func BuiltinProfileNames() []string {
	names := make([]string, 0, len(builtinProfiles))
	for name := range builtinProfiles {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// ResolveProfile resolves a profile name to its configuration by checking
// built-in profiles first, then custom profiles.
func ResolveProfile(name string, custom map[string]ProfileConfig) (ProfileConfig, error) {
	if p, ok := builtinProfiles[name]; ok {
		return p, nil
	}

	if p, ok := custom[name]; ok {
		if p.Extends != "" {
			base, err := ResolveProfile(p.Extends, nil)
			if err != nil {
				return ProfileConfig{}, fmt.Errorf("profile %q extends unknown profile %q", name, p.Extends)
			}

			return mergeProfiles(base, p), nil
		}

		return p, nil
	}

	return ProfileConfig{}, fmt.Errorf("unknown profile %q", name)
}

// mergeProfiles merges an extension profile on top of a base profile.
func mergeProfiles(base, ext ProfileConfig) ProfileConfig {
	merged := ProfileConfig{
		Exclude:     append(append([]string{}, base.Exclude...), ext.Exclude...),
		MaxSHDegree: base.MaxSHDegree,
	}

	if ext.MaxSHDegree != nil {
		merged.MaxSHDegree = ext.MaxSHDegree
	}

	return merged
}

// BuildFiltersFromProfile creates the filters for a resolved profile.
func BuildFiltersFromProfile(p ProfileConfig) ([]Filter, error) {
	var filters []Filter

	if len(p.Exclude) > 0 {
		pf, err := NewPatternFilter(p.Exclude...)
		if err != nil {
			return nil, err
		}

		filters = append(filters, pf)
	}

	if p.MaxSHDegree != nil {
		df, err := NewSHDegreeFilter(*p.MaxSHDegree)
		if err != nil {
			return nil, err
		}

		filters = append(filters, df)
	}

	return filters, nil
}

// Selection is the user-facing channel selection: an optional profile plus
// ad-hoc rules layered on top.
type Selection struct {
	Profile        string
	Exclude        []string
	MaxSHDegree    *int
	CustomProfiles map[string]ProfileConfig
}

// Build returns the filter chain for s. An empty selection yields the
// default pattern filter.
func (s Selection) Build() (*Chain, error) {
	var filters []Filter

	if s.Profile != "" {
		p, err := ResolveProfile(s.Profile, s.CustomProfiles)
		if err != nil {
			return nil, err
		}

		pf, err := BuildFiltersFromProfile(p)
		if err != nil {
			return nil, fmt.Errorf("profile %q: %w", s.Profile, err)
		}

		filters = append(filters, pf...)
	}

	adhoc, err := BuildFiltersFromProfile(ProfileConfig{Exclude: s.Exclude, MaxSHDegree: s.MaxSHDegree})
	if err != nil {
		return nil, err
	}

	filters = append(filters, adhoc...)

	if len(filters) == 0 {
		def, err := NewPatternFilter()
		if err != nil {
			return nil, err
		}

		filters = append(filters, def)
	}

	return NewChain(filters...), nil
}
