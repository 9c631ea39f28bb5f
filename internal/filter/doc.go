// Package filter selects which per-vertex channels of a PLY file survive a
// strip. It supports exclusion by case-insensitive name pattern and by
// spherical-harmonic degree, named profiles bundling those rules, and the
// [Strip] projection that builds a narrowed file from the retained columns.
//
// The package is built around the [Filter] interface and [Chain] type, which
// allow composable, ordered filter application.
package filter
