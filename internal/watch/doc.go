// Package watch re-runs the strip pipeline whenever its input file changes.
// It watches the input's directory, filters events down to the watched
// paths, debounces rapid writes and reports each run on a status writer.
package watch
