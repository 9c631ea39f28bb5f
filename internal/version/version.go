// Package version provides build-time metadata for the plystrip binary.
// Version, GitCommit, and BuildDate are injected at compile time via -ldflags.
// Binaries installed with "go install" fall back to the module build info.
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/Masterminds/semver/v3"
)

// Build-time values injected via -ldflags.
var (
	version   = "dev"
	gitCommit = "none"
	buildDate = "unknown"
)

// Info holds the build metadata for the binary.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
	Release   bool   `json:"release"`
}

// GetInfo returns the current build information.
func GetInfo() Info {
	v, commit, date := version, gitCommit, buildDate

	if bi, ok := debug.ReadBuildInfo(); ok {
		v, commit, date = fromBuildInfo(bi, v, commit, date)
	}

	return Info{
		Version:   v,
		GitCommit: shortCommit(commit),
		BuildDate: date,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		Release:   isRelease(v),
	}
}

// fromBuildInfo fills values still at their defaults from the module build
// info. Values injected via -ldflags win.
func fromBuildInfo(bi *debug.BuildInfo, v, commit, date string) (string, string, string) {
	if v == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		v = bi.Main.Version
	}

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if commit == "none" {
				commit = s.Value
			}
		case "vcs.time":
			if date == "unknown" {
				date = s.Value
			}
		}
	}

	return v, commit, date
}

// isRelease reports whether v is a semantic version without a pre-release
// suffix.
func isRelease(v string) bool {
	sv, err := semver.NewVersion(v)
	if err != nil {
		return false
	}

	return sv.Prerelease() == ""
}

// String returns a human-readable single-line version string.
func (i Info) String() string {
	return fmt.Sprintf("plystrip %s (commit: %s, built: %s, %s %s)",
		i.Version, i.GitCommit, i.BuildDate, i.GoVersion, i.Platform)
}

// JSON returns the version info as indented JSON.
func (i Info) JSON() (string, error) {
	data, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling version info: %w", err)
	}

	return string(data), nil
}

// shortCommit truncates a commit SHA to 7 characters.
func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}

	return commit
}
