// Package version holds build information stamped in with -ldflags:
//
//	go build -ldflags "-X github.com/bdobrica/Kotoba/common/version.Version=v1.2.0"
package version

import "runtime/debug"

var (
	Version   = "v0.0.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Build is the build information as reported by /status and `kotoba version`.
type Build struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version,omitempty"`
}

// Get returns the build information. The commit falls back to the VCS
// revision the Go toolchain embedded when no ldflags were given.
func Get() Build {
	b := Build{Version: Version, Commit: GitCommit, BuildTime: BuildTime}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}
	b.GoVersion = info.GoVersion
	if b.Commit == "unknown" {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				b.Commit = s.Value
			}
		}
	}
	return b
}

// Info returns a one-line version string.
func Info() string {
	b := Get()
	return b.Version + " (" + b.Commit + ") built at " + b.BuildTime
}
