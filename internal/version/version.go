package version

import (
	"fmt"
	"runtime/debug"
)

// Set at build time with -ldflags "-X bennypowers.dev/vuextract/internal/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Get returns the release version, falling back to the module version
// recorded by go install.
func Get() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return Version
}

// Full returns the version with the commit and build time when known.
func Full() string {
	v := Get()
	if GitCommit != "unknown" {
		v = fmt.Sprintf("%s (commit: %.7s)", v, GitCommit)
	}
	if BuildTime != "unknown" {
		v += ", built " + BuildTime
	}
	return v
}
