// Package version exposes build-time information injected via ldflags.
package version

var (
	// Version is the release version, or "dev" for local builds
	Version = "dev"
	// Commit is the git commit hash the binary was built from
	Commit = "dev"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)
