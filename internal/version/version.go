// Package version holds build identity injected via -ldflags.
package version

var (
	// Version is the release version, "dev" for local builds.
	Version = "dev"
	// GitSHA is the git commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// String returns a one-line human-readable build description.
func String() string {
	return Version + " (" + GitSHA + ", built " + BuildTime + ")"
}
