// Package version carries build identification, overridden at link
// time with -ldflags "-X".
package version

var (
	// Version is the release tag, or "dev" for local builds.
	Version = "dev"
	// GitSHA is the commit the binary was built from.
	GitSHA = "unknown"
)

// String renders the build identity for logs and the API banner.
func String() string {
	return Version + " (" + GitSHA + ")"
}
