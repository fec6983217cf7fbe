// Package version exposes the annobatch build version.
package version

// version is overridden at build time via
// -ldflags "-X github.com/annobatch/annobatch/pkg/version.version=v1.2.3".
var version = "dev" //nolint:gochecknoglobals // Build-time injection target.

// GetVersion returns the build version string.
func GetVersion() string {
	return version
}
