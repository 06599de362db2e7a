// Package version holds the build version of notifsync.
package version

import "fmt"

const (
	major = 0
	minor = 3
	patch = 0
)

// preRelease is appended to the version string when set. It may be
// overridden at link time with -ldflags "-X".
var preRelease = "beta"

// String returns the semantic version string.
func String() string {
	v := fmt.Sprintf("%d.%d.%d", major, minor, patch)
	if preRelease != "" {
		v += "-" + preRelease
	}
	return v
}

// UserAgent is sent to the notification backend on every request.
func UserAgent() string {
	return "notifsync/" + String()
}
