package version

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Name is the program name used in the user agent and logs.
const Name = "release-resolver"

var (
	// Version is the semantic version of the build.
	Version = "0.1.0-dev"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return fmt.Sprintf("%s version: %s, commit: %s, built at: %s", Name, Version, Commit, BuildTime)
}

// UserAgent returns the User-Agent sent with every release host request.
// Builds stamped with a malformed version report "dev" instead.
func UserAgent() string {
	v, err := semver.NewVersion(Version)
	if err != nil {
		return Name + "/dev"
	}

	return Name + "/" + v.String()
}
