package server

import (
	"github.com/Masterminds/semver/v3"
)

// Version is the current version of the server.
// The version follows semantic versioning (MAJOR.MINOR.PATCH).
const Version = "0.1.0"

// ApiVersion is the version of the specEditor HTTP surface.
const ApiVersion = "v1"

// versionConstraint accepts clients built against the same minor release.
var versionConstraint *semver.Constraints

func init() {
	var err error
	versionConstraint, err = semver.NewConstraint("~" + Version)
	if err != nil {
		panic(err)
	}
}

// IsVersionCompatible reports whether the given client version is compatible
// with the current version. Returns false for invalid version strings.
func IsVersionCompatible(version string) bool {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return versionConstraint.Check(v)
}
