package config

import (
	"github.com/Masterminds/semver/v3"
)

// FormatVersionConstraint is the range of configuration file format versions this
// build understands.
const FormatVersionConstraint = "~0.1"

var formatConstraints *semver.Constraints

func init() {
	var err error
	formatConstraints, err = semver.NewConstraint(FormatVersionConstraint)
	if err != nil {
		panic(err)
	}
}

// FormatVersionSupported reports whether version satisfies FormatVersionConstraint.
func FormatVersionSupported(version string) bool {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return formatConstraints.Check(v)
}
