package app

import (
	"github.com/kart-io/version"
)

// GetVersion reports the git-derived version string baked in at build time
// through the version package's ldflags.
func GetVersion() string {
	return version.Get().GitVersion
}
