package app

import (
	"github.com/kart-io/docchat/pkg/app/cliflag"
)

// CliOptions is the aggregate options object an application binds to flags
// and config files.
type CliOptions interface {
	// Flags returns the application flags grouped by section.
	Flags() cliflag.NamedFlagSets

	// Complete fills in defaults that depend on other options.
	Complete() error

	// Validate checks every option section and returns the aggregated error.
	Validate() error
}
