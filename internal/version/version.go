// Package version holds the tier version recorded into layout manifests and
// reported by the CLI.
package version

import (
	"runtime/debug"
	"strings"
)

// Default is the version value used when none was embedded in the build.
const Default = "dev"

// version is set via ldflags by release builds of the CLI.
var version string

// Get returns the module version: the ldflags value when set, otherwise the
// version recorded in the embedding module's build info, otherwise Default.
func Get() string {
	if version != "" {
		return version
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range info.Deps {
			if strings.HasPrefix(dep.Path, "github.com/wasmkit/ipint") {
				return dep.Version
			}
		}
	}
	return Default
}
