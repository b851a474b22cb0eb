// Package version reports the build version
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Build is set with -ldflags "-X github.com/effective-security/keyhandler/internal/version.Build=vX.Y.Z"
var Build string

// Info describes the build
type Info struct {
	Build   string
	Runtime string
}

// Current returns the version of the running binary
func Current() Info {
	v := Info{
		Build:   Build,
		Runtime: runtime.Version(),
	}
	if v.Build == "" {
		v.Build = "devel"
		if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			v.Build = bi.Main.Version
		}
	}
	return v
}

func (v Info) String() string {
	return fmt.Sprintf("%s (%s)", v.Build, v.Runtime)
}
