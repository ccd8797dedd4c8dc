package buildinfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

const name = "githistory"

// Version returns the module version or "dev" when unset.
func Version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info == nil {
		return "dev"
	}
	version := info.Main.Version
	if version == "" || version == "(devel)" {
		return "dev"
	}
	return version
}

// Revision returns the VCS revision stamped at build time, shortened.
func Revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info == nil {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			if len(setting.Value) > 12 {
				return setting.Value[:12]
			}
			return setting.Value
		}
	}
	return ""
}

// String is the human readable version line.
func String() string {
	s := fmt.Sprintf("%s %s (%s %s/%s)", name, Version(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
	if rev := Revision(); rev != "" {
		s += " rev " + rev
	}
	return s
}

// UserAgent identifies outbound API calls.
func UserAgent() string {
	return name + "/" + Version()
}
