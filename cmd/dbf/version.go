package main

import (
	"fmt"
	"runtime/debug"
)

// Set via -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// buildVersionString assembles the --version output, falling back to module
// build info for go-install builds that carry no ldflags.
func buildVersionString() string {
	v := version
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
	}
	if commit == "none" && date == "unknown" {
		return fmt.Sprintf("dbf %s", v)
	}
	return fmt.Sprintf("dbf %s (%s, %s)", v, commit, date)
}
