package cli

import (
	"fmt"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/linebyline/covgate/internal/cli.Version=...".
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// versionString falls back to module build info for `go install` builds,
// which carry no ldflags.
func versionString() string {
	version, commit, date := Version, Commit, Date
	if info, ok := debug.ReadBuildInfo(); ok {
		if version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
		for _, s := range info.Settings {
			switch {
			case s.Key == "vcs.revision" && commit == "unknown":
				commit = s.Value
			case s.Key == "vcs.time" && date == "unknown":
				date = s.Value
			}
		}
	}
	return fmt.Sprintf("covgate %s (commit %s, built %s)", version, commit, date)
}
