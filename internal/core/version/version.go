// Package version reports what build is running
package version

import "runtime/debug"

// BuildInfo is served on /meta/service and printed by osrp-fusion version
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// set with -ldflags "-X <module>/internal/core/version.version=v0.3.0"
var (
	version = "dev"
	commit  = ""
	date    = ""
)

// readBuild is swapped in tests
var readBuild = debug.ReadBuildInfo

// Info fills commit and date from the embedded vcs stamp when ldflags left them empty
func Info(service string) BuildInfo {
	if service == "" {
		service = "osrp"
	}
	bi := BuildInfo{Service: service, Version: version, Commit: commit, Date: date}
	if info, ok := readBuild(); ok {
		for _, s := range info.Settings {
			switch {
			case s.Key == "vcs.revision" && bi.Commit == "":
				bi.Commit = s.Value
			case s.Key == "vcs.time" && bi.Date == "":
				bi.Date = s.Value
			}
		}
	}
	if bi.Commit == "" {
		bi.Commit = "none"
	}
	if bi.Date == "" {
		bi.Date = "unknown"
	}
	return bi
}
