// SPDX-License-Identifier: MIT
//
// Package build carries metadata embedded into the binary at link
// time: the application name, build timestamp, Git commit hash, and
// semantic version. The values are populated with -ldflags and
// surface in the version subcommand and startup log line.
package build

type ldFlags struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// Package-level variables for build information. These are populated by
// -ldflags during compilation; development builds fall back to the
// defaults below.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:    "capstan",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
)

// Initialize copies build information from the ldflags variables into
// the buildFlags struct, keeping the development defaults for any
// value the linker did not set. Call early in program startup.
func Initialize() {
	if buildName != "" {
		buildFlags.Name = buildName
	}
	if buildTime != "" {
		buildFlags.Time = buildTime
	}
	if buildCommit != "" {
		buildFlags.Commit = buildCommit
	}
	if buildVersion != "" {
		buildFlags.Version = buildVersion
	}
}

// GetBuildFlags returns the current build information. Initialize()
// should be called first so linker-provided values are visible.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
