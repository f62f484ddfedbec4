// SPDX-License-Identifier: MIT
package build

import "testing"

func TestInitializeKeepsDefaultsWhenUnset(t *testing.T) {
	Initialize()
	flags := GetBuildFlags()
	if flags.Name != "capstan" {
		t.Errorf("Name = %q, expected capstan", flags.Name)
	}
	if flags.Version != "dev" {
		t.Errorf("Version = %q, expected dev", flags.Version)
	}
}

func TestInitializePicksUpLinkerValues(t *testing.T) {
	buildCommit = "abc1234"
	buildVersion = "1.2.3"
	defer func() {
		buildCommit = ""
		buildVersion = ""
		buildFlags.Commit = "unknown"
		buildFlags.Version = "dev"
	}()

	Initialize()
	flags := GetBuildFlags()
	if flags.Commit != "abc1234" {
		t.Errorf("Commit = %q, expected abc1234", flags.Commit)
	}
	if flags.Version != "1.2.3" {
		t.Errorf("Version = %q, expected 1.2.3", flags.Version)
	}
}
