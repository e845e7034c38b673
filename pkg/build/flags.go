// SPDX-License-Identifier: MIT
//
// Package build exposes the version metadata stamped into the binary with
// -ldflags, for example:
//
//	go build -ldflags "-X forma/pkg/build.buildVersion=0.3.0 -X forma/pkg/build.buildCommit=$(git rev-parse --short HEAD)"
//
// Unstamped development builds fall back to the module information recorded by
// the Go toolchain.
package build

import (
	"fmt"
	"runtime/debug"
)

// Info describes one build of forma.
type Info struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Time    string `json:"time"`
}

// Populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

const unknown = "unknown"

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Current returns the build information. Missing ldflags values are filled from the
// embedded module build info where possible, otherwise "unknown".
func Current() Info {
	info := Info{
		Name:    orUnknown(buildName),
		Version: orUnknown(buildVersion),
		Commit:  orUnknown(buildCommit),
		Time:    orUnknown(buildTime),
	}
	if buildName == "" {
		info.Name = "forma"
	}

	bi, ok := readBuildInfo()
	if !ok {
		return info
	}
	if info.Version == unknown && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == unknown && s.Value != "" {
				info.Commit = shortCommit(s.Value)
			}
		case "vcs.time":
			if info.Time == unknown && s.Value != "" {
				info.Time = s.Value
			}
		}
	}
	return info
}

// Stamped reports whether every ldflags value was provided.
func Stamped() error {
	switch {
	case buildName == "":
		return fmt.Errorf("BuildName is required")
	case buildTime == "":
		return fmt.Errorf("BuildTime is required")
	case buildCommit == "":
		return fmt.Errorf("BuildCommit is required")
	case buildVersion == "":
		return fmt.Errorf("BuildVersion is required")
	}
	return nil
}

// String renders a single version line, e.g. "forma 0.3.0 (a1b2c3d, 2025-04-13)".
func (i Info) String() string {
	return fmt.Sprintf("%s %s (%s, %s)", i.Name, i.Version, i.Commit, i.Time)
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}

func shortCommit(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}
