package main

import (
	_ "embed"
	"runtime/debug"
	"strings"
)

//go:embed VERSION
var embeddedVersion string

// Version reports the gateway version. It is also the info.version of the
// served OpenAPI document.
//
// A tagged `go install` build reports its module version. Anything else
// reports "devel-" plus the VERSION file, suffixed with the short VCS
// revision when the toolchain recorded one.
func Version() string {
	base := strings.TrimSpace(embeddedVersion)

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return base
	}

	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	if rev := revision(info.Settings); rev != "" {
		return "devel-" + base + "+" + rev
	}
	return "devel-" + base
}

func revision(settings []debug.BuildSetting) string {
	for _, s := range settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return s.Value[:7]
		}
	}
	return ""
}
