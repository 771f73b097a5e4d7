package version

import (
	"runtime/debug"
	"strings"
	"time"
)

const defaultModule = "github.com/e4code/e4"

// buildVersion is set via -ldflags "-X github.com/e4code/e4/internal/version.buildVersion=...".
var buildVersion = ""

// Current returns the best available version string (without dirty suffix).
func Current() string {
	return current(false)
}

// CurrentWithDirty returns the best available version string (including dirty suffix when available).
func CurrentWithDirty() string {
	return current(true)
}

// Module returns the module path from build info when available.
func Module() string {
	info, ok := debug.ReadBuildInfo()
	if ok {
		if path := strings.TrimSpace(info.Main.Path); path != "" {
			return path
		}
	}
	return defaultModule
}

func current(includeDirty bool) string {
	if strings.TrimSpace(buildVersion) != "" {
		return normalize(buildVersion, includeDirty)
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "v0.0.0-unknown"
	}
	return fromBuildInfo(info, includeDirty)
}

func fromBuildInfo(info *debug.BuildInfo, includeDirty bool) string {
	if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
		return normalize(v, includeDirty)
	}
	if v := pseudoFromBuildInfo(info, includeDirty); v != "" {
		return v
	}
	return "v0.0.0-unknown"
}

func normalize(v string, includeDirty bool) string {
	value := strings.TrimSpace(v)
	if includeDirty {
		return value
	}
	return strings.TrimSuffix(value, "+dirty")
}

func pseudoFromBuildInfo(info *debug.BuildInfo, includeDirty bool) string {
	if info == nil {
		return ""
	}
	var revision, vcsTime string
	var modified bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.time":
			vcsTime = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if revision == "" || vcsTime == "" {
		return ""
	}
	parsed, err := time.Parse(time.RFC3339, vcsTime)
	if err != nil {
		return ""
	}
	rev := revision
	if len(rev) > 12 {
		rev = rev[:12]
	}
	ver := "v0.0.0-" + parsed.UTC().Format("20060102150405") + "-" + rev
	if modified && includeDirty {
		ver += "+dirty"
	}
	return ver
}
