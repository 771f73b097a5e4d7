package version

import (
	"runtime/debug"
	"strings"
	"testing"
	"time"
)

func TestCurrentPrefersBuildVersion(t *testing.T) {
	old := buildVersion
	buildVersion = "v1.2.3+dirty"
	t.Cleanup(func() { buildVersion = old })

	if got := Current(); got != "v1.2.3" {
		t.Fatalf("expected build version, got %q", got)
	}
	if got := CurrentWithDirty(); got != "v1.2.3+dirty" {
		t.Fatalf("expected dirty build version, got %q", got)
	}
}

func vcsInfo(modified bool) *debug.BuildInfo {
	ts := time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC)
	mod := "false"
	if modified {
		mod = "true"
	}
	return &debug.BuildInfo{
		Main: debug.Module{Path: defaultModule, Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "1234567890abcdef"},
			{Key: "vcs.time", Value: ts.Format(time.RFC3339)},
			{Key: "vcs.modified", Value: mod},
		},
	}
}

func TestPseudoFromBuildInfo(t *testing.T) {
	got := pseudoFromBuildInfo(vcsInfo(true), true)
	if want := "v0.0.0-20250102030405-1234567890ab+dirty"; got != want {
		t.Fatalf("pseudo version = %q, want %q", got, want)
	}
	if got := pseudoFromBuildInfo(vcsInfo(true), false); strings.HasSuffix(got, "+dirty") {
		t.Fatalf("unexpected dirty suffix: %q", got)
	}
	if pseudoFromBuildInfo(nil, true) != "" {
		t.Fatalf("expected empty version for nil build info")
	}
	if pseudoFromBuildInfo(&debug.BuildInfo{}, true) != "" {
		t.Fatalf("expected empty version without vcs settings")
	}
}

func TestFromBuildInfo(t *testing.T) {
	info := vcsInfo(false)
	if got := fromBuildInfo(info, false); got != "v0.0.0-20250102030405-1234567890ab" {
		t.Fatalf("devel build = %q", got)
	}
	info.Main.Version = "v0.4.0"
	if got := fromBuildInfo(info, false); got != "v0.4.0" {
		t.Fatalf("tagged build = %q", got)
	}
	if got := fromBuildInfo(&debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, false); got != "v0.0.0-unknown" {
		t.Fatalf("bare build = %q", got)
	}
}
