package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestResolveLdflagsWin(t *testing.T) {
	read := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main:     debug.Module{Version: "v9.9.9"},
			Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffffffffffff"}},
		}, true
	}

	got := resolve("v0.3.0", "abc1234", read)
	if got.Version != "v0.3.0" || got.Commit != "abc1234" {
		t.Errorf("resolve() = %+v, want ldflags values", got)
	}
}

func TestResolveFromBuildInfo(t *testing.T) {
	read := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main: debug.Module{Version: "v1.2.0"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef"},
				{Key: "vcs.modified", Value: "true"},
			},
		}, true
	}

	got := resolve("", "", read)
	if got.Version != "v1.2.0" {
		t.Errorf("Version = %q, want v1.2.0", got.Version)
	}
	if got.Commit != "0123456-dirty" {
		t.Errorf("Commit = %q, want 0123456-dirty", got.Commit)
	}
}

func TestResolveFallbacks(t *testing.T) {
	tests := []struct {
		name string
		read func() (*debug.BuildInfo, bool)
	}{
		{"no build info", func() (*debug.BuildInfo, bool) { return nil, false }},
		{"devel build", func() (*debug.BuildInfo, bool) {
			return &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, true
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolve("", "", tt.read)
			if got.Version != "dev" {
				t.Errorf("Version = %q, want dev", got.Version)
			}
			if got.Commit != "unknown" {
				t.Errorf("Commit = %q, want unknown", got.Commit)
			}
			if !strings.Contains(got.Platform, "/") {
				t.Errorf("Platform = %q, want os/arch", got.Platform)
			}
		})
	}
}

func TestFull(t *testing.T) {
	full := Full()
	if !strings.HasPrefix(full, Short()) || !strings.Contains(full, "commit:") {
		t.Errorf("Full() = %q", full)
	}
}
