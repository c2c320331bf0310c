// Package version reports the wifiprov build identity.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// Set at link time:
//
//	go build -ldflags="-X github.com/muurk/wifiprov/internal/version.Version=v0.3.0 \
//	                   -X github.com/muurk/wifiprov/internal/version.Commit=abc1234"
//
// Unset values are filled from the module's VCS stamp, then "dev"/"unknown".
var (
	// Version is the release tag
	Version = ""
	// Commit is the short git revision
	Commit = ""
)

// Info is the resolved build identity. It is advertised over mDNS and
// returned by the status endpoint.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

var (
	once     sync.Once
	resolved Info
)

// Get resolves the build identity once and returns it.
func Get() Info {
	once.Do(func() {
		resolved = resolve(Version, Commit, readBuildInfo)
	})
	return resolved
}

// Short returns just the version, suitable for a TXT record.
func Short() string {
	return Get().Version
}

// Full returns the version with its commit.
func Full() string {
	i := Get()
	return fmt.Sprintf("%s (commit: %s)", i.Version, i.Commit)
}

func readBuildInfo() (*debug.BuildInfo, bool) {
	return debug.ReadBuildInfo()
}

func resolve(ver, commit string, read func() (*debug.BuildInfo, bool)) Info {
	info := Info{
		Version:   ver,
		Commit:    commit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if bi, ok := read(); ok {
		if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		if info.Commit == "" {
			info.Commit = vcsCommit(bi.Settings)
		}
	}

	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	return info
}

// vcsCommit returns the 7-character revision, marked -dirty for modified trees
func vcsCommit(settings []debug.BuildSetting) string {
	var rev string
	var dirty bool
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev == "" {
		return ""
	}
	if len(rev) > 7 {
		rev = rev[:7]
	}
	if dirty {
		rev += "-dirty"
	}
	return rev
}
