// Package version reports build metadata for the docpack binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const esbuildModule = "github.com/evanw/esbuild"

// Set at build time with -ldflags "-X github.com/conneroisu/docpack/internal/version.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	// BuildTime is RFC3339.
	BuildTime = "unknown"
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version        string    `json:"version"`
	GitCommit      string    `json:"git_commit"`
	BuildTime      time.Time `json:"build_time"`
	GoVersion      string    `json:"go_version"`
	Platform       string    `json:"platform"`
	BundlerVersion string    `json:"bundler_version"`
	Dirty          bool      `json:"dirty"`
}

// Get collects the ldflags values, falling back to the module build info
// embedded by the Go toolchain.
func Get() BuildInfo {
	info := BuildInfo{
		Version:        Version,
		GitCommit:      GitCommit,
		BuildTime:      parseBuildTime(BuildTime),
		GoVersion:      runtime.Version(),
		Platform:       runtime.GOOS + "/" + runtime.GOARCH,
		BundlerVersion: "unknown",
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	return merge(info, bi)
}

func merge(info BuildInfo, bi *debug.BuildInfo) BuildInfo {
	if info.Version == "" || info.Version == "dev" {
		if v := bi.Main.Version; v != "" && v != "(devel)" {
			info.Version = v
		}
	}

	for _, dep := range bi.Deps {
		if dep.Path == esbuildModule {
			info.BundlerVersion = dep.Version
			if dep.Replace != nil {
				info.BundlerVersion = dep.Replace.Version
			}
		}
	}

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "" || info.GitCommit == "unknown" {
				info.GitCommit = s.Value
			}
		case "vcs.time":
			if info.BuildTime.IsZero() {
				info.BuildTime = parseBuildTime(s.Value)
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}

	if info.Version == "dev" && len(info.GitCommit) >= 7 && info.GitCommit != "unknown" {
		info.Version = "dev-" + info.GitCommit[:7]
	}
	return info
}

// Short returns the version, plus the abbreviated commit for release builds.
func (b BuildInfo) Short() string {
	if b.IsRelease() && len(b.GitCommit) >= 7 && b.GitCommit != "unknown" {
		return fmt.Sprintf("%s (%s)", b.Version, b.GitCommit[:7])
	}
	return b.Version
}

// IsRelease reports whether the binary carries a real version number.
func (b BuildInfo) IsRelease() bool {
	return b.Version != "dev" && !strings.HasPrefix(b.Version, "dev-")
}

// String renders the multi-line text form used by `docpack version`.
func (b BuildInfo) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "docpack %s", b.Short())
	if b.Dirty {
		sb.WriteString(" (dirty)")
	}
	sb.WriteByte('\n')
	if !b.BuildTime.IsZero() {
		fmt.Fprintf(&sb, "Built: %s\n", b.BuildTime.UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	fmt.Fprintf(&sb, "esbuild: %s\n", b.BundlerVersion)
	fmt.Fprintf(&sb, "Go: %s\n", b.GoVersion)
	fmt.Fprintf(&sb, "Platform: %s\n", b.Platform)
	return sb.String()
}

func parseBuildTime(s string) time.Time {
	if s == "" || s == "unknown" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
