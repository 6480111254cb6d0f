package version

import (
	"runtime/debug"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMergeBuildInfo(t *testing.T) {
	bi := &debug.BuildInfo{
		Main: debug.Module{Path: "github.com/conneroisu/docpack", Version: "(devel)"},
		Deps: []*debug.Module{
			{Path: "github.com/spf13/cobra", Version: "v1.9.1"},
			{Path: "github.com/evanw/esbuild", Version: "v0.19.12"},
		},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2024-05-01T10:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	info := merge(BuildInfo{Version: "dev", GitCommit: "unknown", BundlerVersion: "unknown"}, bi)

	assert.Equal(t, "dev-0123456", info.Version)
	assert.Equal(t, "0123456789abcdef", info.GitCommit)
	assert.Equal(t, "v0.19.12", info.BundlerVersion)
	assert.True(t, info.Dirty)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), info.BuildTime)
	assert.False(t, info.IsRelease())
	assert.Equal(t, "dev-0123456", info.Short())
}

func TestLdflagsWin(t *testing.T) {
	bi := &debug.BuildInfo{
		Main:     debug.Module{Version: "v0.0.1"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffffffffffff"}},
	}

	info := merge(BuildInfo{Version: "v1.2.0", GitCommit: "abcdef1234"}, bi)

	assert.Equal(t, "v1.2.0", info.Version)
	assert.Equal(t, "abcdef1234", info.GitCommit)
	assert.True(t, info.IsRelease())
	assert.Equal(t, "v1.2.0 (abcdef1)", info.Short())
}

func TestString(t *testing.T) {
	info := BuildInfo{
		Version:        "v1.0.0",
		GitCommit:      "unknown",
		GoVersion:      "go1.24.4",
		Platform:       "linux/amd64",
		BundlerVersion: "v0.19.12",
		Dirty:          true,
	}

	out := info.String()
	assert.Contains(t, out, "docpack v1.0.0 (dirty)\n")
	assert.Contains(t, out, "esbuild: v0.19.12\n")
	assert.Contains(t, out, "Platform: linux/amd64\n")
	assert.NotContains(t, out, "Built:")
}

func TestParseBuildTime(t *testing.T) {
	assert.True(t, parseBuildTime("unknown").IsZero())
	assert.True(t, parseBuildTime("yesterday").IsZero())
	assert.Equal(t, 2023, parseBuildTime("2023-01-02 03:04:05").Year())
}
