package version

import (
	"fmt"
	"runtime"
)

const Name = "taxyield-monitor"

// Version information - using semantic versioning
const (
	Major      = 0
	Minor      = 4
	Patch      = 0
	PreRelease = ""
)

// Set with -ldflags "-X github.com/TeneoProtocolAI/taxyield-monitor/pkg/version.GitCommit=..."
var (
	GitCommit = ""
	BuildDate = ""
)

// Version returns the semantic version string
func Version() string {
	v := fmt.Sprintf("%d.%d.%d", Major, Minor, Patch)
	if PreRelease != "" {
		v += "-" + PreRelease
	}
	return v
}

type BuildInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func GetBuildInfo() *BuildInfo {
	return &BuildInfo{
		Name:      Name,
		Version:   Version(),
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String is the one-line form printed by the version subcommand.
func (b *BuildInfo) String() string {
	s := fmt.Sprintf("%s v%s", b.Name, b.Version)
	if len(b.GitCommit) >= 7 {
		s += fmt.Sprintf(" (commit: %s)", b.GitCommit[:7])
	}
	if b.BuildDate != "" {
		s += fmt.Sprintf(" (built: %s)", b.BuildDate)
	}
	return s + fmt.Sprintf(" (go: %s, platform: %s)", b.GoVersion, b.Platform)
}
