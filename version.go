package mailrelay

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"
)

// Build metadata, injected with -ldflags "-X github.com/lattiq/mailrelay.Version=...".
// The values below are fallbacks for development builds.
var (
	// Version is the semantic version of the relay.
	Version = "dev"

	// GitCommit is the git commit hash when the binary was built.
	GitCommit = "unknown"

	// BuildDate is the date when the binary was built.
	BuildDate = "unknown"
)

// VersionInfo contains detailed version information.
type VersionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Module    string `json:"module,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
}

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}

// GetVersionInfo returns version information, filling unset build metadata
// from the VCS stamp embedded by the Go toolchain.
func GetVersionInfo() *VersionInfo {
	info := &VersionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	info.Module = buildInfo.Main.Path
	for _, setting := range buildInfo.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.GitCommit == "unknown" {
				info.GitCommit = shortCommit(setting.Value)
			}
		case "vcs.time":
			if info.BuildDate == "unknown" {
				info.BuildDate = setting.Value
			}
		case "vcs.modified":
			info.Modified = setting.Value == "true"
		}
	}

	return info
}

// String returns a human-readable version string.
func (v *VersionInfo) String() string {
	parts := []string{"Version: " + v.Version}

	if v.GitCommit != "unknown" && v.GitCommit != "" {
		commit := v.GitCommit
		if v.Modified {
			commit += "-dirty"
		}
		parts = append(parts, "Commit: "+commit)
	}
	if v.BuildDate != "unknown" && v.BuildDate != "" {
		parts = append(parts, "Built: "+v.BuildDate)
	}
	parts = append(parts, "Go: "+v.GoVersion, "Platform: "+v.Platform)

	return strings.Join(parts, ", ")
}

// UserAgent returns the User-Agent sent to providers.
func (v *VersionInfo) UserAgent() string {
	return fmt.Sprintf("mailrelay/%s (%s)", v.Version, v.Platform)
}

// IsDevBuild returns true if this is a development build.
func (v *VersionInfo) IsDevBuild() bool {
	return strings.Contains(v.Version, "dev") || v.Modified || v.GitCommit == "unknown"
}

// PrintVersion writes version information to w.
func PrintVersion(w io.Writer) {
	info := GetVersionInfo()
	fmt.Fprintln(w, "Mail Relay")
	fmt.Fprintln(w, info.String())
	if info.Module != "" {
		fmt.Fprintf(w, "Module: %s\n", info.Module)
	}
}

func shortCommit(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
