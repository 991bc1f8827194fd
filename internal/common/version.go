package common

import (
	"fmt"
	"runtime"
)

// AppName is the binary, MCP server and user agent name
const AppName = "indepth"

// Set at release with -ldflags "-X github.com/ternarybob/indepth/internal/common.Version=v1.2.0"
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

func GetVersion() string {
	return Version
}

// GetFullVersion is the line printed by "indepth version"
func GetFullVersion() string {
	return fmt.Sprintf("%s (build: %s, commit: %s, %s/%s)", Version, Build, shortCommit(), runtime.GOOS, runtime.GOARCH)
}

// UserAgent identifies scraper requests to report publishers
func UserAgent() string {
	return fmt.Sprintf("Mozilla/5.0 (compatible; %s/%s; +https://github.com/ternarybob/indepth)", AppName, Version)
}

func shortCommit() string {
	if len(GitCommit) > 7 {
		return GitCommit[:7]
	}
	return GitCommit
}
