// Package vars holds build-time variables populated via the linker (ldflags).
package vars

import (
	"fmt"
	"os"
	"time"
)

var (
	// Name of the project
	Name = "Minewatch"

	// Version of application (git tag), e.g. v1.2.3
	Version = "dev"

	// Commit is the current git commit SHA
	Commit = "unknown"

	// BuildTime is the time of the build, RFC3339 UTC
	BuildTime = time.Unix(0, 0)

	// URL to repository
	URL = "https://github.com/minewatch/minewatch"

	_buildTime string
)

// BuildInfo exposes safe build metadata for the version endpoint.
type BuildInfo struct {
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Commit      string    `json:"commit"`
	CommitShort string    `json:"commit_short,omitempty"`
	BuildTime   time.Time `json:"build_time,omitempty"`
	URL         string    `json:"url,omitempty"`
}

func init() {
	if _buildTime != "" {
		if t, err := time.Parse(time.RFC3339, _buildTime); err == nil {
			BuildTime = t.UTC()
		}
	}
}

// Print writes the build information to standard output.
func Print() {
	fmt.Printf(`name:    %s
url:     %s
file:    %s
version: %s
commit:  %s
built:   %s
`, Name, URL, os.Args[0], Version, Commit, BuildTime)
}

// Info returns the build metadata.
func Info() BuildInfo {
	return BuildInfo{
		Name:        Name,
		Version:     Version,
		Commit:      Commit,
		CommitShort: CommitShort(),
		BuildTime:   BuildTime,
		URL:         URL,
	}
}

// CommitShort returns the first 7 characters of the git commit hash.
func CommitShort() string {
	if len(Commit) > 7 {
		return Commit[:7]
	}

	return Commit
}
