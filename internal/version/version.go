// Package version reports the build identity of the ralph binary.
package version

import "fmt"

// Set at build time, e.g.
// go build -ldflags "-X github.com/ashiqsultan/copilot-ralph/internal/version.Version=v0.3.0"
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

// String formats the full build identity for --version.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, CommitSHA, BuildDate)
}
