// Package version holds build-time version information for the askpdf
// binary. The variables are populated via -ldflags:
//
//	go build -ldflags="-X github.com/54b3r/askpdf-go/internal/version.Version=v0.3.0 \
//	                    -X github.com/54b3r/askpdf-go/internal/version.Commit=abc1234"
package version

import "fmt"

var (
	// Version is the semantic version; "dev" for local builds.
	Version = "dev"
	// Commit is the short git SHA the binary was built from.
	Commit = "unknown"
	// BuildDate is the UTC build date (RFC3339).
	BuildDate = "unknown"
)

// String formats the build information on one line.
func String() string {
	return fmt.Sprintf("askpdf %s (commit %s, built %s)", Version, Commit, BuildDate)
}
