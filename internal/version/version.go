// Package version holds build-time version information for the rolerag binary.
// The variables in this package are populated at build time via -ldflags:
//
//	go build -ldflags="-X github.com/54b3r/rolerag/internal/version.Version=v1.2.3 \
//	                    -X github.com/54b3r/rolerag/internal/version.Commit=abc1234 \
//	                    -X github.com/54b3r/rolerag/internal/version.BuildDate=2026-01-01"
//
// When built without ldflags, the values fall back to human-readable defaults.
package version

import "fmt"

// Version is the semantic version of the binary (e.g. "v1.2.3").
var Version = "dev"

// Commit is the short git SHA of the commit the binary was built from.
var Commit = "unknown"

// BuildDate is the UTC date the binary was built (RFC3339 format).
var BuildDate = "unknown"

// String renders all three values on one line.
func String() string {
	return fmt.Sprintf("rolerag %s (commit %s, built %s)", Version, Commit, BuildDate)
}
