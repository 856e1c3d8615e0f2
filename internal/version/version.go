// Package version holds build metadata stamped in by the magefile.
package version

import "fmt"

// These variables are populated by the Go linker (LDFLAGS) at build time.
var (
	Version    = "dev"     // Default value if not built with LDFLAGS
	CommitHash = "unknown" // Default value
	BuildDate  = "unknown" // Default value
)

// String renders the one-line version banner.
func String() string {
	return fmt.Sprintf("cibot %s (commit: %s, built: %s)", Version, CommitHash, BuildDate)
}
