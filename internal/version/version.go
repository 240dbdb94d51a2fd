// Package version carries the build metadata stamped into the binary
// at link time.
package version

import "fmt"

// Stamped via -ldflags; a plain go build leaves both at "unknown".
var (
	Commit    = "unknown"
	BuildTime = "unknown"
)

// String renders the identity reported by archon --version. Releases
// are identified by commit, not semver.
func String() string {
	commit := Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("archon dev, commit %s, built %s", commit, BuildTime)
}
