// Package version holds the daemon's own version numerals, reported in
// the welcome banner (spec §6). The protocol has no separate `version`
// command.
package version

import "fmt"

const (
	Major = 1
	Minor = 0
	Patch = 0
)

// String renders "major.minor.patch".
func String() string {
	return fmt.Sprintf("%d.%d.%d", Major, Minor, Patch)
}
