package rule

import "github.com/cbr9/organizer/internal/xerrors"

// SearchMode controls how a location's discovered resources combine with
// ones already produced by earlier locations in the same stage.
type SearchMode int

const (
	// Replace discards resources discovered by earlier locations sharing
	// this location's host+path before adding this location's results.
	Replace SearchMode = iota
	// Append adds this location's resources to the running set.
	Append
)

func (m SearchMode) String() string {
	if m == Append {
		return "append"
	}
	return "replace"
}

// Target restricts discovery to files, folders, or both.
type Target int

const (
	TargetFiles Target = iota
	TargetFolders
	TargetBoth
)

// Options configures one location's discovery pass: depth bounds,
// exclusions, and the hidden/partial/symlink/target policies.
type Options struct {
	MaxDepth       int
	MinDepth       int
	Exclude        []string
	Hidden         bool // include dotfiles/dot-directories
	PartialFiles   bool // include files with a partial-download extension (.part, .crdownload, ...)
	FollowSymlinks bool
	Target         Target
}

// DefaultOptions mirrors the engine's defaults for a bare location entry.
func DefaultOptions() Options {
	return Options{
		MaxDepth: 1,
		MinDepth: 1,
		Hidden:   false,
		Target:   TargetFiles,
	}
}

// Validate enforces the depth invariant: 1 <= MinDepth <= MaxDepth.
func (o Options) Validate() error {
	if o.MinDepth < 1 {
		return xerrors.Configf("min_depth must be >= 1", nil)
	}
	if o.MaxDepth < o.MinDepth {
		return xerrors.Configf("max_depth must be >= min_depth", nil)
	}
	return nil
}

// Location names a storage host, a root path within it, the discovery
// Options to apply, and how its results combine with sibling locations.
type Location struct {
	Host       string
	Path       string
	Options    Options
	SearchMode SearchMode
}
