package rule

import "github.com/cbr9/organizer/internal/plugin"

// RuleBuilder is the raw, uncompiled form of a rule: what the TOML loader
// produces directly from a rule file, before plugin tags are resolved and
// option templates are compiled.
type RuleBuilder struct {
	Name        string
	Description string
	Tags        []string
	Pipeline    []StageSpec
}

// LocationSpec is a location entry as written in TOML, with pointer fields
// for everything that falls back to a rule-level or engine default when
// absent.
type LocationSpec struct {
	Host           string
	Path           string
	MaxDepth       *int
	MinDepth       *int
	Exclude        []string
	Hidden         *bool
	PartialFiles   *bool
	FollowSymlinks *bool
	Target         string // "files" | "folders" | "both"
	SearchMode     string // "replace" | "append"
}

// StageSpec is one uncompiled pipeline entry. Exactly one group of fields
// is populated, selected by Kind.
type StageSpec struct {
	Kind StageKind

	// StageLocations
	Locations []LocationSpec

	// StageFilter / StageSorter / StagePartitioner / StageSelector / StageAction
	PluginType string
	Options    plugin.Options

	// StageFilter combinators (not/any_of/all_of/none_of) recurse into
	// sub-filter specs instead of flat Options.
	SubFilters []StageSpec

	// StageCompose
	ComposeRule string
}

func resolveTarget(s string) Target {
	switch s {
	case "folders":
		return TargetFolders
	case "both":
		return TargetBoth
	default:
		return TargetFiles
	}
}

func resolveSearchMode(s string) SearchMode {
	if s == "append" {
		return Append
	}
	return Replace
}

// Resolve turns a LocationSpec into a Location, applying defaults for any
// unset pointer field.
func (ls LocationSpec) Resolve(defaults Options) Location {
	opts := defaults
	if ls.MaxDepth != nil {
		opts.MaxDepth = *ls.MaxDepth
	}
	if ls.MinDepth != nil {
		opts.MinDepth = *ls.MinDepth
	}
	if ls.Exclude != nil {
		opts.Exclude = ls.Exclude
	}
	if ls.Hidden != nil {
		opts.Hidden = *ls.Hidden
	}
	if ls.PartialFiles != nil {
		opts.PartialFiles = *ls.PartialFiles
	}
	if ls.FollowSymlinks != nil {
		opts.FollowSymlinks = *ls.FollowSymlinks
	}
	if ls.Target != "" {
		opts.Target = resolveTarget(ls.Target)
	}
	return Location{
		Host:       ls.Host,
		Path:       ls.Path,
		Options:    opts,
		SearchMode: resolveSearchMode(ls.SearchMode),
	}
}
