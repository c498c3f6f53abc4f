package rule

import "github.com/cbr9/organizer/internal/plugin"

// StageKind discriminates the Stage union. Compose stages are inlined at
// compile time (see compile.go) and never appear in a compiled Rule's
// Pipeline, but the kind still exists so the raw builder form can
// represent one before compilation.
type StageKind string

const (
	StageLocations    StageKind = "locations"
	StageFilter       StageKind = "filter"
	StageSorter       StageKind = "sorter"
	StagePartitioner  StageKind = "partitioner"
	StageSelector     StageKind = "selector"
	StageAction       StageKind = "action"
	StageCompose      StageKind = "compose"
)

// Stage is one step of a compiled rule's pipeline. Exactly one of the
// kind-specific fields is populated, matching Kind.
type Stage struct {
	Kind StageKind

	Locations   []Location
	Filter      plugin.Filter
	Sorter      plugin.Sorter
	Partitioner plugin.Partitioner
	Selector    plugin.Selector
	Action      plugin.Action

	// Combinator is true when Filter wraps sub-filters (not/any_of/all_of/
	// none_of); carried here only for diagnostics, the combinator plugin
	// itself owns the actual sub-filter evaluation.
	Combinator bool
}
