package engine

import (
	"sync"

	"github.com/cbr9/organizer/internal/cache"
	"github.com/cbr9/organizer/internal/journal"
	"github.com/cbr9/organizer/internal/locker"
	"github.com/cbr9/organizer/internal/metrics"
	"github.com/cbr9/organizer/internal/obslog"
	"github.com/cbr9/organizer/internal/storage"
	"github.com/cbr9/organizer/internal/template"
	"github.com/cbr9/organizer/internal/ui"
)

// RunServices is the process-wide bundle every ExecutionContext shares by
// reference: the filesystem manager, template compiler, journal handle, UI
// handle, destination locker, and a "blackboard" scratchpad plugins use to
// pass ad hoc state between stages of the same rule run (a partitioner's
// group key, a batch-wide counter). Exactly one RunServices exists per
// engine run; every scope derived from it points back at the same bundle.
type RunServices struct {
	Storage  *storage.Registry
	Compiler *template.Compiler
	Journal  *journal.Journal
	UI       ui.Interface
	Locker   *locker.Locker
	Caches   *cache.Caches
	Log      *obslog.Logger

	// SessionID is the journal session this run is recording under.
	SessionID int64

	// Metrics accumulates per-session counters. Nil until SetMetrics is
	// called; every Collector method tolerates a nil receiver, so plugin
	// and runtime code can call through Services.Metrics unconditionally.
	Metrics *metrics.Collector

	blackboard sync.Map
}

// SetMetrics installs the Collector a run reports counters to.
func (s *RunServices) SetMetrics(c *metrics.Collector) { s.Metrics = c }

// NewRunServices bundles the services a run needs. Any of journal/ui may
// be nil only for tests that never touch those ports.
func NewRunServices(reg *storage.Registry, compiler *template.Compiler, j *journal.Journal, u ui.Interface, l *locker.Locker, caches *cache.Caches, log *obslog.Logger, sessionID int64) *RunServices {
	return &RunServices{
		Storage:   reg,
		Compiler:  compiler,
		Journal:   j,
		UI:        u,
		Locker:    l,
		Caches:    caches,
		Log:       log,
		SessionID: sessionID,
	}
}

// Blackboard returns the scratchpad value stored under key, and whether one
// was set. Used by plugins that need to pass state across a batch's
// stages (e.g. a partitioner recording the key it derived).
func (s *RunServices) Blackboard(key string) (any, bool) {
	return s.blackboard.Load(key)
}

// SetBlackboard installs a scratchpad value under key, visible to every
// ExecutionContext sharing this RunServices.
func (s *RunServices) SetBlackboard(key string, value any) {
	s.blackboard.Store(key, value)
}
