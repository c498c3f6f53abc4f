package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/cbr9/organizer/internal/engine"
	"github.com/cbr9/organizer/internal/metrics"
	"github.com/cbr9/organizer/internal/rule"
	"github.com/cbr9/organizer/internal/ui"
)

// Engine runs a set of compiled rules against one journal session,
// mirroring the teacher's run orchestrator: start a session, execute each
// rule's pipeline, flush/close on every exit path (success, per-rule
// failure, or cancellation), end the session with the overall status.
type Engine struct {
	Services *engine.RunServices

	// Args and Config back the `args.*` and `config.*` template roots for
	// every rule this Engine runs: Args from the run's trailing
	// `key=value` CLI arguments, Config from the active connections
	// profile.
	Args   map[string]string
	Config map[string]string

	// DryRun labels the metrics snapshot only; the actual dry-run guarantee
	// comes from wrapping each storage.Provider in a Virtual overlay.
	DryRun bool
}

// NewEngine builds an Engine bound to services.
func NewEngine(services *engine.RunServices) *Engine {
	return &Engine{Services: services}
}

// RunResult summarizes one engine run across all its rules.
type RunResult struct {
	SessionID   int64
	Duration    time.Duration
	RulesRun    int
	RulesFailed int
	Metrics     metrics.Snapshot
}

// Run starts a journal session (when a journal is configured), executes
// rules in order, and always ends the session — with "ok" when every rule
// ran without a structural error, "canceled" when ctx is done after a rule
// completes, and "error" when a rule fails.
func (e *Engine) Run(ctx context.Context, rules []*rule.Rule, config string) (*RunResult, error) {
	start := time.Now()

	sessionID, err := e.startSession(ctx, config)
	if err != nil {
		return nil, err
	}
	e.Services.SessionID = sessionID
	e.Services.SetMetrics(metrics.NewCollector(sessionID, e.DryRun))

	result := &RunResult{SessionID: sessionID}
	status := "ok"

	for _, r := range rules {
		rt := New(e.Services)
		root := engine.New(ctx, e.Services, e.Args, e.Config)

		e.Services.UI.Message(ui.LevelInfo, "running rule %q", r.Name)
		if err := rt.Run(ctx, root, r); err != nil {
			result.RulesFailed++
			e.Services.Metrics.IncRuleFailed()
			status = "error"
			e.Services.Log.Error("rule run failed", map[string]any{"rule": r.Name, "error": err.Error()})
			e.Services.UI.Message(ui.LevelError, "rule %q aborted: %v", r.Name, err)
			if err := e.endSession(ctx, sessionID, status); err != nil {
				return result, err
			}
			result.Duration = time.Since(start)
			result.Metrics = e.Services.Metrics.Snapshot()
			return result, fmt.Errorf("rule %q: %w", r.Name, err)
		}
		result.RulesRun++
		e.Services.Metrics.IncRuleRun()
		e.Services.UI.Message(ui.LevelSuccess, "rule %q completed", r.Name)

		select {
		case <-ctx.Done():
			status = "canceled"
			result.Duration = time.Since(start)
			result.Metrics = e.Services.Metrics.Snapshot()
			_ = e.endSession(ctx, sessionID, status)
			return result, ctx.Err()
		default:
		}
	}

	if err := e.endSession(ctx, sessionID, status); err != nil {
		return result, err
	}
	result.Duration = time.Since(start)
	result.Metrics = e.Services.Metrics.Snapshot()
	return result, nil
}

func (e *Engine) startSession(ctx context.Context, config string) (int64, error) {
	if e.Services.Journal == nil {
		return 0, nil
	}
	return e.Services.Journal.StartSession(ctx, config)
}

func (e *Engine) endSession(ctx context.Context, sessionID int64, status string) error {
	if e.Services.Journal == nil {
		return nil
	}
	return e.Services.Journal.EndSession(ctx, sessionID, status)
}
