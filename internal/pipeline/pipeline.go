// Package pipeline builds and drives the per-rule stream runtime: discover
// produces an initial resource stream, each subsequent stage consumes and
// produces either individual resources (Single model) or batches (Batch
// model), with implicit adaptation between the two granularities, and the
// final stream is drained.
package pipeline

import (
	"context"

	"github.com/cbr9/organizer/internal/engine"
	"github.com/cbr9/organizer/internal/plugin"
	"github.com/cbr9/organizer/internal/resource"
	"github.com/cbr9/organizer/internal/rule"
	"github.com/cbr9/organizer/internal/ui"
	"github.com/cbr9/organizer/internal/xerrors"
)

// DefaultConcurrency bounds how many resources a Single-model stage
// processes at once, when Runtime.Concurrency is left at zero.
const DefaultConcurrency = 8

// Runtime executes one compiled rule's pipeline against a root execution
// context, streaming resources stage by stage.
type Runtime struct {
	Services    *engine.RunServices
	Concurrency int
}

// New builds a Runtime bound to services.
func New(services *engine.RunServices) *Runtime {
	return &Runtime{Services: services, Concurrency: DefaultConcurrency}
}

func (rt *Runtime) concurrency() int {
	if rt.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return rt.Concurrency
}

// structuralError marks a failure that must abort the whole pipeline
// rather than drop one resource: a discovery/connection failure or a
// journal write failure, per the runtime's error-propagation contract.
type structuralError struct{ err error }

func (s *structuralError) Error() string { return s.err.Error() }
func (s *structuralError) Unwrap() error { return s.err }

func structural(err error) error {
	if err == nil {
		return nil
	}
	return &structuralError{err: err}
}

func isStructural(err error) bool {
	if err == nil {
		return false
	}
	var s *structuralError
	if asStructural(err, &s) {
		return true
	}
	return xerrors.Is(err, xerrors.Config)
}

func asStructural(err error, target **structuralError) bool {
	for err != nil {
		if s, ok := err.(*structuralError); ok {
			*target = s
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Run executes r's pipeline in declaration order, starting from a root
// ExecutionContext in Blank scope, and drains the final stream.
func (rt *Runtime) Run(ctx context.Context, root *engine.ExecutionContext, r *rule.Rule) error {
	ruleCtx := root.WithScope(engine.RuleScope(r))

	resources, err := rt.discover(ctx, ruleCtx, r)
	if err != nil {
		return err
	}

	var batches []*resource.Batch // non-nil once a Batch-model stage has run

	for i, stage := range r.Pipeline {
		if stage.Kind == rule.StageLocations {
			continue // already handled by discover
		}

		switch stage.Kind {
		case rule.StageFilter:
			if batches != nil {
				resources = flatten(batches)
				batches = nil
			}
			resources, err = rt.runFilter(ctx, ruleCtx, stage.Filter, resources)
		case rule.StageSorter:
			batches, resources = rt.ensureBatches(r, batches, resources)
			err = rt.runSorter(stage.Sorter, batches)
		case rule.StagePartitioner:
			batches, resources = rt.ensureBatches(r, batches, resources)
			batches, err = rt.runPartitioner(stage.Partitioner, batches)
		case rule.StageSelector:
			batches, resources = rt.ensureBatches(r, batches, resources)
			batches, err = rt.runSelector(stage.Selector, batches)
		case rule.StageAction:
			if stage.Action.Model() == plugin.Collection {
				batches, resources = rt.ensureBatches(r, batches, resources)
				batches, err = rt.runCollectionAction(ctx, ruleCtx, stage.Action, batches)
			} else {
				if batches != nil {
					resources = flatten(batches)
					batches = nil
				}
				resources, err = rt.runSingleAction(ctx, ruleCtx, stage.Action, resources)
			}
		default:
			continue
		}

		if err != nil {
			if isStructural(err) {
				return err
			}
			rt.Services.Log.Warn("stage failed", map[string]any{"stage_index": i, "stage_kind": string(stage.Kind), "error": err.Error()})
		}

		count := len(resources)
		if batches != nil {
			count = len(flatten(batches))
		}
		rt.Services.UI.Progress(ui.Progress{RuleName: r.Name, Stage: string(stage.Kind), Processed: count})
	}

	return nil
}

// discover runs the Locations stage: every location's host provider
// discovers its matching resources, combined per each location's
// SearchMode (Replace discards a prior location sharing host+path;
// Append adds to the running set).
func (rt *Runtime) discover(ctx context.Context, ruleCtx *engine.ExecutionContext, r *rule.Rule) ([]*resource.Resource, error) {
	if len(r.Pipeline) == 0 || r.Pipeline[0].Kind != rule.StageLocations {
		return nil, structural(xerrors.Configf("rule pipeline must start with a locations stage", nil))
	}

	var out []*resource.Resource
	for _, loc := range r.Pipeline[0].Locations {
		provider, err := rt.Services.Storage.Get(loc.Host)
		if err != nil {
			return nil, structural(xerrors.Storagef("no provider registered for location host", err))
		}
		discovered, err := provider.Discover(ctx, loc.Host, loc)
		if err != nil {
			return nil, structural(xerrors.Storagepathf(loc.Path, "discovery failed", err))
		}
		switch loc.SearchMode {
		case rule.Replace:
			out = replaceByHostPath(out, loc.Host, loc.Path, discovered)
		default:
			out = append(out, discovered...)
		}
	}
	return out, nil
}

func replaceByHostPath(existing []*resource.Resource, host, path string, fresh []*resource.Resource) []*resource.Resource {
	kept := make([]*resource.Resource, 0, len(existing))
	for _, r := range existing {
		if r.Host() == host && r.Location() == path {
			continue
		}
		kept = append(kept, r)
	}
	return append(kept, fresh...)
}

// ensureBatches assembles batches (one per already-distinct group, or a
// single batch named after the rule) the first time a Batch-model stage
// is encountered in a resource-grained stream.
func (rt *Runtime) ensureBatches(r *rule.Rule, batches []*resource.Batch, resources []*resource.Resource) ([]*resource.Batch, []*resource.Resource) {
	if batches != nil {
		return batches, nil
	}
	if len(resources) == 0 {
		return []*resource.Batch{}, nil
	}
	b, err := resource.NewBatch(r.Name, resources)
	if err != nil {
		// Resources span multiple hosts: partition per host so the
		// single-host batch invariant holds, preserving discovery order.
		byHost := map[string][]*resource.Resource{}
		var order []string
		for _, res := range resources {
			if _, ok := byHost[res.Host()]; !ok {
				order = append(order, res.Host())
			}
			byHost[res.Host()] = append(byHost[res.Host()], res)
		}
		out := make([]*resource.Batch, 0, len(order))
		for _, host := range order {
			nb, _ := resource.NewBatch(r.Name+":"+host, byHost[host])
			out = append(out, nb)
		}
		return out, nil
	}
	return []*resource.Batch{b}, nil
}

func flatten(batches []*resource.Batch) []*resource.Resource {
	var out []*resource.Resource
	for _, b := range batches {
		out = append(out, b.Resources...)
	}
	return out
}
