package pipeline

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cbr9/organizer/internal/engine"
	"github.com/cbr9/organizer/internal/plugin"
	"github.com/cbr9/organizer/internal/resource"
	"github.com/cbr9/organizer/internal/ui"
)

// forEachResource runs fn over resources concurrently, bounded by
// Runtime.Concurrency. A per-resource error is logged and reported via the
// UI; the resource is dropped. A structural error returned by fn aborts
// every in-flight and pending call via ctx cancellation and is returned
// from forEachResource once all workers unwind.
func (rt *Runtime) forEachResource(ctx context.Context, resources []*resource.Resource, fn func(ctx context.Context, idx int, res *resource.Resource) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rt.concurrency())

	for i, res := range resources {
		i, res := i, res
		g.Go(func() error {
			err := fn(gctx, i, res)
			if err == nil {
				return nil
			}
			if isStructural(err) {
				return err
			}
			rt.Services.Metrics.IncResourceFailed()
			rt.Services.Log.Warn("resource stage error", map[string]any{"resource": res.Path(), "error": err.Error()})
			rt.Services.UI.Message(ui.LevelError, "%s: %v", res.Path(), err)
			return nil
		})
	}
	return g.Wait()
}

// runFilter evaluates stage.Filter over resources concurrently, keeping
// the subset that matched. Order is not guaranteed to be preserved across
// concurrent resources per the runtime's ordering contract, but results
// are reassembled in source order for determinism in tests.
func (rt *Runtime) runFilter(ctx context.Context, ruleCtx *engine.ExecutionContext, f plugin.Filter, resources []*resource.Resource) ([]*resource.Resource, error) {
	kept := make([]bool, len(resources))

	err := rt.forEachResource(ctx, resources, func(ctx context.Context, idx int, res *resource.Resource) error {
		resCtx := ruleCtx.WithScope(ruleCtx.Scope.WithResource(res))
		ok, err := f.Match(&plugin.Context{EvalContext: resCtx, Resource: res})
		if err != nil {
			return err
		}
		kept[idx] = ok
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]*resource.Resource, 0, len(resources))
	for i, res := range resources {
		if kept[i] {
			out = append(out, res)
			rt.Services.Metrics.IncResourceMatched()
		}
	}
	return out, nil
}

// runSorter reorders each batch's resources in place.
func (rt *Runtime) runSorter(s plugin.Sorter, batches []*resource.Batch) error {
	for _, b := range batches {
		if err := s.Sort(b.Resources); err != nil {
			return err
		}
	}
	return nil
}

// runPartitioner splits each batch into its named groups, flattened back
// into one batch slice sorted by group name for deterministic ordering.
func (rt *Runtime) runPartitioner(p plugin.Partitioner, batches []*resource.Batch) ([]*resource.Batch, error) {
	var out []*resource.Batch
	for _, b := range batches {
		groups, err := p.Partition(b)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(groups))
		for name := range groups {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out = append(out, groups[name])
		}
	}
	return out, nil
}

// runSelector narrows each batch to its selector's chosen subset.
func (rt *Runtime) runSelector(s plugin.Selector, batches []*resource.Batch) ([]*resource.Batch, error) {
	out := make([]*resource.Batch, 0, len(batches))
	for _, b := range batches {
		selected, err := s.Select(b)
		if err != nil {
			return nil, err
		}
		out = append(out, selected)
	}
	return out, nil
}

// runSingleAction runs a Single-model action over each resource
// concurrently, replacing it in the stream with whatever its Receipt.Next
// carries (possibly empty, stopping propagation; possibly a new handle).
func (rt *Runtime) runSingleAction(ctx context.Context, ruleCtx *engine.ExecutionContext, a plugin.Action, resources []*resource.Resource) ([]*resource.Resource, error) {
	next := make([][]*resource.Resource, len(resources))
	rtAdapter := newActionRuntime(rt.Services)

	err := rt.forEachResource(ctx, resources, func(ctx context.Context, idx int, res *resource.Resource) error {
		resCtx := ruleCtx.WithScope(ruleCtx.Scope.WithResource(res))
		receipt, err := a.Run(&plugin.Context{EvalContext: resCtx, Resource: res, Runtime: rtAdapter})
		if err != nil {
			return err
		}
		next[idx] = receipt.Next
		return rt.recordReceipt(ctx, ruleCtx, a.Tag(), receipt)
	})
	if err != nil {
		return nil, err
	}

	var out []*resource.Resource
	for _, n := range next {
		out = append(out, n...)
	}
	return out, nil
}

// runCollectionAction runs a Collection-model action once per batch.
func (rt *Runtime) runCollectionAction(ctx context.Context, ruleCtx *engine.ExecutionContext, a plugin.Action, batches []*resource.Batch) ([]*resource.Batch, error) {
	rtAdapter := newActionRuntime(rt.Services)
	out := make([]*resource.Batch, 0, len(batches))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rt.concurrency())
	for _, b := range batches {
		b := b
		g.Go(func() error {
			var representative *resource.Resource
			if len(b.Resources) > 0 {
				representative = b.Resources[0]
			}
			batchCtx := ruleCtx.WithScope(ruleCtx.Scope.WithBatch(b))
			receipt, err := a.Run(&plugin.Context{EvalContext: batchCtx, Resource: representative, Batch: b, Runtime: rtAdapter})
			if err != nil {
				if isStructural(err) {
					return err
				}
				rt.Services.Log.Warn("batch action error", map[string]any{"batch": b.Name, "error": err.Error()})
				return nil
			}
			if err := rt.recordReceipt(gctx, ruleCtx, a.Tag(), receipt); err != nil {
				return err
			}
			mu.Lock()
			out = append(out, b.WithResources(receipt.Next))
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
