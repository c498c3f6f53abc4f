// Package plugin defines the stage-level contracts every filter, sorter,
// partitioner, selector, and action implements, plus the tag-dispatched
// registries the rule loader uses to turn a TOML stage table into a live
// plugin instance. Registration follows the same blank-import driver
// pattern as database/sql and image: built-in plugins register themselves
// from an init() in internal/plugins/*, and callers import those packages
// for side effect.
package plugin

import (
	"context"
	"fmt"

	"github.com/cbr9/organizer/internal/resource"
	"github.com/cbr9/organizer/internal/template"
)

// Options is the raw, not-yet-typed configuration blob for one stage,
// as decoded from TOML. Each plugin constructor asserts out of it the
// fields it expects.
type Options map[string]any

// Context is what a Filter/Action implementation is evaluated against: a
// resource-scoped EvalContext plus the compiled option templates attached
// to the calling stage. Batch is populated only for a Collection-model
// Action, which runs once per batch rather than once per resource.
type Context struct {
	template.EvalContext
	Resource *resource.Resource
	Batch    *resource.Batch
	Runtime  ActionRuntime
}

// Filter decides whether one resource continues down the pipeline.
// Single-resource model: it receives one resource-scoped Context and
// returns whether that resource passed.
type Filter interface {
	Tag() string
	Match(ctx *Context) (bool, error)
}

// Sorter reorders a batch's resources in place.
type Sorter interface {
	Tag() string
	Sort(resources []*resource.Resource) error
}

// Partitioner splits one batch into named groups.
type Partitioner interface {
	Tag() string
	Partition(batch *resource.Batch) (map[string]*resource.Batch, error)
}

// Selector narrows a batch to a subset (first-N, sample, ...).
type Selector interface {
	Tag() string
	Select(batch *resource.Batch) (*resource.Batch, error)
}

// Receipt is an action's output: the resource(s) that should continue
// downstream, plus the artifacts it produced for the journal.
type Receipt struct {
	// Next carries the resource(s) flowing onward: the original, a new
	// handle (after a move/rename), or empty to stop propagation.
	Next []*resource.Resource
	// Created/Deleted record paths the action brought into or out of
	// existence, for journal bookkeeping.
	Created []string
	Deleted []string
	// Undo holds one or more inverse operations. An action's receipt with
	// an empty Undo is never persisted to the journal (spec invariant).
	Undo []UndoOperation
}

// UndoOperation is a polymorphic, verifiable, replayable inverse of one
// mutating action.
type UndoOperation interface {
	// Tag is the stable string name this operation serializes under.
	Tag() string
	// Verify confirms the current filesystem state still supports Undo.
	Verify(ctx UndoContext) error
	// Undo performs the inverse operation.
	Undo(ctx UndoContext) error
}

// UndoContext is the minimal surface an UndoOperation needs: access to a
// storage provider by host name and to the conflict policy chosen for the
// undo run.
type UndoContext interface {
	Provider(host string) (StorageProvider, error)
	OnConflict() ConflictPolicy
}

// ConflictPolicy controls how an undo run reacts when the original path is
// occupied by something else.
type ConflictPolicy int

const (
	ConflictAbort ConflictPolicy = iota
	ConflictRename
	ConflictSkip
	ConflictInteractive
)

// StorageProvider is the minimal subset of internal/storage.Provider that
// undo operations and actions need; declared here (not imported from
// internal/storage) to avoid a dependency cycle: storage imports rule,
// and rule imports plugin.
type StorageProvider interface {
	Exists(ctx context.Context, path string) (bool, error)
	Move(ctx context.Context, from, to string) error
	Copy(ctx context.Context, from, to string) error
	Delete(ctx context.Context, path string) error
	Mkdir(ctx context.Context, path string) error
	Hardlink(ctx context.Context, from, to string) error
	Symlink(ctx context.Context, from, to string) error
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
}

// LockResolution mirrors internal/locker.ConflictResolution without
// importing it, for the same cycle-avoidance reason as StorageProvider.
type LockResolution int

const (
	LockSkip LockResolution = iota
	LockOverwrite
	LockRename
)

// Destination is what an Action asks the runtime to reserve: a rendered
// path on a host, with the conflict policy to apply if it is contested or
// already occupied.
type Destination struct {
	Host       string
	Path       string
	Resolution LockResolution
}

// LockGuard is a reserved destination path; Release frees it for reuse by
// a later resource, regardless of whether the action that reserved it
// succeeded.
type LockGuard interface {
	Path() string
	Release()
}

// ActionRuntime is the storage/locking capability an Action needs beyond
// what Context's EvalContext exposes, supplied by the pipeline runtime so
// action packages never import internal/storage or internal/locker
// directly.
type ActionRuntime interface {
	// Provider returns the StorageProvider registered for host.
	Provider(host string) (StorageProvider, error)
	// Lock reserves dest, returning a nil guard when the configured
	// resolution says to skip (the action must no-op and pass its
	// resource through unchanged).
	Lock(ctx context.Context, dest Destination) (LockGuard, error)
}

// Action is a resource-scoped pipeline stage that performs one mutation
// (or side effect) and returns a Receipt.
type Action interface {
	Tag() string
	// Model reports whether this action processes resources one at a
	// time (the default) or wants the whole batch at once. Every built-in
	// action, extract included, processes one resource at a time.
	Model() Model
	Run(ctx *Context) (*Receipt, error)
}

// Model distinguishes single-resource from whole-batch stage execution,
// so the runtime can dispatch on a concrete field instead of introspecting
// the plugin with reflection.
type Model int

const (
	Single Model = iota
	Collection
)

// FilterFactory, SorterFactory, ... construct a plugin instance from its
// raw Options plus a template.Compiler for any option templates (e.g. an
// action's `to` destination template).
type FilterFactory func(opts Options, c *template.Compiler) (Filter, error)
type SorterFactory func(opts Options, c *template.Compiler) (Sorter, error)
type PartitionerFactory func(opts Options, c *template.Compiler) (Partitioner, error)
type SelectorFactory func(opts Options, c *template.Compiler) (Selector, error)
type ActionFactory func(opts Options, c *template.Compiler) (Action, error)

var (
	filterFactories      = map[string]FilterFactory{}
	sorterFactories      = map[string]SorterFactory{}
	partitionerFactories = map[string]PartitionerFactory{}
	selectorFactories    = map[string]SelectorFactory{}
	actionFactories      = map[string]ActionFactory{}
)

func RegisterFilter(tag string, f FilterFactory)           { filterFactories[tag] = f }
func RegisterSorter(tag string, f SorterFactory)           { sorterFactories[tag] = f }
func RegisterPartitioner(tag string, f PartitionerFactory) { partitionerFactories[tag] = f }
func RegisterSelector(tag string, f SelectorFactory)       { selectorFactories[tag] = f }
func RegisterAction(tag string, f ActionFactory)           { actionFactories[tag] = f }

func BuildFilter(tag string, opts Options, c *template.Compiler) (Filter, error) {
	f, ok := filterFactories[tag]
	if !ok {
		return nil, fmt.Errorf("unknown filter type: %s", tag)
	}
	return f(opts, c)
}

func BuildSorter(tag string, opts Options, c *template.Compiler) (Sorter, error) {
	f, ok := sorterFactories[tag]
	if !ok {
		return nil, fmt.Errorf("unknown sorter type: %s", tag)
	}
	return f(opts, c)
}

func BuildPartitioner(tag string, opts Options, c *template.Compiler) (Partitioner, error) {
	f, ok := partitionerFactories[tag]
	if !ok {
		return nil, fmt.Errorf("unknown partitioner type: %s", tag)
	}
	return f(opts, c)
}

func BuildSelector(tag string, opts Options, c *template.Compiler) (Selector, error) {
	f, ok := selectorFactories[tag]
	if !ok {
		return nil, fmt.Errorf("unknown selector type: %s", tag)
	}
	return f(opts, c)
}

func BuildAction(tag string, opts Options, c *template.Compiler) (Action, error) {
	f, ok := actionFactories[tag]
	if !ok {
		return nil, fmt.Errorf("unknown action type: %s", tag)
	}
	return f(opts, c)
}

// UndoDecoder reconstructs one UndoOperation from its serialized payload
// (the msgpack bytes that follow the tag discriminant in a journal
// record).
type UndoDecoder func(payload []byte) (UndoOperation, error)

var undoDecoders = map[string]UndoDecoder{}

// RegisterUndoOperation registers the decoder for one UndoOperation tag.
// Called from each action package's init(), alongside RegisterAction, so
// the journal can replay an action's undo without importing the concrete
// plugin package that produced it.
func RegisterUndoOperation(tag string, d UndoDecoder) {
	undoDecoders[tag] = d
}

// DecodeUndoOperation dispatches payload to the decoder registered for
// tag.
func DecodeUndoOperation(tag string, payload []byte) (UndoOperation, error) {
	d, ok := undoDecoders[tag]
	if !ok {
		return nil, fmt.Errorf("unknown undo operation tag: %s", tag)
	}
	return d(payload)
}
