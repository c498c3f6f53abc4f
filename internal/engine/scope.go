// Package engine threads an ExecutionScope and a shared RunServices
// bundle through every pipeline stage via ExecutionContext, the concrete
// implementation of template.EvalContext.
package engine

import (
	"github.com/cbr9/organizer/internal/resource"
	"github.com/cbr9/organizer/internal/rule"
	"github.com/cbr9/organizer/internal/xerrors"
)

// ScopeKind discriminates ExecutionScope.
type ScopeKind int

const (
	ScopeBlank ScopeKind = iota
	ScopeRule
	ScopeSearch
	ScopeResource
	ScopeBatch
	ScopeBuild
)

// ExecutionScope is a tagged union narrowing what an ExecutionContext may
// answer. Exactly one field group is populated, matching Kind.
type ExecutionScope struct {
	Kind ScopeKind

	Rule *rule.Rule

	Location *rule.Location // Search

	Resource *resource.Resource // Resource

	Batch *resource.Batch // Batch

	Root string // Build
}

func Blank() ExecutionScope { return ExecutionScope{Kind: ScopeBlank} }

func RuleScope(r *rule.Rule) ExecutionScope {
	return ExecutionScope{Kind: ScopeRule, Rule: r}
}

func SearchScope(r *rule.Rule, loc *rule.Location) ExecutionScope {
	return ExecutionScope{Kind: ScopeSearch, Rule: r, Location: loc}
}

func ResourceScope(r *rule.Rule, res *resource.Resource) ExecutionScope {
	return ExecutionScope{Kind: ScopeResource, Rule: r, Resource: res}
}

func BatchScope(r *rule.Rule, b *resource.Batch) ExecutionScope {
	return ExecutionScope{Kind: ScopeBatch, Rule: r, Batch: b}
}

func BuildScope(root string) ExecutionScope {
	return ExecutionScope{Kind: ScopeBuild, Root: root}
}

// ResourceOrErr returns the scoped resource, or an OutOfScope error if this
// scope's tag isn't Resource.
func (s ExecutionScope) ResourceOrErr() (*resource.Resource, error) {
	if s.Kind != ScopeResource {
		return nil, xerrors.OutOfScopef("resource queried outside Resource scope")
	}
	return s.Resource, nil
}

// BatchOrErr returns the scoped batch, or an OutOfScope error if this
// scope's tag isn't Batch.
func (s ExecutionScope) BatchOrErr() (*resource.Batch, error) {
	if s.Kind != ScopeBatch {
		return nil, xerrors.OutOfScopef("batch queried outside Batch scope")
	}
	return s.Batch, nil
}

// RuleOrErr returns the scoped rule, or an OutOfScope error if no rule is
// carried by this scope (Blank/Build).
func (s ExecutionScope) RuleOrErr() (*rule.Rule, error) {
	if s.Rule == nil {
		return nil, xerrors.OutOfScopef("rule queried outside a rule-bearing scope")
	}
	return s.Rule, nil
}

// WithResource narrows s to a Resource scope over res, keeping s's rule.
func (s ExecutionScope) WithResource(res *resource.Resource) ExecutionScope {
	return ResourceScope(s.Rule, res)
}

// WithBatch narrows s to a Batch scope over b, keeping s's rule.
func (s ExecutionScope) WithBatch(b *resource.Batch) ExecutionScope {
	return BatchScope(s.Rule, b)
}
