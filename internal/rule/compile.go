package rule

import (
	"fmt"

	"github.com/cbr9/organizer/internal/plugin"
	"github.com/cbr9/organizer/internal/template"
	"github.com/cbr9/organizer/internal/xerrors"
)

// Compiler turns RuleBuilders into Rules: resolving plugin tags against
// the global plugin registry, compiling option templates, and inlining
// compose stages (with cycle detection, since a composed rule may itself
// compose another).
type Compiler struct {
	templates *template.Compiler
	defaults  Options
}

// NewCompiler builds a rule Compiler. tc compiles any templated option
// strings (e.g. an action's `to` destination); defaults seed a location's
// Options before its own overrides are applied.
func NewCompiler(tc *template.Compiler, defaults Options) *Compiler {
	return &Compiler{templates: tc, defaults: defaults}
}

// Compile resolves one named builder out of the full set (needed so
// compose stages can look up their target by name) into a runnable Rule.
func (c *Compiler) Compile(name string, builders map[string]*RuleBuilder) (*Rule, error) {
	b, ok := builders[name]
	if !ok {
		return nil, xerrors.Configf(fmt.Sprintf("rule %q not found", name), nil)
	}
	visited := map[string]bool{name: true}
	pipeline, err := c.compilePipeline(b.Pipeline, builders, visited)
	if err != nil {
		return nil, err
	}

	description, tags := c.composedMetadata(b, builders)

	return &Rule{
		Name:        b.Name,
		Description: description,
		Tags:        tags,
		Pipeline:    pipeline,
	}, nil
}

// composedMetadata applies the compose metadata-override priority: each
// top-level compose stage's referenced rule contributes its Description
// (used only when the host rule leaves its own Description empty) and its
// Tags (unioned into the host rule's own tags, host tags first); the host
// rule's own fields always win where it sets them. Nested compose (a
// composed rule that itself composes another) contributes pipeline stages
// only, not metadata, since inlineCompose never re-walks its target's own
// compose stages for this purpose.
func (c *Compiler) composedMetadata(b *RuleBuilder, builders map[string]*RuleBuilder) (string, []string) {
	description := b.Description
	tags := append([]string(nil), b.Tags...)
	tagSet := make(map[string]bool, len(tags))
	for _, t := range tags {
		tagSet[t] = true
	}

	for _, spec := range b.Pipeline {
		if spec.Kind != StageCompose {
			continue
		}
		composed, ok := builders[spec.ComposeRule]
		if !ok {
			continue
		}
		if description == "" {
			description = composed.Description
		}
		for _, t := range composed.Tags {
			if !tagSet[t] {
				tagSet[t] = true
				tags = append(tags, t)
			}
		}
	}
	return description, tags
}

func (c *Compiler) compilePipeline(specs []StageSpec, builders map[string]*RuleBuilder, visited map[string]bool) ([]Stage, error) {
	var out []Stage
	for _, spec := range specs {
		switch spec.Kind {
		case StageCompose:
			inlined, err := c.inlineCompose(spec.ComposeRule, builders, visited)
			if err != nil {
				return nil, err
			}
			out = append(out, inlined...)
		default:
			st, err := c.compileStage(spec)
			if err != nil {
				return nil, err
			}
			out = append(out, st)
		}
	}
	return out, nil
}

// inlineCompose expands a compose stage into the referenced rule's own
// compiled pipeline. It never merges the composed rule's Description/Tags
// itself; that merge happens once, in Compile's call to composedMetadata
// against the top-level builder's own direct compose stages.
func (c *Compiler) inlineCompose(ruleName string, builders map[string]*RuleBuilder, visited map[string]bool) ([]Stage, error) {
	if visited[ruleName] {
		return nil, xerrors.Configf(fmt.Sprintf("compose cycle detected at rule %q", ruleName), nil)
	}
	b, ok := builders[ruleName]
	if !ok {
		return nil, xerrors.Configf(fmt.Sprintf("composed rule %q not found", ruleName), nil)
	}
	visited[ruleName] = true
	defer delete(visited, ruleName)
	return c.compilePipeline(b.Pipeline, builders, visited)
}

func (c *Compiler) compileStage(spec StageSpec) (Stage, error) {
	switch spec.Kind {
	case StageLocations:
		locs := make([]Location, 0, len(spec.Locations))
		for _, ls := range spec.Locations {
			loc := ls.Resolve(c.defaults)
			if err := loc.Options.Validate(); err != nil {
				return Stage{}, err
			}
			locs = append(locs, loc)
		}
		return Stage{Kind: StageLocations, Locations: locs}, nil

	case StageFilter:
		f, err := c.compileFilter(spec)
		if err != nil {
			return Stage{}, err
		}
		return Stage{Kind: StageFilter, Filter: f, Combinator: len(spec.SubFilters) > 0}, nil

	case StageSorter:
		s, err := plugin.BuildSorter(spec.PluginType, spec.Options, c.templates)
		if err != nil {
			return Stage{}, xerrors.Configf(err.Error(), err)
		}
		return Stage{Kind: StageSorter, Sorter: s}, nil

	case StagePartitioner:
		p, err := plugin.BuildPartitioner(spec.PluginType, spec.Options, c.templates)
		if err != nil {
			return Stage{}, xerrors.Configf(err.Error(), err)
		}
		return Stage{Kind: StagePartitioner, Partitioner: p}, nil

	case StageSelector:
		s, err := plugin.BuildSelector(spec.PluginType, spec.Options, c.templates)
		if err != nil {
			return Stage{}, xerrors.Configf(err.Error(), err)
		}
		return Stage{Kind: StageSelector, Selector: s}, nil

	case StageAction:
		a, err := plugin.BuildAction(spec.PluginType, spec.Options, c.templates)
		if err != nil {
			return Stage{}, xerrors.Configf(err.Error(), err)
		}
		return Stage{Kind: StageAction, Action: a}, nil

	default:
		return Stage{}, xerrors.Configf(fmt.Sprintf("unknown stage kind: %s", spec.Kind), nil)
	}
}

// compileFilter handles both leaf filters (flat Options) and combinators
// (not/any_of/all_of/none_of), which recurse into sub-filter specs and are
// handed their already-built children under Options["filters"].
func (c *Compiler) compileFilter(spec StageSpec) (plugin.Filter, error) {
	if len(spec.SubFilters) == 0 {
		f, err := plugin.BuildFilter(spec.PluginType, spec.Options, c.templates)
		if err != nil {
			return nil, xerrors.Configf(err.Error(), err)
		}
		return f, nil
	}
	sub := make([]plugin.Filter, 0, len(spec.SubFilters))
	for _, s := range spec.SubFilters {
		f, err := c.compileFilter(s)
		if err != nil {
			return nil, err
		}
		sub = append(sub, f)
	}
	opts := plugin.Options{"filters": sub}
	for k, v := range spec.Options {
		opts[k] = v
	}
	f, err := plugin.BuildFilter(spec.PluginType, opts, c.templates)
	if err != nil {
		return nil, xerrors.Configf(err.Error(), err)
	}
	return f, nil
}
