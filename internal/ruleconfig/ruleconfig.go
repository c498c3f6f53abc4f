// Package ruleconfig loads rule documents (spec.md's [[stage]]-table TOML
// format) into rule.RuleBuilder values, the raw, uncompiled form
// internal/rule.Compiler turns into runnable Rules.
package ruleconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/cbr9/organizer/internal/plugin"
	"github.com/cbr9/organizer/internal/rule"
	"github.com/cbr9/organizer/internal/xerrors"
)

// Load parses one rule file into a RuleBuilder.
func Load(path string) (*rule.RuleBuilder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Storagepathf(path, "read rule file failed", err)
	}

	var raw map[string]any
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, xerrors.Configf("invalid TOML in "+path, err)
	}

	b := &rule.RuleBuilder{
		Name:        asString(raw["name"]),
		Description: asString(raw["description"]),
		Tags:        asStringSlice(raw["tags"]),
	}
	if b.Name == "" {
		return nil, xerrors.Configf(path+": rule is missing a name", nil)
	}

	stages, err := asStageTables(raw["stage"])
	if err != nil {
		return nil, xerrors.Configf(path+": "+err.Error(), nil)
	}
	for _, s := range stages {
		spec, err := buildStage(s)
		if err != nil {
			return nil, xerrors.Configf(fmt.Sprintf("%s: rule %q: %s", path, b.Name, err), nil)
		}
		b.Pipeline = append(b.Pipeline, spec)
	}
	return b, nil
}

// LoadDir parses every *.toml file directly under dir into a map of
// RuleBuilders keyed by rule name, the shape rule.Compiler.Compile needs
// to resolve compose references across the whole rule set.
func LoadDir(dir string) (map[string]*rule.RuleBuilder, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, xerrors.Storagepathf(dir, "read rules directory failed", err)
	}
	out := make(map[string]*rule.RuleBuilder, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".toml") {
			continue
		}
		b, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out[b.Name] = b
	}
	return out, nil
}

const (
	keyKind   = "kind"
	keyType   = "type"
	keyFrom   = "from"
	keyFilter = "filters"
)

func buildStage(s map[string]any) (rule.StageSpec, error) {
	kind := asString(s[keyKind])
	switch rule.StageKind(kind) {
	case rule.StageLocations:
		locs, err := asStageTables(s["location"])
		if err != nil {
			return rule.StageSpec{}, err
		}
		specs := make([]rule.LocationSpec, 0, len(locs))
		for _, l := range locs {
			specs = append(specs, buildLocation(l))
		}
		return rule.StageSpec{Kind: rule.StageLocations, Locations: specs}, nil

	case rule.StageFilter:
		return buildFilterSpec(s)

	case rule.StageSorter:
		return pluginStage(rule.StageSorter, s)
	case rule.StagePartitioner:
		return pluginStage(rule.StagePartitioner, s)
	case rule.StageSelector:
		return pluginStage(rule.StageSelector, s)
	case rule.StageAction:
		return pluginStage(rule.StageAction, s)

	case rule.StageCompose:
		from := asString(s[keyFrom])
		if from == "" {
			return rule.StageSpec{}, fmt.Errorf("compose stage missing %q", keyFrom)
		}
		return rule.StageSpec{Kind: rule.StageCompose, ComposeRule: from}, nil

	default:
		return rule.StageSpec{}, fmt.Errorf("unknown stage kind %q", kind)
	}
}

func pluginStage(kind rule.StageKind, s map[string]any) (rule.StageSpec, error) {
	typ := asString(s[keyType])
	if typ == "" {
		return rule.StageSpec{}, fmt.Errorf("%s stage missing %q", kind, keyType)
	}
	return rule.StageSpec{Kind: kind, PluginType: typ, Options: stripReserved(s, keyKind, keyType)}, nil
}

// buildFilterSpec handles both leaf filters and combinators (not/any_of/
// all_of/none_of), which carry a nested `filters` array of sub-filter
// tables instead of flat options.
func buildFilterSpec(s map[string]any) (rule.StageSpec, error) {
	typ := asString(s[keyType])
	if typ == "" {
		return rule.StageSpec{}, fmt.Errorf("filter stage missing %q", keyType)
	}
	spec := rule.StageSpec{Kind: rule.StageFilter, PluginType: typ}

	if raw, ok := s[keyFilter]; ok {
		subTables, err := asStageTables(raw)
		if err != nil {
			return rule.StageSpec{}, err
		}
		for _, sub := range subTables {
			subSpec, err := buildFilterSpec(sub)
			if err != nil {
				return rule.StageSpec{}, err
			}
			spec.SubFilters = append(spec.SubFilters, subSpec)
		}
		spec.Options = stripReserved(s, keyKind, keyType, keyFilter)
		return spec, nil
	}

	spec.Options = stripReserved(s, keyKind, keyType)
	return spec, nil
}

func stripReserved(s map[string]any, reserved ...string) plugin.Options {
	skip := make(map[string]bool, len(reserved))
	for _, r := range reserved {
		skip[r] = true
	}
	opts := make(plugin.Options, len(s))
	for k, v := range s {
		if skip[k] {
			continue
		}
		opts[k] = v
	}
	return opts
}

func buildLocation(l map[string]any) rule.LocationSpec {
	spec := rule.LocationSpec{
		Host:       asString(l["host"]),
		Path:       asString(l["path"]),
		Exclude:    asStringSlice(l["exclude"]),
		Target:     asString(l["target"]),
		SearchMode: asString(l["search_mode"]),
	}
	if v, ok := asIntPtr(l["max_depth"]); ok {
		spec.MaxDepth = v
	}
	if v, ok := asIntPtr(l["min_depth"]); ok {
		spec.MinDepth = v
	}
	if v, ok := asBoolPtr(l["hidden"]); ok {
		spec.Hidden = v
	}
	if v, ok := asBoolPtr(l["partial_files"]); ok {
		spec.PartialFiles = v
	}
	if v, ok := asBoolPtr(l["follow_symlinks"]); ok {
		spec.FollowSymlinks = v
	}
	return spec
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// asStageTables normalizes a decoded array-of-tables value (`[]map[string]
// any` in the common case, but the TOML library resolves to `[]any` of
// `map[string]any` in some nesting contexts) into a uniform slice.
func asStageTables(v any) ([]map[string]any, error) {
	if v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case []map[string]any:
		return t, nil
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("expected a table, got %T", item)
			}
			out = append(out, m)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected an array of tables, got %T", v)
	}
}

func asIntPtr(v any) (*int, bool) {
	switch n := v.(type) {
	case int64:
		i := int(n)
		return &i, true
	case int:
		return &n, true
	default:
		return nil, false
	}
}

func asBoolPtr(v any) (*bool, bool) {
	b, ok := v.(bool)
	if !ok {
		return nil, false
	}
	return &b, true
}
