package ruleconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbr9/organizer/internal/rule"
)

func writeRule(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rule.toml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestLoad_ParsesNameDescriptionTags(t *testing.T) {
	path := writeRule(t, `
name = "Organise Downloads"
description = "tidy the inbox"
tags = ["inbox", "daily"]

[[stage]]
kind = "locations"
[[stage.location]]
path = "~/Downloads"
host = "file"
max_depth = 2
`)
	b, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Organise Downloads", b.Name)
	assert.Equal(t, "tidy the inbox", b.Description)
	assert.Equal(t, []string{"inbox", "daily"}, b.Tags)

	require.Len(t, b.Pipeline, 1)
	require.Equal(t, rule.StageLocations, b.Pipeline[0].Kind)
	require.Len(t, b.Pipeline[0].Locations, 1)
	loc := b.Pipeline[0].Locations[0]
	assert.Equal(t, "~/Downloads", loc.Path)
	assert.Equal(t, "file", loc.Host)
	require.NotNil(t, loc.MaxDepth)
	assert.Equal(t, 2, *loc.MaxDepth)
}

func TestLoad_ParsesFilterSorterActionStages(t *testing.T) {
	path := writeRule(t, `
name = "rule"

[[stage]]
kind = "filter"
type = "extension"
extensions = ["pdf", "doc"]

[[stage]]
kind = "action"
type = "move"
to = "~/Documents/{{ file.extension }}/"
if_exists = "rename"
`)
	b, err := Load(path)
	require.NoError(t, err)
	require.Len(t, b.Pipeline, 2)

	filterStage := b.Pipeline[0]
	assert.Equal(t, rule.StageFilter, filterStage.Kind)
	assert.Equal(t, "extension", filterStage.PluginType)
	assert.ElementsMatch(t, []string{"pdf", "doc"}, filterStage.Options["extensions"])

	actionStage := b.Pipeline[1]
	assert.Equal(t, rule.StageAction, actionStage.Kind)
	assert.Equal(t, "move", actionStage.PluginType)
	assert.Equal(t, "~/Documents/{{ file.extension }}/", actionStage.Options["to"])
	assert.Equal(t, "rename", actionStage.Options["if_exists"])
}

func TestLoad_ParsesCombinatorFilterWithSubFilters(t *testing.T) {
	path := writeRule(t, `
name = "rule"

[[stage]]
kind = "filter"
type = "not"
[[stage.filters]]
type = "extension"
extensions = ["tmp"]
`)
	b, err := Load(path)
	require.NoError(t, err)
	require.Len(t, b.Pipeline, 1)

	stage := b.Pipeline[0]
	assert.Equal(t, "not", stage.PluginType)
	require.Len(t, stage.SubFilters, 1)
	assert.Equal(t, "extension", stage.SubFilters[0].PluginType)
	assert.ElementsMatch(t, []string{"tmp"}, stage.SubFilters[0].Options["extensions"])
}

func TestLoad_ParsesComposeStage(t *testing.T) {
	path := writeRule(t, `
name = "rule"

[[stage]]
kind = "compose"
from = "./common/notify.toml"
`)
	b, err := Load(path)
	require.NoError(t, err)
	require.Len(t, b.Pipeline, 1)
	assert.Equal(t, rule.StageCompose, b.Pipeline[0].Kind)
	assert.Equal(t, "./common/notify.toml", b.Pipeline[0].ComposeRule)
}

func TestLoad_MissingNameIsError(t *testing.T) {
	path := writeRule(t, `
[[stage]]
kind = "locations"
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadDir_KeysBuildersByRuleName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.toml"), []byte(`name = "Alpha"`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.toml"), []byte(`name = "Beta"`), 0o644))

	builders, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, builders, 2)
	assert.Contains(t, builders, "Alpha")
	assert.Contains(t, builders, "Beta")
}
