package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbr9/organizer/internal/plugin"
	"github.com/cbr9/organizer/internal/resource"
	"github.com/cbr9/organizer/internal/template"
)

type alwaysTrueFilter struct{}

func (alwaysTrueFilter) Tag() string { return "rule-test-always-true" }
func (alwaysTrueFilter) Match(*plugin.Context) (bool, error) { return true, nil }

func init() {
	plugin.RegisterFilter("rule-test-always-true", func(plugin.Options, *template.Compiler) (plugin.Filter, error) {
		return alwaysTrueFilter{}, nil
	})
}

func newCompiler() *Compiler {
	return NewCompiler(template.NewCompiler(template.NewRegistry()), DefaultOptions())
}

func TestCompile_LocationsStageAppliesDefaults(t *testing.T) {
	c := newCompiler()
	builders := map[string]*RuleBuilder{
		"r1": {
			Name: "r1",
			Pipeline: []StageSpec{
				{Kind: StageLocations, Locations: []LocationSpec{
					{Host: "file", Path: "/downloads"},
				}},
			},
		},
	}
	r, err := c.Compile("r1", builders)
	require.NoError(t, err)
	require.Len(t, r.Pipeline, 1)
	require.Len(t, r.Pipeline[0].Locations, 1)
	assert.Equal(t, 1, r.Pipeline[0].Locations[0].Options.MaxDepth)
}

func TestCompile_FilterStageResolvesRegisteredPlugin(t *testing.T) {
	c := newCompiler()
	builders := map[string]*RuleBuilder{
		"r1": {
			Name: "r1",
			Pipeline: []StageSpec{
				{Kind: StageFilter, PluginType: "rule-test-always-true"},
			},
		},
	}
	r, err := c.Compile("r1", builders)
	require.NoError(t, err)
	require.Len(t, r.Pipeline, 1)
	ok, err := r.Pipeline[0].Filter.Match(&plugin.Context{Resource: resource.New("file", "/a", "loc", false)})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompile_UnknownPluginTypeErrors(t *testing.T) {
	c := newCompiler()
	builders := map[string]*RuleBuilder{
		"r1": {Name: "r1", Pipeline: []StageSpec{{Kind: StageFilter, PluginType: "does-not-exist"}}},
	}
	_, err := c.Compile("r1", builders)
	require.Error(t, err)
}

func TestCompile_ComposeInlinesPipeline(t *testing.T) {
	c := newCompiler()
	builders := map[string]*RuleBuilder{
		"base": {
			Name: "base",
			Pipeline: []StageSpec{
				{Kind: StageFilter, PluginType: "rule-test-always-true"},
			},
		},
		"host": {
			Name: "host",
			Pipeline: []StageSpec{
				{Kind: StageCompose, ComposeRule: "base"},
			},
		},
	}
	r, err := c.Compile("host", builders)
	require.NoError(t, err)
	require.Len(t, r.Pipeline, 1)
	assert.Equal(t, StageFilter, r.Pipeline[0].Kind)
}

func TestCompile_ComposeMetadata_HostFieldsWinOverComposed(t *testing.T) {
	c := newCompiler()
	builders := map[string]*RuleBuilder{
		"base": {
			Name:        "base",
			Description: "base description",
			Tags:        []string{"base-tag"},
		},
		"host": {
			Name:        "host",
			Description: "host description",
			Tags:        []string{"host-tag"},
			Pipeline: []StageSpec{
				{Kind: StageCompose, ComposeRule: "base"},
			},
		},
	}
	r, err := c.Compile("host", builders)
	require.NoError(t, err)
	assert.Equal(t, "host description", r.Description)
	assert.ElementsMatch(t, []string{"host-tag", "base-tag"}, r.Tags)
}

func TestCompile_ComposeMetadata_ComposedFillsEmptyHostDescription(t *testing.T) {
	c := newCompiler()
	builders := map[string]*RuleBuilder{
		"base": {
			Name:        "base",
			Description: "base description",
		},
		"host": {
			Name: "host",
			Pipeline: []StageSpec{
				{Kind: StageCompose, ComposeRule: "base"},
			},
		},
	}
	r, err := c.Compile("host", builders)
	require.NoError(t, err)
	assert.Equal(t, "base description", r.Description)
}

func TestCompile_ComposeCycleDetected(t *testing.T) {
	c := newCompiler()
	builders := map[string]*RuleBuilder{
		"a": {Name: "a", Pipeline: []StageSpec{{Kind: StageCompose, ComposeRule: "b"}}},
		"b": {Name: "b", Pipeline: []StageSpec{{Kind: StageCompose, ComposeRule: "a"}}},
	}
	_, err := c.Compile("a", builders)
	require.Error(t, err)
}

func TestCompile_RuleNotFound(t *testing.T) {
	c := newCompiler()
	_, err := c.Compile("missing", map[string]*RuleBuilder{})
	require.Error(t, err)
}

func TestLocationOptions_DepthInvariant(t *testing.T) {
	o := Options{MinDepth: 2, MaxDepth: 1}
	require.Error(t, o.Validate())

	o = Options{MinDepth: 0, MaxDepth: 1}
	require.Error(t, o.Validate())

	o = Options{MinDepth: 1, MaxDepth: 3}
	require.NoError(t, o.Validate())
}
