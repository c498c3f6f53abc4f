package filters

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbr9/organizer/internal/engine"
	"github.com/cbr9/organizer/internal/plugin"
	"github.com/cbr9/organizer/internal/resource"
	"github.com/cbr9/organizer/internal/rule"
	"github.com/cbr9/organizer/internal/storage"
)

func newTestContext(t *testing.T, dir, path string) *plugin.Context {
	t.Helper()
	reg := storage.NewRegistry()
	reg.Register("file", storage.NewLocal(dir))
	services := &engine.RunServices{Storage: reg}
	root := engine.New(context.Background(), services, nil, nil)
	res := resource.New("file", path, dir, false)
	ec := root.WithScope(engine.RuleScope(&rule.Rule{Name: "t"}).WithResource(res))
	return &plugin.Context{EvalContext: ec, Resource: res}
}

func TestExtensionFilter_MatchesConfiguredExtensions(t *testing.T) {
	f, err := buildExtension(plugin.Options{"extensions": []string{"txt", "md"}}, nil)
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	ok, err := f.Match(newTestContext(t, dir, path))
	require.NoError(t, err)
	assert.True(t, ok)

	path2 := filepath.Join(dir, "a.jpg")
	require.NoError(t, os.WriteFile(path2, []byte("x"), 0o644))
	ok, err = f.Match(newTestContext(t, dir, path2))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegexFilter_MatchesBaseName(t *testing.T) {
	f, err := buildRegex(plugin.Options{"pattern": `^invoice-\d+\.pdf$`}, nil)
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "invoice-42.pdf")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	ok, err := f.Match(newTestContext(t, dir, path))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEmptyFilter_TrueOnlyForZeroByteFiles(t *testing.T) {
	f, err := buildEmpty(nil, nil)
	require.NoError(t, err)

	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	nonEmpty := filepath.Join(dir, "full.txt")
	require.NoError(t, os.WriteFile(nonEmpty, []byte("x"), 0o644))

	ok, err := f.Match(newTestContext(t, dir, empty))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.Match(newTestContext(t, dir, nonEmpty))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMimeFilter_DetectsPlainText(t *testing.T) {
	f, err := buildMime(plugin.Options{"types": []string{"text/plain"}}, nil)
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("just plain ascii text"), 0o644))

	ok, err := f.Match(newTestContext(t, dir, path))
	require.NoError(t, err)
	assert.True(t, ok)
}

// stubFilter is a minimal plugin.Filter used to exercise the combinators
// without depending on a concrete leaf filter's behavior.
type stubFilter struct{ result bool }

func (stubFilter) Tag() string                          { return "stub" }
func (s stubFilter) Match(*plugin.Context) (bool, error) { return s.result, nil }

func TestCombinators_EvaluateAccordingToBooleanSemantics(t *testing.T) {
	ctx := newTestContext(t, t.TempDir(), "")

	notF, err := buildNot(plugin.Options{"filters": []plugin.Filter{stubFilter{result: true}}}, nil)
	require.NoError(t, err)
	ok, err := notF.Match(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	anyF, err := buildAnyOf(plugin.Options{"filters": []plugin.Filter{stubFilter{false}, stubFilter{true}}}, nil)
	require.NoError(t, err)
	ok, err = anyF.Match(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	allF, err := buildAllOf(plugin.Options{"filters": []plugin.Filter{stubFilter{true}, stubFilter{false}}}, nil)
	require.NoError(t, err)
	ok, err = allF.Match(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	noneF, err := buildNoneOf(plugin.Options{"filters": []plugin.Filter{stubFilter{false}, stubFilter{false}}}, nil)
	require.NoError(t, err)
	ok, err = noneF.Match(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}
