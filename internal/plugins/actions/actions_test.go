package actions

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbr9/organizer/internal/engine"
	"github.com/cbr9/organizer/internal/locker"
	"github.com/cbr9/organizer/internal/plugin"
	"github.com/cbr9/organizer/internal/resource"
	"github.com/cbr9/organizer/internal/rule"
	"github.com/cbr9/organizer/internal/storage"
	"github.com/cbr9/organizer/internal/template"
)

// fakeRuntime wires plugin.ActionRuntime directly to a real storage.Local
// provider and a real locker.Locker, so action tests exercise the same
// reservation/conflict loop production code does.
type fakeRuntime struct {
	reg    *storage.Registry
	locker *locker.Locker
}

func newFakeRuntime(dir string) *fakeRuntime {
	reg := storage.NewRegistry()
	reg.Register("file", storage.NewLocal(dir))
	return &fakeRuntime{reg: reg, locker: locker.New()}
}

func (f *fakeRuntime) Provider(host string) (plugin.StorageProvider, error) {
	return f.reg.Get(host)
}

func (f *fakeRuntime) Lock(ctx context.Context, dest plugin.Destination) (plugin.LockGuard, error) {
	provider, err := f.reg.Get(dest.Host)
	if err != nil {
		return nil, err
	}
	guard, err := f.locker.Lock(ctx, provider, locker.Destination{
		Path: dest.Path, Host: dest.Host, Resolution: locker.ConflictResolution(dest.Resolution),
	})
	if err != nil || guard == nil {
		return nil, err
	}
	return testGuard{guard}, nil
}

type testGuard struct{ g *locker.LockGuard }

func (t testGuard) Path() string { return t.g.Path }
func (t testGuard) Release()     { t.g.Release() }

func newResourceContext(t *testing.T, rt *fakeRuntime, res *resource.Resource) *plugin.Context {
	t.Helper()
	services := &engine.RunServices{Storage: rt.reg}
	root := engine.New(context.Background(), services, nil, nil)
	r := &rule.Rule{Name: "test-rule"}
	ec := root.WithScope(engine.RuleScope(r).WithResource(res))
	return &plugin.Context{EvalContext: ec, Resource: res, Runtime: rt}
}

func literalTemplate(t *testing.T, s string) *template.Template {
	t.Helper()
	c := template.NewCompiler(template.NewRegistry())
	tpl, err := c.CompileTemplate(s)
	require.NoError(t, err)
	return tpl
}

func TestMoveAction_RelocatesAndRecordsUndo(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("hi"), 0o644))

	rt := newFakeRuntime(dir)
	res := resource.New("file", src, dir, false)
	ctx := newResourceContext(t, rt, res)

	dest := filepath.Join(dir, "out", "a.txt")
	action := moveAction{To: literalTemplate(t, dest), Resolution: plugin.LockRename}

	receipt, err := action.Run(ctx)
	require.NoError(t, err)
	require.Len(t, receipt.Next, 1)
	assert.Equal(t, dest, receipt.Next[0].Path())
	require.Len(t, receipt.Undo, 1)

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(dest)
	assert.NoError(t, err)

	undo := receipt.Undo[0].(moveUndo)
	assert.Equal(t, src, undo.From)
	assert.Equal(t, dest, undo.To)
}

func TestCopyAction_KeepsOriginalFlowingAndCreatesCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("hi"), 0o644))

	rt := newFakeRuntime(dir)
	res := resource.New("file", src, dir, false)
	ctx := newResourceContext(t, rt, res)

	dest := filepath.Join(dir, "copy.txt")
	action := copyAction{To: literalTemplate(t, dest), Resolution: plugin.LockRename}

	receipt, err := action.Run(ctx)
	require.NoError(t, err)
	require.Len(t, receipt.Next, 1)
	assert.Equal(t, src, receipt.Next[0].Path())
	assert.Equal(t, []string{dest}, receipt.Created)

	_, err = os.Stat(src)
	assert.NoError(t, err)
	_, err = os.Stat(dest)
	assert.NoError(t, err)
}

func TestMoveAction_SkipIfExistsReturnsUnchangedResourceWithNoUndo(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dest := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(src, []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(dest, []byte("already here"), 0o644))

	rt := newFakeRuntime(dir)
	res := resource.New("file", src, dir, false)
	ctx := newResourceContext(t, rt, res)

	action := moveAction{To: literalTemplate(t, dest), Resolution: plugin.LockSkip}
	receipt, err := action.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, receipt.Undo)
	require.Len(t, receipt.Next, 1)
	assert.Equal(t, src, receipt.Next[0].Path())

	_, err = os.Stat(src)
	assert.NoError(t, err, "source must be untouched when the action is skipped")
}

func TestDeleteAction_RemovesFileAndUndoRestoresContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))

	rt := newFakeRuntime(dir)
	res := resource.New("file", path, dir, false)
	ctx := newResourceContext(t, rt, res)

	receipt, err := deleteAction{}.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, receipt.Deleted)
	require.Len(t, receipt.Undo, 1)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	undoCtx := fakeUndoContext{reg: rt.reg}
	require.NoError(t, receipt.Undo[0].Undo(undoCtx))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestWriteAction_NewFileUndoDeletesIt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "generated.txt")

	rt := newFakeRuntime(dir)
	res := resource.New("file", filepath.Join(dir, "src.txt"), dir, false)
	require.NoError(t, os.WriteFile(res.Path(), []byte("x"), 0o644))
	ctx := newResourceContext(t, rt, res)

	action := writeAction{To: literalTemplate(t, path), Content: literalTemplate(t, "hello")}
	receipt, err := action.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, receipt.Created)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	undoCtx := fakeUndoContext{reg: rt.reg}
	require.NoError(t, receipt.Undo[0].Undo(undoCtx))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

type fakeUndoContext struct {
	reg *storage.Registry
}

func (f fakeUndoContext) Provider(host string) (plugin.StorageProvider, error) { return f.reg.Get(host) }
func (f fakeUndoContext) OnConflict() plugin.ConflictPolicy                    { return plugin.ConflictAbort }
