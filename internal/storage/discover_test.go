package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbr9/organizer/internal/rule"
)

func writeTree(t *testing.T, root string, files []string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
}

func TestLocal_Discover_RespectsDepthAndExclude(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, []string{
		"a.txt",
		"skip/b.txt",
		"keep/c.txt",
		"keep/nested/d.txt",
	})

	local := NewLocal("/nonexistent-home")
	opts := rule.DefaultOptions()
	opts.MaxDepth = 2
	opts.Exclude = []string{"skip"}
	loc := rule.Location{Host: "file", Path: root, Options: opts}

	resources, err := local.Discover(context.Background(), "file", loc)
	require.NoError(t, err)

	var names []string
	for _, r := range resources {
		names = append(names, r.Name())
	}
	assert.Contains(t, names, "a.txt")
	assert.Contains(t, names, "c.txt")
	assert.Contains(t, names, "d.txt")
	assert.NotContains(t, names, "b.txt")
}

func TestLocal_Discover_HomeRootClampsDepth(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, []string{
		"top.txt",
		"deep/nested/file.txt",
	})

	local := NewLocal(root)
	opts := rule.DefaultOptions()
	opts.MaxDepth = 5
	opts.MinDepth = 1
	loc := rule.Location{Host: "file", Path: root, Options: opts}

	resources, err := local.Discover(context.Background(), "file", loc)
	require.NoError(t, err)

	var names []string
	for _, r := range resources {
		names = append(names, r.Name())
	}
	assert.Contains(t, names, "top.txt")
	assert.NotContains(t, names, "file.txt")
}

func TestLocal_Discover_HiddenFilesExcludedByDefault(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, []string{".hidden", "visible.txt"})

	local := NewLocal("/nonexistent-home")
	loc := rule.Location{Host: "file", Path: root, Options: rule.DefaultOptions()}

	resources, err := local.Discover(context.Background(), "file", loc)
	require.NoError(t, err)

	var names []string
	for _, r := range resources {
		names = append(names, r.Name())
	}
	assert.Contains(t, names, "visible.txt")
	assert.NotContains(t, names, ".hidden")
}

func TestLocal_Discover_PartialDownloadsExcludedUnlessOptedIn(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, []string{"movie.mp4.crdownload", "movie.mp4"})

	local := NewLocal("/nonexistent-home")
	opts := rule.DefaultOptions()
	loc := rule.Location{Host: "file", Path: root, Options: opts}

	resources, err := local.Discover(context.Background(), "file", loc)
	require.NoError(t, err)
	var names []string
	for _, r := range resources {
		names = append(names, r.Name())
	}
	assert.NotContains(t, names, "movie.mp4.crdownload")

	opts.PartialFiles = true
	loc.Options = opts
	resources, err = local.Discover(context.Background(), "file", loc)
	require.NoError(t, err)
	names = nil
	for _, r := range resources {
		names = append(names, r.Name())
	}
	assert.Contains(t, names, "movie.mp4.crdownload")
}

func TestLocal_Discover_SymlinkedDirTreatedAsFileByDefault(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, []string{"real/inside.txt"})
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "link")))

	local := NewLocal("/nonexistent-home")
	opts := rule.DefaultOptions()
	opts.MaxDepth = 2
	loc := rule.Location{Host: "file", Path: root, Options: opts}

	resources, err := local.Discover(context.Background(), "file", loc)
	require.NoError(t, err)

	var names []string
	for _, r := range resources {
		names = append(names, r.Name())
	}
	assert.Contains(t, names, "link")
	assert.NotContains(t, names, "inside.txt")
}

func TestLocal_Discover_FollowSymlinksRecursesIntoLinkedDir(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, []string{"real/inside.txt"})
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "link")))

	local := NewLocal("/nonexistent-home")
	opts := rule.DefaultOptions()
	opts.MaxDepth = 2
	opts.FollowSymlinks = true
	loc := rule.Location{Host: "file", Path: root, Options: opts}

	resources, err := local.Discover(context.Background(), "file", loc)
	require.NoError(t, err)

	var names []string
	for _, r := range resources {
		names = append(names, r.Name())
	}
	assert.Contains(t, names, "inside.txt")
	assert.NotContains(t, names, "link")
}

func TestVirtual_ExistsOverlayReflectsMutations(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "real.txt")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0o644))

	local := NewLocal(root)
	v := NewVirtual(local)
	ctx := context.Background()

	ok, err := v.Exists(ctx, existing)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, v.Delete(ctx, existing))
	ok, err = v.Exists(ctx, existing)
	require.NoError(t, err)
	assert.False(t, ok, "virtual delete should mask the real file's existence")

	// The real file must be untouched.
	_, statErr := os.Stat(existing)
	assert.NoError(t, statErr)

	newPath := filepath.Join(root, "new.txt")
	ok, err = v.Exists(ctx, newPath)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, v.Mkdir(ctx, newPath))
	ok, err = v.Exists(ctx, newPath)
	require.NoError(t, err)
	assert.True(t, ok, "virtual mkdir should be visible in the overlay")

	_, statErr = os.Stat(newPath)
	assert.Error(t, statErr, "virtual provider must never touch the real filesystem")
}
