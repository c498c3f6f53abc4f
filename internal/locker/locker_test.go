package locker

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbr9/organizer/internal/storage"
)

// stubProvider implements only what Locker.Lock needs; embedding the
// interface lets it satisfy storage.Provider without stubbing every
// method this package never calls.
type stubProvider struct {
	storage.Provider
	mu       sync.Mutex
	existing map[string]bool
	mkdirs   []string
}

func newStubProvider(existing ...string) *stubProvider {
	m := make(map[string]bool)
	for _, e := range existing {
		m[e] = true
	}
	return &stubProvider{existing: m}
}

func (s *stubProvider) Exists(_ context.Context, path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.existing[path], nil
}

func (s *stubProvider) Mkdir(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mkdirs = append(s.mkdirs, path)
	return nil
}

func TestLocker_SkipWhenDestinationExists(t *testing.T) {
	l := New()
	p := newStubProvider("/dst/file.txt")
	guard, err := l.Lock(context.Background(), p, Destination{Path: "/dst/file.txt", Host: "file", Resolution: Skip})
	require.NoError(t, err)
	assert.Nil(t, guard)
}

func TestLocker_OverwriteAcquiresExistingDestination(t *testing.T) {
	l := New()
	p := newStubProvider("/dst/file.txt")
	guard, err := l.Lock(context.Background(), p, Destination{Path: "/dst/file.txt", Host: "file", Resolution: Overwrite})
	require.NoError(t, err)
	require.NotNil(t, guard)
	assert.Equal(t, "/dst/file.txt", guard.Path)
}

func TestLocker_RenameProducesDistinctSuffixesConcurrently(t *testing.T) {
	l := New()
	p := newStubProvider()

	const n = 8
	var wg sync.WaitGroup
	paths := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			guard, err := l.Lock(context.Background(), p, Destination{Path: "/dst/file.txt", Host: "file", Resolution: Rename})
			require.NoError(t, err)
			require.NotNil(t, guard)
			paths[i] = guard.Path
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, p := range paths {
		assert.False(t, seen[p], "duplicate destination path acquired: %s", p)
		seen[p] = true
	}
	assert.Len(t, seen, n)
}

func TestLocker_ReleaseFreesThePathForReacquisition(t *testing.T) {
	l := New()
	p := newStubProvider()

	guard, err := l.Lock(context.Background(), p, Destination{Path: "/dst/a.txt", Host: "file", Resolution: Rename})
	require.NoError(t, err)
	assert.Equal(t, "/dst/a.txt", guard.Path)

	guard2, err := l.Lock(context.Background(), p, Destination{Path: "/dst/a.txt", Host: "file", Resolution: Rename})
	require.NoError(t, err)
	assert.NotEqual(t, guard.Path, guard2.Path)

	guard.Release()
	guard3, err := l.Lock(context.Background(), p, Destination{Path: "/dst/a.txt", Host: "file", Resolution: Rename})
	require.NoError(t, err)
	assert.Equal(t, "/dst/a.txt", guard3.Path)
}

func TestRename_InsertsSuffixBeforeExtension(t *testing.T) {
	assert.Equal(t, "/dst/file (1).txt", rename("/dst/file.txt", 1))
	assert.Equal(t, "/dst/file (2)", rename("/dst/file", 2))
}
