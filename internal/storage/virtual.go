package storage

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/cbr9/organizer/internal/resource"
	"github.com/cbr9/organizer/internal/rule"
)

// Virtual wraps a real Provider and intercepts every mutating call,
// recording the intended effect in an in-memory overlay instead of
// touching the filesystem. Reads (Metadata, ReadDir, Read, Download,
// Discover) go straight to the wrapped provider; Exists alone is
// reconciled against the overlay, so a dry-run sees the paths its own
// mutations created or removed — property 10 (dry-run matches a real run's decisions) depends on this:
// the locker and downstream stages must observe the same existence view
// whether or not the run actually mutates disk.
type Virtual struct {
	inner Provider

	mu      sync.Mutex
	created map[string]bool
	deleted map[string]bool
}

// NewVirtual wraps inner for dry-run execution.
func NewVirtual(inner Provider) *Virtual {
	return &Virtual{
		inner:   inner,
		created: make(map[string]bool),
		deleted: make(map[string]bool),
	}
}

func (v *Virtual) Prefix() string        { return "virtual" }
func (v *Virtual) Home() (string, error) { return v.inner.Home() }

func (v *Virtual) Metadata(ctx context.Context, path string) (Metadata, error) {
	return v.inner.Metadata(ctx, path)
}

func (v *Virtual) ReadDir(ctx context.Context, path string) ([]string, error) {
	return v.inner.ReadDir(ctx, path)
}

func (v *Virtual) Read(ctx context.Context, path string) ([]byte, error) {
	return v.inner.Read(ctx, path)
}

func (v *Virtual) Write(_ context.Context, path string, _ []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.created[filepath.Clean(path)] = true
	delete(v.deleted, filepath.Clean(path))
	return nil
}

func (v *Virtual) Discover(ctx context.Context, host string, loc rule.Location) ([]*resource.Resource, error) {
	return v.inner.Discover(ctx, host, loc)
}

func (v *Virtual) Mkdir(_ context.Context, path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.created[filepath.Clean(path)] = true
	delete(v.deleted, filepath.Clean(path))
	return nil
}

func (v *Virtual) Move(_ context.Context, from, to string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.deleted[filepath.Clean(from)] = true
	delete(v.created, filepath.Clean(from))
	v.created[filepath.Clean(to)] = true
	delete(v.deleted, filepath.Clean(to))
	return nil
}

func (v *Virtual) Copy(_ context.Context, _, to string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.created[filepath.Clean(to)] = true
	delete(v.deleted, filepath.Clean(to))
	return nil
}

func (v *Virtual) Delete(_ context.Context, path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.deleted[filepath.Clean(path)] = true
	delete(v.created, filepath.Clean(path))
	return nil
}

func (v *Virtual) Download(ctx context.Context, from string) ([]byte, error) {
	return v.inner.Download(ctx, from)
}

func (v *Virtual) Upload(_ context.Context, _ []byte, to string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.created[filepath.Clean(to)] = true
	delete(v.deleted, filepath.Clean(to))
	return nil
}

func (v *Virtual) Hardlink(_ context.Context, _, to string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.created[filepath.Clean(to)] = true
	return nil
}

func (v *Virtual) Symlink(_ context.Context, _, to string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.created[filepath.Clean(to)] = true
	return nil
}

// Exists layers the overlay over the wrapped provider's real existence
// check: a virtually-deleted path reads as absent, a virtually-created
// one reads as present, and anything untouched falls through.
func (v *Virtual) Exists(ctx context.Context, path string) (bool, error) {
	clean := filepath.Clean(path)
	v.mu.Lock()
	if v.deleted[clean] {
		v.mu.Unlock()
		return false, nil
	}
	if v.created[clean] {
		v.mu.Unlock()
		return true, nil
	}
	v.mu.Unlock()
	return v.inner.Exists(ctx, path)
}
