// Package locker implements the destination locker: the process-wide
// compare-and-swap set that guarantees at most one worker ever holds a
// given destination path, generalizing the same sync.Map.LoadOrStore
// dedup technique a fan-out operator uses to admit only one run per
// dedup key.
package locker

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cbr9/organizer/internal/storage"
)

// ConflictResolution is the policy applied when a rendered destination is
// already reserved or already exists on disk.
type ConflictResolution int

const (
	Skip ConflictResolution = iota
	Overwrite
	Rename
)

// Destination names what an action is about to produce: a path template's
// already-rendered string, the host it resolves on, and the conflict
// policy to apply.
type Destination struct {
	Path       string
	Host       string
	Resolution ConflictResolution
}

// Locker is the process-wide active-path set. One Locker instance is
// shared by every worker in a run (held in RunServices).
type Locker struct {
	active sync.Map // key: host+"://"+path -> struct{}
}

// New returns an empty Locker.
func New() *Locker {
	return &Locker{}
}

// LockGuard holds one reserved destination path; Release frees it
// regardless of whether the caller's action ultimately succeeded.
type LockGuard struct {
	locker *Locker
	key    string
	Path   string

	released bool
}

// Release removes the path from the active set. Safe to call once; a
// second call is a no-op.
func (g *LockGuard) Release() {
	if g == nil || g.released {
		return
	}
	g.released = true
	g.locker.active.Delete(g.key)
}

func key(host, path string) string {
	return host + "://" + path
}

// Lock implements lock_destination: it renders no templates itself (the
// caller already has a concrete Destination.Path) and instead owns only
// the reservation/conflict loop. provider is used for the on-disk
// existence check; a nil LockGuard (no error) means "skip this action,
// the destination is reserved or exists and the policy says skip".
func (l *Locker) Lock(ctx context.Context, provider storage.Provider, dest Destination) (*LockGuard, error) {
	path := dest.Path
	n := 1
	for {
		k := key(dest.Host, path)

		if _, loaded := l.active.Load(k); loaded {
			switch dest.Resolution {
			case Skip, Overwrite:
				return nil, nil
			case Rename:
				path = rename(path, n)
				n++
				continue
			}
		}

		exists, err := provider.Exists(ctx, path)
		if err != nil {
			return nil, err
		}
		if exists {
			switch dest.Resolution {
			case Skip:
				return nil, nil
			case Overwrite:
				if _, loaded := l.active.LoadOrStore(k, struct{}{}); loaded {
					return nil, nil
				}
				return l.finish(ctx, provider, k, path)
			case Rename:
				path = rename(path, n)
				n++
				continue
			}
		}

		if _, loaded := l.active.LoadOrStore(k, struct{}{}); loaded {
			// Lost a race against a concurrent worker; retry the same path.
			continue
		}
		return l.finish(ctx, provider, k, path)
	}
}

func (l *Locker) finish(ctx context.Context, provider storage.Provider, k, path string) (*LockGuard, error) {
	if err := provider.Mkdir(ctx, filepath.Dir(path)); err != nil {
		l.active.Delete(k)
		return nil, err
	}
	return &LockGuard{locker: l, key: k, Path: path}, nil
}

// rename produces the next disambiguated candidate for path: "<stem>
// (n)<ext>" inserted before the final extension.
func rename(path string, n int) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
}
