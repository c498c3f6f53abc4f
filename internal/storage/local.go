package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cbr9/organizer/internal/resource"
	"github.com/cbr9/organizer/internal/rule"
	"github.com/cbr9/organizer/internal/xerrors"
)

// Local is the default Provider, backed directly by the OS filesystem.
type Local struct {
	home string
}

// NewLocal returns a Local provider rooted at the given home directory
// (used only for the discovery depth-clamp safety check).
func NewLocal(home string) *Local {
	return &Local{home: home}
}

func (l *Local) Prefix() string        { return "file" }
func (l *Local) Home() (string, error) { return l.home, nil }

func (l *Local) Metadata(_ context.Context, path string) (Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Metadata{}, xerrors.Iof(path, "", "stat failed", err)
	}
	return metadataFromFileInfo(info), nil
}

func metadataFromFileInfo(info fs.FileInfo) Metadata {
	m := Metadata{
		Size:  info.Size(),
		IsDir: info.IsDir(),
		MTime: info.ModTime(),
	}
	if sys, ok := info.Sys().(*syscall.Stat_t); ok {
		m.CTime = statCTime(sys)
		m.ATime = statATime(sys)
	}
	return m
}

func (l *Local) ReadDir(_ context.Context, path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, xerrors.Iof(path, "", "read_dir failed", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

func (l *Local) Read(_ context.Context, path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Iof(path, "", "read failed", err)
	}
	return b, nil
}

func (l *Local) Write(_ context.Context, path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return xerrors.Iof(path, "", "write: mkdir parent failed", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return xerrors.Iof(path, "", "write failed", err)
	}
	return nil
}

func (l *Local) Discover(ctx context.Context, host string, loc rule.Location) ([]*resource.Resource, error) {
	res, err := walkLocal(ctx, host, loc, l.home)
	if err != nil {
		return nil, xerrors.Iof(loc.Path, "", "discover failed", err)
	}
	return res, nil
}

func (l *Local) Mkdir(_ context.Context, path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return xerrors.Iof(path, "", "mkdir failed", err)
	}
	return nil
}

func (l *Local) Move(_ context.Context, from, to string) error {
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return xerrors.Iof(to, "", "move: mkdir parent failed", err)
	}
	if err := os.Rename(from, to); err != nil {
		if isCrossDevice(err) {
			return crossDeviceMove(from, to)
		}
		return xerrors.Iof(from, to, "move failed", err)
	}
	return nil
}

func (l *Local) Copy(_ context.Context, from, to string) error {
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return xerrors.Iof(to, "", "copy: mkdir parent failed", err)
	}
	if err := copyFile(from, to); err != nil {
		return xerrors.Iof(from, to, "copy failed", err)
	}
	return nil
}

func (l *Local) Delete(_ context.Context, path string) error {
	if err := os.RemoveAll(path); err != nil {
		return xerrors.Iof(path, "", "delete failed", err)
	}
	return nil
}

func (l *Local) Download(_ context.Context, from string) ([]byte, error) {
	return os.ReadFile(from)
}

func (l *Local) Upload(_ context.Context, local []byte, to string) error {
	return l.Write(context.Background(), to, local)
}

func (l *Local) Hardlink(_ context.Context, from, to string) error {
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return xerrors.Iof(to, "", "hardlink: mkdir parent failed", err)
	}
	if err := os.Link(from, to); err != nil {
		if isCrossDevice(err) {
			return copyFile(from, to)
		}
		return xerrors.Iof(from, to, "hardlink failed", err)
	}
	return nil
}

func (l *Local) Symlink(_ context.Context, from, to string) error {
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return xerrors.Iof(to, "", "symlink: mkdir parent failed", err)
	}
	if err := os.Symlink(from, to); err != nil {
		return xerrors.Iof(from, to, "symlink failed", err)
	}
	return nil
}

func (l *Local) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, xerrors.Iof(path, "", "exists check failed", err)
}

// isCrossDevice reports whether err is the OS's "spans different
// filesystems" condition, triggering the copy+delete / full-copy fallback.
func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return errors.Is(linkErr.Err, syscall.EXDEV)
	}
	return errors.Is(err, syscall.EXDEV)
}

// crossDeviceMove implements the copy+delete fallback for a move that
// cannot be satisfied by a same-filesystem rename.
func crossDeviceMove(from, to string) error {
	if err := copyFile(from, to); err != nil {
		return xerrors.Iof(from, to, "cross-device move: copy failed", err)
	}
	if err := os.RemoveAll(from); err != nil {
		return xerrors.Iof(from, "", "cross-device move: delete source failed", err)
	}
	return nil
}

// copyFile copies from to to, preserving the modification time when that
// is cheap (a single extra syscall) per the cross-device policy.
func copyFile(from, to string) error {
	info, err := os.Stat(from)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return copyDir(from, to, info.Mode())
	}

	src, err := os.Open(from)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(to, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}
	return os.Chtimes(to, time.Now(), info.ModTime())
}

func copyDir(from, to string, mode os.FileMode) error {
	if err := os.MkdirAll(to, mode); err != nil {
		return err
	}
	entries, err := os.ReadDir(from)
	if err != nil {
		return err
	}
	for _, e := range entries {
		src := filepath.Join(from, e.Name())
		dst := filepath.Join(to, e.Name())
		if err := copyFile(src, dst); err != nil {
			return err
		}
	}
	return nil
}
