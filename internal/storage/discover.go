package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/cbr9/organizer/internal/resource"
	"github.com/cbr9/organizer/internal/rule"
)

// isHidden reports whether name (a single path element) is a dotfile.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// isPartialDownload reports whether ext (without its leading dot) marks an
// in-progress download.
func isPartialDownload(ext string) bool {
	return partialExtensions[strings.ToLower(ext)]
}

// clampToHome enforces the spec's home-root safety clamp: scanning the
// user's home directory itself always behaves as min_depth=max_depth=1,
// regardless of what the rule author configured, to prevent an accidental
// whole-home recursive scan.
func clampToHome(opts rule.Options, path, home string) rule.Options {
	if home != "" && filepath.Clean(path) == filepath.Clean(home) {
		opts.MinDepth = 1
		opts.MaxDepth = 1
	}
	return opts
}

// walkLocal implements the discovery algorithm against the local
// filesystem's os.DirEntry walk. Only the local provider uses it: S3 lists
// keys in its own Discover, SFTP does not support discovery, and Virtual
// delegates to the provider it wraps.
//
// A directory entry that is itself a symlink is treated as a leaf (listed,
// never recursed into) unless opts.FollowSymlinks is set, in which case
// its target is stat'd and classified (and walked, if a directory) the
// same as a real directory entry.
func walkLocal(ctx context.Context, host string, loc rule.Location, home string) ([]*resource.Resource, error) {
	opts := clampToHome(loc.Options, loc.Path, home)

	var out []*resource.Resource
	var walk func(dir string, depth int) error
	walk = func(dir string, depth int) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			name := e.Name()
			full := filepath.Join(dir, name)
			childDepth := depth + 1

			isDir := e.IsDir()
			if opts.FollowSymlinks && e.Type()&os.ModeSymlink != 0 {
				if info, err := os.Stat(full); err == nil {
					isDir = info.IsDir()
				}
			}

			if isDir {
				if matchesExclude(name, opts.Exclude) {
					continue
				}
				if childDepth <= opts.MaxDepth {
					if err := walk(full, childDepth); err != nil {
						return err
					}
				}
				if childDepth >= opts.MinDepth && childDepth <= opts.MaxDepth &&
					(opts.Target == rule.TargetFolders || opts.Target == rule.TargetBoth) {
					if opts.Hidden || !isHidden(name) {
						out = append(out, resource.New(host, full, loc.Path, true))
					}
				}
				continue
			}

			if childDepth < opts.MinDepth || childDepth > opts.MaxDepth {
				continue
			}
			if opts.Target == rule.TargetFolders {
				continue
			}
			ext := filepath.Ext(name)
			if ext != "" {
				ext = ext[1:]
			}
			if isPartialDownload(ext) && !opts.PartialFiles {
				continue
			}
			if !opts.Hidden && isHidden(name) {
				continue
			}
			out = append(out, resource.New(host, full, loc.Path, false))
		}
		return nil
	}

	if err := walk(loc.Path, 0); err != nil {
		return nil, err
	}
	return out, nil
}

// matchesExclude reports whether a directory's own name matches any of the
// exclude prefilter patterns (exact names or filepath.Match globs).
func matchesExclude(name string, exclude []string) bool {
	for _, pat := range exclude {
		if ok, err := filepath.Match(pat, name); err == nil && ok {
			return true
		}
		if name == pat {
			return true
		}
	}
	return false
}
