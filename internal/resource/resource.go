// Package resource defines the engine's file identity: a host-qualified
// path shared by every pipeline stage through an ordinary Go pointer.
// Resources are never mutated; an action that changes a file's location
// produces a brand-new *Resource for the downstream stream instead.
package resource

import "path/filepath"

// Resource is a host-qualified absolute path produced by a storage
// provider's discovery pass. Two resources are equal iff Host and Path
// match; Resources are always passed around as *Resource so every stage
// shares one identity instead of copying the payload.
type Resource struct {
	host     string
	path     string
	location string // the root path of the Location that produced this resource
	isDir    bool
}

// New constructs a Resource. host is the storage-provider key ("file",
// "sftp:backup-box", ...); path is absolute within that host's namespace.
func New(host, path, location string, isDir bool) *Resource {
	return &Resource{host: host, path: path, location: location, isDir: isDir}
}

// Host returns the storage-provider key that owns this resource.
func (r *Resource) Host() string { return r.host }

// Path returns the absolute path within Host's namespace.
func (r *Resource) Path() string { return r.path }

// Location returns the root path of the Location that discovered this
// resource, so its storage backend and root are always recoverable.
func (r *Resource) Location() string { return r.location }

// IsDir reports whether this resource names a directory.
func (r *Resource) IsDir() bool { return r.isDir }

// Name returns the final path element.
func (r *Resource) Name() string { return filepath.Base(r.path) }

// Ext returns the file extension without its leading dot, or "" if none.
func (r *Resource) Ext() string {
	e := filepath.Ext(r.path)
	if e == "" {
		return ""
	}
	return e[1:]
}

// Stem returns the file name without its extension.
func (r *Resource) Stem() string {
	name := r.Name()
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)]
}

// Dir returns the containing directory.
func (r *Resource) Dir() string { return filepath.Dir(r.path) }

// Key returns a string uniquely identifying this resource for use as a map
// key (host-qualified, since two hosts may share a path namespace).
func (r *Resource) Key() string { return r.host + "://" + r.path }

// WithPath returns a new Resource for the same host/location but a
// different path — the handle that replaces r in the downstream stream
// after a move/rename action.
func (r *Resource) WithPath(path string) *Resource {
	return New(r.host, path, r.location, r.isDir)
}
