// Package storage implements the host-keyed filesystem abstraction every
// pipeline stage goes through instead of touching the OS directly: a
// Provider per storage backend (local disk, an in-memory dry-run overlay,
// a remote SFTP host, an S3 bucket), looked up by host name through a
// Registry.
package storage

import (
	"context"
	"time"

	"github.com/cbr9/organizer/internal/resource"
	"github.com/cbr9/organizer/internal/rule"
)

// Metadata describes one path's stat information.
type Metadata struct {
	Size  int64
	IsDir bool
	MTime time.Time
	CTime time.Time
	ATime time.Time
}

// partialExtensions are extensions that mark an in-progress download;
// discovery skips them unless the location's Options.PartialFiles is set.
var partialExtensions = map[string]bool{
	"crdownload": true,
	"part":       true,
	"download":   true,
}

// Provider is one storage backend, keyed by host name in a Registry.
type Provider interface {
	// Prefix is this provider's protocol prefix ("file", "sftp", "s3", "virtual").
	Prefix() string
	// Home returns the backend's home directory, used to clamp discovery
	// depth when a location's root is the home directory itself.
	Home() (string, error)

	Metadata(ctx context.Context, path string) (Metadata, error)
	ReadDir(ctx context.Context, path string) ([]string, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error

	// Discover walks loc.Path to loc.Options.MaxDepth and returns every
	// resource the location's options admit.
	Discover(ctx context.Context, host string, loc rule.Location) ([]*resource.Resource, error)

	Mkdir(ctx context.Context, path string) error
	Move(ctx context.Context, from, to string) error
	Copy(ctx context.Context, from, to string) error
	Delete(ctx context.Context, path string) error

	// Download/Upload move bytes between this provider and the local host;
	// a local-backed provider reads and writes the file itself.
	Download(ctx context.Context, from string) ([]byte, error)
	Upload(ctx context.Context, local []byte, to string) error

	Hardlink(ctx context.Context, from, to string) error
	Symlink(ctx context.Context, from, to string) error

	// Exists reports whether path currently resolves to something, real or
	// (for Virtual) virtually created/deleted. Used by the destination
	// locker's conflict check.
	Exists(ctx context.Context, path string) (bool, error)
}
