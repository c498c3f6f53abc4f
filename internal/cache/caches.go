package cache

import "github.com/cbr9/organizer/internal/storage"

// Caches bundles the three per-run caches named in the shared-resources
// section: file hash, stat metadata, and extracted content (used by the
// hash/mime/content template accessors and filters).
type Caches struct {
	Hash     *Cache[string]
	Metadata *Cache[storage.Metadata]
	Content  *Cache[[]byte]
}

// NewCaches builds the three caches at DefaultCapacity.
func NewCaches() (*Caches, error) {
	hash, err := New[string](DefaultCapacity)
	if err != nil {
		return nil, err
	}
	meta, err := New[storage.Metadata](DefaultCapacity)
	if err != nil {
		return nil, err
	}
	content, err := New[[]byte](DefaultCapacity)
	if err != nil {
		return nil, err
	}
	return &Caches{Hash: hash, Metadata: meta, Content: content}, nil
}
