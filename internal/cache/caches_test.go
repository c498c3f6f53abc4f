package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbr9/organizer/internal/storage"
)

func TestNewCaches_BuildsAllThreeCaches(t *testing.T) {
	caches, err := NewCaches()
	require.NoError(t, err)

	_, err = caches.Hash.GetOrCompute("k", func() (string, error) { return "abc123", nil })
	require.NoError(t, err)

	_, err = caches.Metadata.GetOrCompute("k", func() (storage.Metadata, error) {
		return storage.Metadata{Size: 10, MTime: time.Unix(0, 0)}, nil
	})
	require.NoError(t, err)

	_, err = caches.Content.GetOrCompute("k", func() ([]byte, error) { return []byte("data"), nil })
	require.NoError(t, err)

	assert.Equal(t, 1, caches.Hash.Len())
	assert.Equal(t, 1, caches.Metadata.Len())
	assert.Equal(t, 1, caches.Content.Len())
}
