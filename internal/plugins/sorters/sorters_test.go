package sorters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbr9/organizer/internal/resource"
)

func TestRandomSorter_PermutesWithoutLosingOrDuplicating(t *testing.T) {
	old := randSeed
	randSeed = func() int64 { return 42 }
	defer func() { randSeed = old }()

	s, err := buildRandom(nil, nil)
	require.NoError(t, err)

	resources := []*resource.Resource{
		resource.New("file", "/a", "/", false),
		resource.New("file", "/b", "/", false),
		resource.New("file", "/c", "/", false),
		resource.New("file", "/d", "/", false),
	}
	before := map[string]bool{}
	for _, r := range resources {
		before[r.Path()] = true
	}

	require.NoError(t, s.Sort(resources))

	assert.Len(t, resources, 4)
	after := map[string]bool{}
	for _, r := range resources {
		after[r.Path()] = true
	}
	assert.Equal(t, before, after)
}
