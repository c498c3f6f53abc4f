// Package sorters implements the built-in Sorter plugins.
package sorters

import (
	"math/rand"
	"time"

	"github.com/cbr9/organizer/internal/plugin"
	"github.com/cbr9/organizer/internal/resource"
	"github.com/cbr9/organizer/internal/template"
)

func init() {
	plugin.RegisterSorter("random", buildRandom)
}

// randomSorter shuffles a batch's resources with no further ordering
// guarantee, matching spec.md's "tests must not depend on it" clause for
// within-stage ordering.
type randomSorter struct {
	rng *rand.Rand
}

func buildRandom(plugin.Options, *template.Compiler) (plugin.Sorter, error) {
	return randomSorter{rng: rand.New(rand.NewSource(randSeed()))}, nil
}

// randSeed is a package variable so tests can pin it for a deterministic
// shuffle.
var randSeed = func() int64 { return time.Now().UnixNano() }

func (randomSorter) Tag() string { return "random" }

func (s randomSorter) Sort(resources []*resource.Resource) error {
	s.rng.Shuffle(len(resources), func(i, j int) {
		resources[i], resources[j] = resources[j], resources[i]
	})
	return nil
}
