package resource

import "github.com/cbr9/organizer/internal/xerrors"

// Batch is an ordered sequence of resources that all share a single
// storage host, plus a string context map (populated by partitioners,
// e.g. the group key) and a name.
type Batch struct {
	Resources []*Resource
	Context   map[string]string
	Name      string
}

// NewBatch validates the single-host invariant and returns a Batch.
func NewBatch(name string, resources []*Resource) (*Batch, error) {
	if len(resources) > 0 {
		host := resources[0].Host()
		for _, r := range resources[1:] {
			if r.Host() != host {
				return nil, xerrors.Configf("batch resources must share one storage host", nil)
			}
		}
	}
	return &Batch{Resources: resources, Context: map[string]string{}, Name: name}, nil
}

// Host returns the shared storage host of the batch's resources, or "" if
// empty.
func (b *Batch) Host() string {
	if len(b.Resources) == 0 {
		return ""
	}
	return b.Resources[0].Host()
}

// WithResources returns a copy of b with a new resource slice (context and
// name preserved) — used by sorters/selectors that produce a reordered or
// trimmed batch without mutating the original in place.
func (b *Batch) WithResources(resources []*Resource) *Batch {
	return &Batch{Resources: resources, Context: b.Context, Name: b.Name}
}
