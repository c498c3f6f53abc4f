// Package selectors implements the built-in Selector plugins.
package selectors

import (
	"fmt"

	"github.com/cbr9/organizer/internal/plugin"
	"github.com/cbr9/organizer/internal/resource"
	"github.com/cbr9/organizer/internal/template"
)

func init() {
	plugin.RegisterSelector("first", buildFirst)
}

// firstSelector narrows a batch to its first Count resources (all of them
// when Count <= 0 or exceeds the batch size).
type firstSelector struct {
	Count int
}

func buildFirst(opts plugin.Options, _ *template.Compiler) (plugin.Selector, error) {
	raw, ok := opts["count"]
	if !ok {
		return nil, fmt.Errorf("first: missing %q option", "count")
	}
	count, err := toInt(raw)
	if err != nil {
		return nil, fmt.Errorf("first: %q must be an integer: %w", "count", err)
	}
	return firstSelector{Count: count}, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
}

func (firstSelector) Tag() string { return "first" }

func (s firstSelector) Select(batch *resource.Batch) (*resource.Batch, error) {
	if s.Count <= 0 || s.Count >= len(batch.Resources) {
		return batch, nil
	}
	return batch.WithResources(append([]*resource.Resource(nil), batch.Resources[:s.Count]...)), nil
}
