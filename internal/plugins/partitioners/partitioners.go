// Package partitioners implements the built-in Partitioner plugins:
// extension (group by file extension) and ratio (split into weighted,
// ordered shares).
package partitioners

import (
	"fmt"

	"github.com/cbr9/organizer/internal/plugin"
	"github.com/cbr9/organizer/internal/resource"
	"github.com/cbr9/organizer/internal/template"
)

func init() {
	plugin.RegisterPartitioner("extension", buildExtension)
	plugin.RegisterPartitioner("ratio", buildRatio)
}

// extensionPartitioner groups a batch's resources by extension (directories
// and extension-less files land under the "" group).
type extensionPartitioner struct{}

func buildExtension(plugin.Options, *template.Compiler) (plugin.Partitioner, error) {
	return extensionPartitioner{}, nil
}

func (extensionPartitioner) Tag() string { return "extension" }

func (extensionPartitioner) Partition(batch *resource.Batch) (map[string]*resource.Batch, error) {
	groups := map[string][]*resource.Resource{}
	var order []string
	for _, r := range batch.Resources {
		ext := r.Ext()
		if _, ok := groups[ext]; !ok {
			order = append(order, ext)
		}
		groups[ext] = append(groups[ext], r)
	}
	out := make(map[string]*resource.Batch, len(order))
	for _, ext := range order {
		b, err := resource.NewBatch(batch.Name+":"+ext, groups[ext])
		if err != nil {
			return nil, err
		}
		out[ext] = b
	}
	return out, nil
}

// ratioPartitioner splits a batch, in arrival order, into named shares
// whose sizes are proportional to Weights.
type ratioPartitioner struct {
	Names   []string
	Weights []float64
}

func buildRatio(opts plugin.Options, _ *template.Compiler) (plugin.Partitioner, error) {
	raw, ok := opts["shares"]
	if !ok {
		return nil, fmt.Errorf("ratio: missing %q option", "shares")
	}
	shares, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("ratio: %q must be a table of name -> weight", "shares")
	}
	p := ratioPartitioner{}
	var total float64
	for name, w := range shares {
		weight, err := toFloat(w)
		if err != nil {
			return nil, fmt.Errorf("ratio: share %q: %w", name, err)
		}
		if weight <= 0 {
			return nil, fmt.Errorf("ratio: share %q weight must be positive", name)
		}
		p.Names = append(p.Names, name)
		p.Weights = append(p.Weights, weight)
		total += weight
	}
	if len(p.Names) == 0 {
		return nil, fmt.Errorf("ratio: at least one share is required")
	}
	for i := range p.Weights {
		p.Weights[i] /= total
	}
	return p, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

func (ratioPartitioner) Tag() string { return "ratio" }

func (p ratioPartitioner) Partition(batch *resource.Batch) (map[string]*resource.Batch, error) {
	total := len(batch.Resources)
	out := make(map[string]*resource.Batch, len(p.Names))
	start := 0
	for i, name := range p.Names {
		share := int(p.Weights[i] * float64(total))
		if i == len(p.Names)-1 {
			share = total - start // last share absorbs any rounding remainder
		}
		end := start + share
		if end > total {
			end = total
		}
		b, err := resource.NewBatch(batch.Name+":"+name, batch.Resources[start:end])
		if err != nil {
			return nil, err
		}
		out[name] = b
		start = end
	}
	return out, nil
}
