package plugin

import (
	"errors"
	"fmt"

	"github.com/dominikbraun/graph"
)

var (
	// ErrDuplicatePlugin indicates two descriptors sharing a name.
	ErrDuplicatePlugin = errors.New("duplicate plugin name")
	// ErrPluginCycle indicates After constraints forming a cycle.
	ErrPluginCycle = errors.New("plugin ordering cycle")
)

// Sort orders descriptors by stage and After constraints. The result is
// deterministic: ties break on stage rank first, then registration order.
// After constraints always win over stages.
func Sort(descriptors []Descriptor) ([]Descriptor, error) {
	byName := make(map[string]Descriptor, len(descriptors))
	index := make(map[string]int, len(descriptors))

	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())

	for i, d := range descriptors {
		if _, exists := byName[d.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlugin, d.Name)
		}
		byName[d.Name] = d
		index[d.Name] = i

		if err := g.AddVertex(d.Name); err != nil {
			return nil, fmt.Errorf("failed to add plugin %s: %w", d.Name, err)
		}
	}

	for _, d := range descriptors {
		for _, after := range d.After {
			if _, known := byName[after]; !known {
				continue
			}

			err := g.AddEdge(after, d.Name)
			if errors.Is(err, graph.ErrEdgeAlreadyExists) {
				continue
			}
			if errors.Is(err, graph.ErrEdgeCreatesCycle) {
				return nil, fmt.Errorf("%w: %s after %s", ErrPluginCycle, d.Name, after)
			}
			if err != nil {
				return nil, fmt.Errorf("failed to order plugin %s: %w", d.Name, err)
			}
		}
	}

	names, err := graph.StableTopologicalSort(g, func(a, b string) bool {
		ra, rb := byName[a].Order.rank(), byName[b].Order.rank()
		if ra != rb {
			return ra < rb
		}
		return index[a] < index[b]
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sort plugins: %w", err)
	}

	sorted := make([]Descriptor, 0, len(names))
	for _, name := range names {
		sorted = append(sorted, byName[name])
	}

	return sorted, nil
}
