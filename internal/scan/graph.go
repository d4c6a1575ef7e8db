package scan

import (
	"strings"

	"github.com/dominikbraun/graph"
)

// moduleGraph is the resolved import graph of one entry.
type moduleGraph struct {
	g     graph.Graph[string, string]
	roots []string
	files []string
}

// buildGraph turns a metafile into a directed import graph rooted at the
// entry files. External imports and unresolved paths stay out of the graph.
func buildGraph(meta *metafile, entryFiles, files []string) *moduleGraph {
	g := graph.New(graph.StringHash, graph.Directed())

	for path := range meta.Inputs {
		_ = g.AddVertex(path)
	}

	for path, input := range meta.Inputs {
		for _, imp := range input.Imports {
			if imp.External {
				continue
			}
			if _, ok := meta.Inputs[imp.Path]; !ok {
				continue
			}

			_ = g.AddEdge(path, imp.Path, graph.EdgeWeight(1))
		}
	}

	roots := make([]string, 0, len(entryFiles))
	for _, file := range entryFiles {
		if _, ok := meta.Inputs[file]; ok {
			roots = append(roots, file)
		}
	}

	return &moduleGraph{g: g, roots: roots, files: files}
}

// chainTo returns the shortest import chain from an entry file into the
// given node_modules copy, or nil when the copy is not reachable.
func (m *moduleGraph) chainTo(copyRoot string) []string {
	prefix := copyRoot + "/"

	var best []string

	for _, file := range m.files {
		if !strings.HasPrefix(file, prefix) {
			continue
		}

		for _, source := range m.roots {
			path, err := graph.ShortestPath(m.g, source, file)
			if err != nil {
				continue
			}

			if best == nil || len(path) < len(best) {
				best = path
			}
		}
	}

	return best
}

// attachChains fills in, for each duplicate copy, the shortest import chain
// that pulls it in, taken from the first entry that reaches it.
func attachChains(duplicates []Duplicate, graphs map[string]*moduleGraph) {
	for i := range duplicates {
		dup := &duplicates[i]
		dup.Chains = make([][]string, len(dup.Paths))

		for j, root := range dup.Paths {
			for _, entry := range dup.Entries {
				mg, ok := graphs[entry]
				if !ok {
					continue
				}

				if chain := mg.chainTo(root); chain != nil {
					dup.Chains[j] = chain
					break
				}
			}
		}
	}
}
