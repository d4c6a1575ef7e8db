package scan

import (
	"cmp"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// metafile mirrors the subset of esbuild's metafile format the scanner reads.
type metafile struct {
	Inputs map[string]metaInput `json:"inputs"`
}

type metaInput struct {
	Bytes   int64        `json:"bytes"`
	Imports []metaImport `json:"imports"`
}

type metaImport struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external"`
}

func parseMetafile(raw []byte) (*metafile, error) {
	meta := &metafile{}
	if err := json.Unmarshal(raw, meta); err != nil {
		return nil, fmt.Errorf("failed to parse metafile: %w", err)
	}

	return meta, nil
}

// summarize reduces a metafile into an entry report plus the sorted input
// paths used for cross entry duplicate detection.
func summarize(meta *metafile, topInputs int) (EntryReport, []string) {
	entry := EntryReport{Modules: len(meta.Inputs)}

	inputs := make([]string, 0, len(meta.Inputs))
	top := make([]Input, 0, len(meta.Inputs))
	externals := map[string]struct{}{}

	for path, input := range meta.Inputs {
		inputs = append(inputs, path)
		entry.TotalBytes += input.Bytes

		if strings.Contains(path, "node_modules/") {
			entry.NodeModules++
		}

		top = append(top, Input{Path: path, Bytes: input.Bytes})

		for _, imp := range input.Imports {
			if imp.External {
				externals[imp.Path] = struct{}{}
			}
		}
	}

	slices.SortFunc(top, func(a, b Input) int {
		if c := cmp.Compare(b.Bytes, a.Bytes); c != 0 {
			return c
		}
		return cmp.Compare(a.Path, b.Path)
	})
	if len(top) > topInputs {
		top = top[:topInputs]
	}
	entry.TopInputs = top

	entry.Externals = slices.Sorted(maps.Keys(externals))
	slices.Sort(inputs)

	return entry, inputs
}

// packageRoot returns the package name and the node_modules copy it was
// bundled from, or ok=false for project files. Scoped packages keep their
// scope prefix.
func packageRoot(path string) (name, root string, ok bool) {
	const marker = "node_modules/"

	idx := strings.LastIndex(path, marker)
	if idx < 0 {
		return "", "", false
	}

	rest := strings.Split(path[idx+len(marker):], "/")
	if len(rest) == 0 || rest[0] == "" {
		return "", "", false
	}

	name = rest[0]
	if strings.HasPrefix(name, "@") {
		if len(rest) < 2 {
			return "", "", false
		}
		name = rest[0] + "/" + rest[1]
	}

	return name, path[:idx+len(marker)] + name, true
}

// findDuplicates reports packages bundled from more than one node_modules
// copy across the union of all entry graphs.
func findDuplicates(inputsByEntry map[string][]string) []Duplicate {
	type copies struct {
		paths   map[string]struct{}
		entries map[string]struct{}
	}

	packages := map[string]*copies{}

	for entry, inputs := range inputsByEntry {
		for _, path := range inputs {
			name, root, ok := packageRoot(path)
			if !ok {
				continue
			}

			c, found := packages[name]
			if !found {
				c = &copies{paths: map[string]struct{}{}, entries: map[string]struct{}{}}
				packages[name] = c
			}

			c.paths[root] = struct{}{}
			c.entries[entry] = struct{}{}
		}
	}

	var duplicates []Duplicate

	for name, c := range packages {
		if len(c.paths) < 2 {
			continue
		}

		duplicates = append(duplicates, Duplicate{
			Package: name,
			Paths:   slices.Sorted(maps.Keys(c.paths)),
			Entries: slices.Sorted(maps.Keys(c.entries)),
		})
	}

	slices.SortFunc(duplicates, func(a, b Duplicate) int {
		return cmp.Compare(a.Package, b.Package)
	})

	return duplicates
}
