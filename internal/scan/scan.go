// Package scan walks a project's entry graphs with esbuild and reports
// module counts, bundle weight and duplicated packages before any real
// bundler run happens.
package scan

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/wolfeidau/unibuild/pkg/builder"
)

const (
	defaultConcurrency = 4
	defaultTopInputs   = 10
)

// Options tunes a scan run.
type Options struct {
	// Concurrency bounds parallel entry scans. Defaults to 4.
	Concurrency int
	// TopInputs is how many of the largest modules each entry reports.
	// Defaults to 10.
	TopInputs int
	// External lists import paths that are never followed into the graph.
	External []string
}

// Report aggregates per entry scans for one project.
type Report struct {
	CreatedAt time.Time      `json:"createdAt"`
	Context   string         `json:"context"`
	Target    builder.Target `json:"target"`

	Entries map[string]EntryReport `json:"entries"`

	Duplicates []Duplicate `json:"duplicates,omitempty"`
}

// EntryReport summarizes the module graph behind one entry.
type EntryReport struct {
	Modules     int      `json:"modules"`
	NodeModules int      `json:"nodeModules"`
	TotalBytes  int64    `json:"totalBytes"`
	TopInputs   []Input  `json:"topInputs,omitempty"`
	Externals   []string `json:"externals,omitempty"`
}

// Input is one module and the bytes it contributes.
type Input struct {
	Path  string `json:"path"`
	Bytes int64  `json:"bytes"`
}

// Duplicate is a package bundled from more than one node_modules copy,
// usually a version conflict the package manager could not hoist.
type Duplicate struct {
	Package string   `json:"package"`
	Paths   []string `json:"paths"`
	Entries []string `json:"entries"`
	// Chains holds one import chain per copy in Paths, from an entry file
	// down to the copy. A nil chain means the copy was not reachable.
	Chains [][]string `json:"chains,omitempty"`
}

// assetLoaders keeps scans from failing on non code imports.
var assetLoaders = map[string]api.Loader{
	".png":   api.LoaderFile,
	".jpg":   api.LoaderFile,
	".jpeg":  api.LoaderFile,
	".gif":   api.LoaderFile,
	".webp":  api.LoaderFile,
	".ico":   api.LoaderFile,
	".svg":   api.LoaderFile,
	".woff":  api.LoaderFile,
	".woff2": api.LoaderFile,
	".ttf":   api.LoaderFile,
	".eot":   api.LoaderFile,
	".mp4":   api.LoaderFile,
}

// Run scans every entry of the normalized config and folds the per entry
// module graphs into a single report.
func Run(ctx context.Context, n *builder.Normalized, opts Options) (*Report, error) {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	topInputs := opts.TopInputs
	if topInputs <= 0 {
		topInputs = defaultTopInputs
	}

	report := &Report{
		CreatedAt: time.Now().UTC(),
		Context:   n.Context,
		Target:    n.Target,
		Entries:   make(map[string]EntryReport, len(n.Entries)),
	}

	var mu sync.Mutex
	inputsByEntry := make(map[string][]string, len(n.Entries))
	graphs := make(map[string]*moduleGraph, len(n.Entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for name, files := range n.Entries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			meta, err := scanEntry(n, name, files, opts.External)
			if err != nil {
				return err
			}

			entry, inputs := summarize(meta, topInputs)

			mu.Lock()
			report.Entries[name] = entry
			inputsByEntry[name] = inputs
			graphs[name] = buildGraph(meta, files, inputs)
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.Duplicates = findDuplicates(inputsByEntry)
	attachChains(report.Duplicates, graphs)

	log.Debug().
		Int("entries", len(report.Entries)).
		Int("duplicates", len(report.Duplicates)).
		Msg("scan complete")

	return report, nil
}

// scanEntry bundles one entry in memory and returns the parsed metafile.
func scanEntry(n *builder.Normalized, name string, files, external []string) (*metafile, error) {
	entryPoints := make([]string, 0, len(files))
	for _, file := range files {
		entryPoints = append(entryPoints, filepath.Join(n.Context, file))
	}

	platform := api.PlatformBrowser
	if n.Target == builder.TargetNode {
		platform = api.PlatformNode
	}

	result := api.Build(api.BuildOptions{
		EntryPoints:   entryPoints,
		AbsWorkingDir: n.Context,
		Bundle:        true,
		Write:         false,
		Metafile:      true,
		Outdir:        filepath.Join(n.Context, n.Output.DistPath.Root),
		Platform:      platform,
		JSX:           api.JSXAutomatic,
		Alias:         n.Alias,
		Define:        n.Define,
		External:      external,
		Loader:        assetLoaders,
		LogLevel:      api.LogLevelSilent,
	})

	if len(result.Errors) > 0 {
		for _, msg := range result.Errors {
			log.Error().Str("entry", name).Str("error", msg.Text).Msg("scan error")
		}
		return nil, fmt.Errorf("failed to scan entry %s: %d errors", name, len(result.Errors))
	}

	return parseMetafile([]byte(result.Metafile))
}
