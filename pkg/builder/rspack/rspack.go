// Package rspack lowers the normalized config into rspack's native format.
// It tracks the webpack flavor closely, the differences are the builtin SWC
// toolchain and the experiments based persistent cache.
package rspack

import (
	"path/filepath"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/unibuild/pkg/builder"
	"github.com/wolfeidau/unibuild/pkg/builder/bundler"
)

// Native plugin names resolved by the adapter on the JS side.
const (
	pluginHTML         = "rspack.HtmlRspackPlugin"
	pluginDefine       = "rspack.DefinePlugin"
	pluginCSSExtract   = "rspack.CssExtractRspackPlugin"
	loaderCSSExtract   = "rspack.CssExtractRspackPlugin.loader"
	pluginIgnore       = "rspack.IgnorePlugin"
	pluginInlineChunk  = "InlineChunkHtmlPlugin"
	pluginReactRefresh = "ReactRefreshRspackPlugin"
	pluginJSMinimizer  = "rspack.SwcJsMinimizerRspackPlugin"
	pluginCSSMinimizer = "rspack.SwcCssMinimizerRspackPlugin"
)

// ExperimentsCache is rspack's persistent cache block.
type ExperimentsCache struct {
	Type      string `json:"type"`
	Directory string `json:"directory,omitempty"`
}

// Experiments holds rspack specific experimental switches.
type Experiments struct {
	Cache *ExperimentsCache `json:"cache,omitempty"`
}

// Config is the rspack flavored output. It serializes to the JSON artifact
// the adapter feeds to rspack.
type Config struct {
	Mode    string              `json:"mode"`
	Context string              `json:"context"`
	Target  string              `json:"target"`
	Entry   map[string][]string `json:"entry"`
	// Devtool is a source map style string, or false when maps are off.
	Devtool      any                   `json:"devtool"`
	Output       bundler.Output        `json:"output"`
	Resolve      bundler.Resolve       `json:"resolve"`
	Module       bundler.Module        `json:"module"`
	Plugins      []bundler.PluginEntry `json:"plugins"`
	Optimization bundler.Optimization  `json:"optimization"`
	DevServer    *bundler.DevServer    `json:"devServer,omitempty"`
	Experiments  *Experiments          `json:"experiments,omitempty"`
	Stats        string                `json:"stats,omitempty"`
}

var targets = map[builder.Target]string{
	builder.TargetWeb:       "web",
	builder.TargetNode:      "node",
	builder.TargetWebWorker: "webworker",
}

// Lower maps the normalized config onto rspack semantics. Options without an
// rspack equivalent are dropped with a warning, never silently.
func Lower(n *builder.Normalized) (*Config, error) {
	cfg := &Config{
		Mode:    string(n.Mode),
		Context: n.Context,
		Target:  targets[n.Target],
		Entry:   lowerEntries(n),
		Devtool: false,
		Output:  bundler.OutputFor(n),
		Resolve: bundler.ResolveFor(n, false),
		Stats:   bundler.StatsPreset(n.Performance.PrintFileSize),
	}

	if len(n.ModuleScopes) > 0 {
		log.Warn().Msg("source.moduleScopes has no rspack equivalent, ignoring")
	}

	if n.Output.JSSourceMap != "" {
		cfg.Devtool = n.Output.JSSourceMap
	}

	rules := []bundler.Rule{scriptRule(n)}
	rules = append(rules, bundler.CSSRules(n, loaderCSSExtract)...)
	rules = append(rules, bundler.AssetRules(n)...)
	cfg.Module = bundler.Module{Rules: rules}

	cfg.Plugins = lowerPlugins(n)

	cfg.Optimization = bundler.Optimization{
		Minimize:    n.Output.Minify,
		SplitChunks: bundler.SplitChunksFor(n),
	}
	if n.Output.Minify {
		cfg.Optimization.Minimizer = minimizers(n)
	}

	if n.Mode == builder.ModeDevelopment {
		cfg.DevServer = bundler.DevServerFor(n)
	}

	if bc := n.Performance.BuildCache; bc != nil {
		cfg.Experiments = &Experiments{
			Cache: &ExperimentsCache{Type: "persistent", Directory: bc.CacheDirectory},
		}
	}

	return cfg, nil
}

// lowerEntries clones the entry map. Unlike webpack, polyfill entry mode is
// handled by the swc env config, nothing is prepended.
func lowerEntries(n *builder.Normalized) map[string][]string {
	entries := make(map[string][]string, len(n.Entries))
	for name, files := range n.Entries {
		entries[name] = slices.Clone(files)
	}
	return entries
}

// scriptRule builds the builtin:swc-loader transpilation rule.
func scriptRule(n *builder.Normalized) bundler.Rule {
	if es := n.Tools.Esbuild; es != nil {
		log.Warn().Msg("tools.esbuild has no effect on rspack builds, the builtin SWC toolchain is used")
	}

	swc := map[string]any{
		"jsc": map[string]any{
			"parser": map[string]any{
				"syntax": "typescript",
				"tsx":    true,
			},
			"transform": map[string]any{
				"react": map[string]any{
					"runtime":     "automatic",
					"development": n.Mode == builder.ModeDevelopment,
					"refresh":     n.Dev.HMR,
				},
			},
			"externalHelpers": true,
		},
		"env": swcEnv(n),
	}

	if len(n.TransformImport) > 0 {
		imports := make([]any, 0, len(n.TransformImport))
		for _, ti := range n.TransformImport {
			imports = append(imports, transformImportOptions(ti))
		}
		swc["rspackExperiments"] = map[string]any{"import": imports}
	}

	return bundler.Rule{
		Test:    `\.(?:js|mjs|jsx|ts|tsx)$`,
		Include: append([]string{filepath.Join(n.Context, "src")}, n.Include...),
		Exclude: n.Exclude,
		Use: []bundler.Loader{{
			Loader:  "builtin:swc-loader",
			Options: swc,
		}},
	}
}

// swcEnv wires the resolved browser targets and polyfill mode into swc.
func swcEnv(n *builder.Normalized) map[string]any {
	env := map[string]any{
		"targets": n.Browserslist,
	}

	switch n.Polyfill {
	case "usage", "entry":
		env["mode"] = n.Polyfill
		env["coreJs"] = "3"
	}

	return env
}

func transformImportOptions(ti builder.TransformImport) map[string]any {
	options := map[string]any{
		"libraryName":      ti.LibraryName,
		"libraryDirectory": cond(ti.LibraryDirectory != "", ti.LibraryDirectory, "lib"),
	}
	if ti.CamelToDashComponentName != nil {
		options["camelToDashComponentName"] = *ti.CamelToDashComponentName
	}
	if ti.TransformToDefaultImport != nil {
		options["transformToDefaultImport"] = *ti.TransformToDefaultImport
	}
	return options
}

// lowerPlugins assembles the native plugin list. Subresource integrity is
// webpack only and dropped here with a warning.
func lowerPlugins(n *builder.Normalized) []bundler.PluginEntry {
	var plugins []bundler.PluginEntry

	plugins = append(plugins, bundler.HTMLPlugins(n, pluginHTML)...)

	if define, ok := bundler.DefinePlugin(n, pluginDefine); ok {
		plugins = append(plugins, define)
	}

	if n.CSS.Extract && n.Target != builder.TargetNode {
		plugins = append(plugins, bundler.PluginEntry{
			Name: pluginCSSExtract,
			Options: map[string]any{
				"filename":      bundler.CSSFilename(n),
				"chunkFilename": bundler.CSSFilename(n),
			},
		})
	}

	if n.Performance.RemoveMomentLocale {
		plugins = append(plugins, bundler.MomentLocaleIgnore(pluginIgnore))
	}

	if inline, ok := bundler.InlineChunkPlugin(n, pluginInlineChunk); ok {
		plugins = append(plugins, inline)
	}

	if n.Security.SRI != nil {
		log.Warn().Msg("security.sri is webpack only, ignoring for rspack")
	}

	if n.Dev.HMR {
		plugins = append(plugins, bundler.PluginEntry{Name: pluginReactRefresh})
	}

	return plugins
}

// minimizers builds the production minimizer chain on the SWC toolchain.
func minimizers(n *builder.Normalized) []bundler.PluginEntry {
	compress := map[string]any{"passes": 2}
	if funcs := bundler.PureFuncs(n.Performance.RemoveConsole); len(funcs) > 0 {
		compress["pure_funcs"] = funcs
	}

	return []bundler.PluginEntry{
		{
			Name: pluginJSMinimizer,
			Options: map[string]any{
				"minimizerOptions": map[string]any{
					"compress": compress,
					"format": map[string]any{
						"comments":  cond[any](n.Output.LegalComments == "inline", "some", false),
						"asciiOnly": n.Output.Charset == "ascii",
					},
				},
			},
		},
		{Name: pluginCSSMinimizer},
	}
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
