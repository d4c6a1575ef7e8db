// Package webpack lowers the normalized config into webpack's native format.
package webpack

import (
	"path/filepath"
	"slices"

	"github.com/wolfeidau/unibuild/pkg/builder"
	"github.com/wolfeidau/unibuild/pkg/builder/bundler"
)

// Native plugin names resolved by the adapter on the JS side.
const (
	pluginHTML         = "HtmlWebpackPlugin"
	pluginDefine       = "DefinePlugin"
	pluginCSSExtract   = "MiniCssExtractPlugin"
	loaderCSSExtract   = "MiniCssExtractPlugin.loader"
	pluginIgnore       = "IgnorePlugin"
	pluginInlineChunk  = "InlineChunkHtmlPlugin"
	pluginSRI          = "SubresourceIntegrityPlugin"
	pluginReactRefresh = "ReactRefreshWebpackPlugin"
	pluginTerser       = "TerserPlugin"
	pluginCSSMinimizer = "CssMinimizerPlugin"
	pluginESBuildMin   = "ESBuildMinifyPlugin"
)

// polyfillEntry is prepended to every entry in polyfill entry mode.
const polyfillEntry = "core-js"

// Cache is webpack's persistent filesystem cache block.
type Cache struct {
	Type           string `json:"type"`
	CacheDirectory string `json:"cacheDirectory,omitempty"`
}

// Config is the webpack flavored output. It serializes to the JSON artifact
// the adapter feeds to webpack.
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
	Cache        *Cache                `json:"cache,omitempty"`
	Stats        string                `json:"stats,omitempty"`
}

var targets = map[builder.Target]string{
	builder.TargetWeb:       "web",
	builder.TargetNode:      "node",
	builder.TargetWebWorker: "webworker",
}

// Lower maps the normalized config onto webpack semantics.
func Lower(n *builder.Normalized) (*Config, error) {
	cfg := &Config{
		Mode:    string(n.Mode),
		Context: n.Context,
		Target:  targets[n.Target],
		Entry:   lowerEntries(n),
		Devtool: false,
		Output:  bundler.OutputFor(n),
		Resolve: bundler.ResolveFor(n, true),
		Stats:   bundler.StatsPreset(n.Performance.PrintFileSize),
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
		cfg.Cache = &Cache{Type: "filesystem", CacheDirectory: bc.CacheDirectory}
	}

	return cfg, nil
}

// lowerEntries clones the entry map, prepending the polyfill entry when
// polyfill entry mode is on.
func lowerEntries(n *builder.Normalized) map[string][]string {
	entries := make(map[string][]string, len(n.Entries))

	for name, files := range n.Entries {
		if n.Polyfill == "entry" {
			entries[name] = append([]string{polyfillEntry}, files...)
			continue
		}
		entries[name] = slices.Clone(files)
	}

	return entries
}

// scriptRule builds the JS and TS transpilation rule, babel by default or
// esbuild-loader when tools.esbuild requests it.
func scriptRule(n *builder.Normalized) bundler.Rule {
	rule := bundler.Rule{
		Test:    `\.(?:js|mjs|jsx|ts|tsx)$`,
		Include: append([]string{filepath.Join(n.Context, "src")}, n.Include...),
		Exclude: n.Exclude,
	}

	if es := n.Tools.Esbuild; es != nil && es.Loader {
		rule.Use = []bundler.Loader{{
			Loader: "esbuild-loader",
			Options: map[string]any{
				"loader": "tsx",
				"target": "es2015",
			},
		}}
		return rule
	}

	rule.Use = []bundler.Loader{{Loader: "babel-loader", Options: babelOptions(n)}}
	return rule
}

// babelOptions builds the babel-loader options, wiring browser targets,
// polyfill mode and import transforms into the preset chain.
func babelOptions(n *builder.Normalized) map[string]any {
	presetEnv := map[string]any{
		"targets":  n.Browserslist,
		"bugfixes": true,
	}

	switch n.Polyfill {
	case "usage", "entry":
		presetEnv["useBuiltIns"] = n.Polyfill
		presetEnv["corejs"] = "3"
	default:
		presetEnv["useBuiltIns"] = false
	}

	plugins := []any{"@babel/plugin-transform-runtime"}
	for _, ti := range n.TransformImport {
		plugins = append(plugins, []any{"babel-plugin-import", transformImportOptions(ti), ti.LibraryName})
	}

	return map[string]any{
		"babelrc":    false,
		"configFile": false,
		"presets": []any{
			[]any{"@babel/preset-env", presetEnv},
			"@babel/preset-typescript",
			[]any{"@babel/preset-react", map[string]any{"runtime": "automatic"}},
		},
		"plugins":        plugins,
		"cacheDirectory": true,
	}
}

func transformImportOptions(ti builder.TransformImport) map[string]any {
	options := map[string]any{
		"libraryName":      ti.LibraryName,
		"libraryDirectory": cond(ti.LibraryDirectory != "", ti.LibraryDirectory, "lib"),
	}
	if ti.CamelToDashComponentName != nil {
		options["camel2DashComponentName"] = *ti.CamelToDashComponentName
	}
	if ti.TransformToDefaultImport != nil {
		options["transformToDefaultImport"] = *ti.TransformToDefaultImport
	}
	return options
}

// lowerPlugins assembles the native plugin list.
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

	if sri := n.Security.SRI; sri != nil {
		hashFuncNames := sri.HashFuncNames
		if len(hashFuncNames) == 0 {
			hashFuncNames = []string{"sha384"}
		}
		plugins = append(plugins, bundler.PluginEntry{
			Name:    pluginSRI,
			Options: map[string]any{"hashFuncNames": hashFuncNames},
		})
	}

	if n.Dev.HMR {
		plugins = append(plugins, bundler.PluginEntry{Name: pluginReactRefresh})
	}

	return plugins
}

// minimizers builds the production minimizer chain.
func minimizers(n *builder.Normalized) []bundler.PluginEntry {
	var entries []bundler.PluginEntry

	if es := n.Tools.Esbuild; es != nil && es.Minimize {
		entries = append(entries, bundler.PluginEntry{
			Name: pluginESBuildMin,
			Options: map[string]any{
				"target":        "es2015",
				"css":           true,
				"legalComments": n.Output.LegalComments,
			},
		})
		return entries
	}

	compress := map[string]any{"passes": 2}
	if funcs := bundler.PureFuncs(n.Performance.RemoveConsole); len(funcs) > 0 {
		compress["pure_funcs"] = funcs
	}

	entries = append(entries, bundler.PluginEntry{
		Name: pluginTerser,
		Options: map[string]any{
			"extractComments": n.Output.LegalComments == "linked",
			"terserOptions": map[string]any{
				"compress": compress,
				"mangle":   map[string]any{"safari10": true},
				"format": map[string]any{
					"comments":   cond[any](n.Output.LegalComments == "inline", "some", false),
					"ascii_only": n.Output.Charset == "ascii",
				},
			},
		},
	})

	entries = append(entries, bundler.PluginEntry{Name: pluginCSSMinimizer})

	return entries
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
