package bundler

import (
	"maps"
	"path"
	"path/filepath"
	"slices"

	"github.com/wolfeidau/unibuild/pkg/builder"
)

// DefaultExtensions is the resolve order shared by both flavors.
var DefaultExtensions = []string{".ts", ".tsx", ".mjs", ".js", ".jsx", ".json"}

// JSFilename returns the entry filename template under the js dist dir.
func JSFilename(n *builder.Normalized) string {
	return path.Join(n.Output.DistPath.JS, cond(n.Output.FilenameHash, "[name].[contenthash:8].js", "[name].js"))
}

// ChunkFilename returns the async chunk filename template.
func ChunkFilename(n *builder.Normalized) string {
	return path.Join(n.Output.DistPath.JS, "async", cond(n.Output.FilenameHash, "[name].[contenthash:8].js", "[name].js"))
}

// CSSFilename returns the extracted stylesheet filename template.
func CSSFilename(n *builder.Normalized) string {
	return path.Join(n.Output.DistPath.CSS, cond(n.Output.FilenameHash, "[name].[contenthash:8].css", "[name].css"))
}

// MediaFilename returns the static asset filename template.
func MediaFilename(n *builder.Normalized) string {
	return path.Join(n.Output.DistPath.Media, cond(n.Output.FilenameHash, "[name].[contenthash:8][ext]", "[name][ext]"))
}

// OutputFor builds the shared output block.
func OutputFor(n *builder.Normalized) Output {
	out := Output{
		Path:                filepath.Join(n.Context, n.Output.DistPath.Root),
		PublicPath:          n.Output.AssetPrefix,
		Filename:            JSFilename(n),
		ChunkFilename:       ChunkFilename(n),
		AssetModuleFilename: MediaFilename(n),
		Clean:               n.Output.CleanDistPath,
	}

	if n.Target == builder.TargetNode {
		out.Library = &Library{Type: "commonjs2"}
	}

	return out
}

// ResolveFor builds the shared resolve block. Restrictions only lower on
// webpack, the caller decides.
func ResolveFor(n *builder.Normalized, restrictions bool) Resolve {
	r := Resolve{
		Alias:      n.Alias,
		Extensions: slices.Clone(DefaultExtensions),
	}

	if restrictions {
		r.Restrictions = n.ModuleScopes
	}

	return r
}

// AssetRules builds the static asset rules with the data URI threshold.
func AssetRules(n *builder.Normalized) []Rule {
	parser := map[string]any{
		"dataUrlCondition": map[string]any{"maxSize": n.Output.DataURILimit},
	}
	generator := map[string]any{"filename": MediaFilename(n)}

	return []Rule{
		{
			Test:      `\.(?:png|jpe?g|gif|webp|ico|apng|avif|svg)$`,
			Type:      "asset",
			Parser:    parser,
			Generator: generator,
		},
		{
			Test:      `\.(?:woff2?|eot|ttf|otf)$`,
			Type:      "asset",
			Parser:    parser,
			Generator: generator,
		},
		{
			Test:      `\.(?:mp4|webm|ogg|mp3|wav|flac|aac)$`,
			Type:      "asset",
			Parser:    parser,
			Generator: generator,
		},
	}
}

// CSSRules builds the stylesheet rules. extractLoader heads the chain when
// CSS is extracted, style-loader when it is injected. Node bundles skip both
// and only export class names.
func CSSRules(n *builder.Normalized, extractLoader string) []Rule {
	if n.Target == builder.TargetNode {
		return []Rule{{
			Test: `\.css$`,
			Use: []Loader{cssLoader(n, map[string]any{
				"auto":             true,
				"exportOnlyLocals": true,
				"localIdentName":   n.CSS.LocalIdentName,
			})},
		}}
	}

	head := Loader{Loader: cond(n.CSS.Extract, extractLoader, "style-loader")}

	postcss := Loader{
		Loader: "postcss-loader",
		Options: map[string]any{
			"sourceMap": n.CSS.SourceMap,
			"postcssOptions": map[string]any{
				"plugins": []any{
					[]any{"autoprefixer", map[string]any{"overrideBrowserslist": n.Browserslist}},
				},
			},
		},
	}

	if n.CSS.ModulesMode == "loose" {
		// Everything is a module except *.global.* files.
		return []Rule{
			{
				Test: `\.global\.css$`,
				Use:  []Loader{head, cssLoader(n, nil), postcss},
			},
			{
				Test:    `\.css$`,
				Exclude: []string{`\.global\.css$`},
				Use: []Loader{head, cssLoader(n, map[string]any{
					"mode":           "local",
					"localIdentName": n.CSS.LocalIdentName,
				}), postcss},
			},
		}
	}

	return []Rule{{
		Test: `\.css$`,
		Use: []Loader{head, cssLoader(n, map[string]any{
			"auto":           true,
			"localIdentName": n.CSS.LocalIdentName,
		}), postcss},
	}}
}

// cssLoader builds a css-loader entry, merging the tools.cssLoader fragment
// over the computed options.
func cssLoader(n *builder.Normalized, modules map[string]any) Loader {
	options := map[string]any{
		"sourceMap":     n.CSS.SourceMap,
		"importLoaders": 1,
	}

	if modules == nil {
		options["modules"] = false
	} else {
		options["modules"] = modules
	}

	if len(n.Tools.CSSLoader) > 0 {
		options = Merge(options, n.Tools.CSSLoader)
	}

	return Loader{Loader: "css-loader", Options: options}
}

// DevServerFor builds the dev server block. Only meaningful in development.
func DevServerFor(n *builder.Normalized) *DevServer {
	return &DevServer{
		Port:          n.Dev.Port,
		Host:          n.Dev.Host,
		Hot:           n.Dev.HMR,
		HTTPS:         n.Dev.HTTPS,
		Proxy:         n.Dev.Proxy,
		Client:        DevClient{Overlay: n.Dev.Overlay},
		DevMiddleware: DevMiddleware{WriteToDisk: n.Dev.WriteToDisk},
		WatchFiles:    n.Dev.WatchFiles,
	}
}

// HTMLPlugins builds one page plugin entry per entry, in entry name order.
func HTMLPlugins(n *builder.Normalized, pluginName string) []PluginEntry {
	entries := make([]PluginEntry, 0, len(n.HTML))

	for _, name := range slices.Sorted(maps.Keys(n.HTML)) {
		opts := n.HTML[name]

		options := map[string]any{
			"filename":           path.Join(n.Output.DistPath.HTML, opts.Filename),
			"title":              opts.Title,
			"meta":               opts.Meta,
			"inject":             opts.Inject,
			"templateParameters": opts.TemplateParameters,
			"chunks":             []string{name},
			"scriptLoading":      "defer",
		}
		if opts.Template != "" {
			options["template"] = opts.Template
		}
		if opts.Favicon != "" {
			options["favicon"] = opts.Favicon
		}
		if opts.AppIcon != "" {
			options["appIcon"] = opts.AppIcon
		}
		if n.Security.Nonce != "" {
			options["nonce"] = n.Security.Nonce
		}

		entries = append(entries, PluginEntry{Name: pluginName, Options: options})
	}

	return entries
}

// DefinePlugin builds the compile time constant plugin entry, or returns
// false when there is nothing to define.
func DefinePlugin(n *builder.Normalized, pluginName string) (PluginEntry, bool) {
	if len(n.Define) == 0 {
		return PluginEntry{}, false
	}

	options := make(map[string]any, len(n.Define))
	for key, value := range n.Define {
		options[key] = value
	}

	return PluginEntry{Name: pluginName, Options: options}, true
}

// MomentLocaleIgnore strips bundled moment locales.
func MomentLocaleIgnore(pluginName string) PluginEntry {
	return PluginEntry{
		Name: pluginName,
		Options: map[string]any{
			"resourceRegExp": `^\./locale$`,
			"contextRegExp":  `moment$`,
		},
	}
}

// InlineChunkPlugin inlines emitted scripts or styles into the HTML output.
func InlineChunkPlugin(n *builder.Normalized, pluginName string) (PluginEntry, bool) {
	if !n.Output.InlineScripts && !n.Output.InlineStyles {
		return PluginEntry{}, false
	}

	return PluginEntry{
		Name: pluginName,
		Options: map[string]any{
			"scripts": n.Output.InlineScripts,
			"styles":  n.Output.InlineStyles,
		},
	}, true
}

// SplitChunksFor lowers the chunk split strategy. Returns *SplitChunks, a raw
// override map, or false when splitting is disabled.
func SplitChunksFor(n *builder.Normalized) any {
	split := n.Performance.ChunkSplit

	switch split.Strategy {
	case "all-in-one":
		return false
	case "custom":
		if len(split.Override) > 0 {
			return split.Override
		}
		return false
	}

	sc := &SplitChunks{
		Chunks:      "all",
		MinSize:     split.MinSize,
		MaxSize:     split.MaxSize,
		CacheGroups: map[string]CacheGroup{},
	}

	switch split.Strategy {
	case "split-by-experience":
		sc.CacheGroups["react"] = CacheGroup{
			Name:     "lib-react",
			Test:     `node_modules[\\/](?:react|react-dom|scheduler)[\\/]`,
			Chunks:   "all",
			Priority: 0,
		}
		sc.CacheGroups["router"] = CacheGroup{
			Name:     "lib-router",
			Test:     `node_modules[\\/](?:react-router|react-router-dom|history|@remix-run[\\/]router)[\\/]`,
			Chunks:   "all",
			Priority: 0,
		}
		sc.CacheGroups["polyfill"] = CacheGroup{
			Name:     "lib-polyfill",
			Test:     `node_modules[\\/](?:core-js|@babel[\\/]runtime)[\\/]`,
			Chunks:   "all",
			Priority: 0,
		}
	case "split-by-module":
		sc.CacheGroups["vendors"] = CacheGroup{
			Test:      `node_modules[\\/]`,
			Chunks:    "all",
			MinChunks: 1,
		}
		if sc.MinSize == 0 {
			sc.MinSize = 1
		}
	case "single-vendor":
		sc.CacheGroups["vendor"] = CacheGroup{
			Name:    "vendor",
			Test:    `node_modules[\\/]`,
			Chunks:  "all",
			Enforce: true,
		}
	}

	for name, test := range split.ForceSplitting {
		sc.CacheGroups[name] = CacheGroup{
			Name:    name,
			Test:    test,
			Chunks:  "all",
			Enforce: true,
			// Force groups win over the strategy groups.
			Priority: 10,
		}
	}

	return sc
}

// PureFuncs expands console method names into minifier pure function names.
func PureFuncs(methods []string) []string {
	funcs := make([]string, 0, len(methods))
	for _, method := range methods {
		funcs = append(funcs, "console."+method)
	}
	return funcs
}

// StatsPreset maps printFileSize onto a stats preset.
func StatsPreset(printFileSize bool) string {
	return cond(printFileSize, "normal", "errors-warnings")
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
