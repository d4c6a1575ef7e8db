// Package bundler holds the configuration primitives shared by the webpack
// and rspack flavors. Everything here serializes to JSON, the emitted configs
// are consumed by the adapter running inside the JS toolchain.
package bundler

import "github.com/wolfeidau/unibuild/pkg/builder"

// PluginEntry names a native bundler plugin and its constructor options. The
// adapter instantiates the real plugin class from the name.
type PluginEntry struct {
	Name    string         `json:"name"`
	Options map[string]any `json:"options,omitempty"`
}

// Loader is one entry of a rule use chain.
type Loader struct {
	Loader  string         `json:"loader"`
	Options map[string]any `json:"options,omitempty"`
}

// Rule matches modules and assigns loaders or asset handling.
type Rule struct {
	Test      string         `json:"test,omitempty"`
	Include   []string       `json:"include,omitempty"`
	Exclude   []string       `json:"exclude,omitempty"`
	Type      string         `json:"type,omitempty"`
	Use       []Loader       `json:"use,omitempty"`
	Parser    map[string]any `json:"parser,omitempty"`
	Generator map[string]any `json:"generator,omitempty"`
}

// Module wraps the rule list.
type Module struct {
	Rules []Rule `json:"rules"`
}

// Library sets the output module format, used by node bundles.
type Library struct {
	Type string `json:"type"`
}

// Output controls emitted file locations and names.
type Output struct {
	Path                string   `json:"path"`
	PublicPath          string   `json:"publicPath"`
	Filename            string   `json:"filename"`
	ChunkFilename       string   `json:"chunkFilename,omitempty"`
	CSSFilename         string   `json:"cssFilename,omitempty"`
	AssetModuleFilename string   `json:"assetModuleFilename,omitempty"`
	Clean               bool     `json:"clean"`
	Library             *Library `json:"library,omitempty"`
}

// Resolve controls module resolution.
type Resolve struct {
	Alias      map[string]string `json:"alias,omitempty"`
	Extensions []string          `json:"extensions,omitempty"`
	// Restrictions is the webpack lowering of source.moduleScopes.
	Restrictions []string `json:"restrictions,omitempty"`
}

// SplitChunks configures chunk splitting. Optimization.SplitChunks holds
// either *SplitChunks or false.
type SplitChunks struct {
	Chunks      string                `json:"chunks,omitempty"`
	MinSize     int                   `json:"minSize,omitempty"`
	MaxSize     int                   `json:"maxSize,omitempty"`
	CacheGroups map[string]CacheGroup `json:"cacheGroups,omitempty"`
}

// CacheGroup is one named splitChunks cache group.
type CacheGroup struct {
	Name      string `json:"name,omitempty"`
	Test      string `json:"test,omitempty"`
	Chunks    string `json:"chunks,omitempty"`
	Priority  int    `json:"priority,omitempty"`
	Enforce   bool   `json:"enforce,omitempty"`
	MinChunks int    `json:"minChunks,omitempty"`
}

// Optimization controls minification and chunk splitting. SplitChunks and
// Minimizer only apply when set, Devtool style unions are kept as any.
type Optimization struct {
	Minimize bool `json:"minimize"`
	// Minimizer lists native minifier plugin entries.
	Minimizer []PluginEntry `json:"minimizer,omitempty"`
	// SplitChunks is *SplitChunks, or false to disable splitting.
	SplitChunks any `json:"splitChunks,omitempty"`
}

// DevClient controls the dev server error overlay.
type DevClient struct {
	Overlay bool `json:"overlay"`
}

// DevMiddleware controls dev server output handling.
type DevMiddleware struct {
	WriteToDisk bool `json:"writeToDisk"`
}

// DevServer is the dev server block shared by both flavors.
type DevServer struct {
	Port          int                          `json:"port"`
	Host          string                       `json:"host"`
	Hot           bool                         `json:"hot"`
	HTTPS         *builder.HTTPSConfig         `json:"https,omitempty"`
	Proxy         map[string]builder.ProxyRule `json:"proxy,omitempty"`
	Client        DevClient                    `json:"client"`
	DevMiddleware DevMiddleware                `json:"devMiddleware"`
	WatchFiles    []string                     `json:"watchFiles,omitempty"`
}
