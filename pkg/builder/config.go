// Package builder normalizes a single high level build configuration into the
// settings shared by the supported bundlers. The same Config compiles to either
// a webpack or an rspack flavored output, plus an ordered list of feature
// plugins for the adapter running on the JS side.
package builder

// Mode selects the build environment and drives most defaults.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

// Valid reports whether the mode is one of the supported values.
func (m Mode) Valid() bool {
	return m == ModeDevelopment || m == ModeProduction
}

// Target selects the platform the output bundle runs on.
type Target string

const (
	TargetWeb       Target = "web"
	TargetNode      Target = "node"
	TargetWebWorker Target = "web-worker"
)

// Valid reports whether the target is one of the supported values.
func (t Target) Valid() bool {
	return t == TargetWeb || t == TargetNode || t == TargetWebWorker
}

// BundlerType selects which bundler the normalized config is lowered for.
type BundlerType string

const (
	BundlerWebpack BundlerType = "webpack"
	BundlerRspack  BundlerType = "rspack"
)

// Valid reports whether the bundler type is one of the supported values.
func (b BundlerType) Valid() bool {
	return b == BundlerWebpack || b == BundlerRspack
}

// Config is the user facing configuration. Field names follow the config file
// schema, so everything carries a mapstructure tag. Unset fields take the
// documented defaults during Normalize.
type Config struct {
	// Mode forces the build environment. CLI flags and the UNIBUILD_ENV
	// variable take precedence, see ResolveMode.
	Mode Mode `mapstructure:"mode" validate:"omitempty,oneof=development production"`

	Source      SourceConfig      `mapstructure:"source"`
	Output      OutputConfig      `mapstructure:"output"`
	HTML        HTMLConfig        `mapstructure:"html"`
	Dev         DevConfig         `mapstructure:"dev"`
	Security    SecurityConfig    `mapstructure:"security"`
	Performance PerformanceConfig `mapstructure:"performance"`
	Tools       ToolsConfig       `mapstructure:"tools"`

	// Plugins declared by the user. They are appended after the feature
	// plugins in registration order.
	Plugins []PluginRef `mapstructure:"plugins" validate:"omitempty,dive"`
}

// SourceConfig controls entries and how source code is resolved and compiled.
type SourceConfig struct {
	// Entry maps an entry name to one or more source files. Defaults to
	// {"index": ["src/index.ts"]} when empty.
	Entry map[string][]string `mapstructure:"entry"`
	// PreEntry files are prepended to every entry.
	PreEntry []string `mapstructure:"preEntry"`

	Alias map[string]string `mapstructure:"alias"`

	// Define values are injected verbatim as compile time constants.
	Define map[string]string `mapstructure:"define"`
	// GlobalVars values are JSON encoded before injection. An explicit
	// Define for the same key wins.
	GlobalVars map[string]any `mapstructure:"globalVars"`

	// Include and Exclude extend or restrict the transpilation scope.
	Include []string `mapstructure:"include"`
	Exclude []string `mapstructure:"exclude"`

	TransformImport []TransformImport `mapstructure:"transformImport" validate:"omitempty,dive"`

	// ModuleScopes restricts imports to the listed directories. Lowered to
	// resolve.restrictions on webpack, dropped with a warning on rspack.
	ModuleScopes []string `mapstructure:"moduleScopes"`
}

// TransformImport rewrites member imports of a library into per module
// imports, the babel-plugin-import contract.
type TransformImport struct {
	LibraryName              string `mapstructure:"libraryName" json:"libraryName" validate:"required"`
	LibraryDirectory         string `mapstructure:"libraryDirectory" json:"libraryDirectory,omitempty"`
	CamelToDashComponentName *bool  `mapstructure:"camelToDashComponentName" json:"camelToDashComponentName,omitempty"`
	TransformToDefaultImport *bool  `mapstructure:"transformToDefaultImport" json:"transformToDefaultImport,omitempty"`
}

// OutputConfig controls emitted artifacts.
type OutputConfig struct {
	DistPath DistPathConfig `mapstructure:"distPath"`

	// AssetPrefix is the public URL prefix for production builds. The dev
	// server prefix lives under dev.assetPrefix.
	AssetPrefix string `mapstructure:"assetPrefix"`

	// DataURILimit is the inline threshold in bytes for static assets.
	// Defaults to 10000.
	DataURILimit *int `mapstructure:"dataUriLimit" validate:"omitempty,min=0"`

	Charset       string `mapstructure:"charset" validate:"omitempty,oneof=ascii utf8"`
	LegalComments string `mapstructure:"legalComments" validate:"omitempty,oneof=inline linked none"`

	// CleanDistPath defaults to true in production and false in development.
	CleanDistPath *bool `mapstructure:"cleanDistPath"`

	CSSModules CSSModulesConfig `mapstructure:"cssModules"`

	// CSSModuleLocalIdentName is the legacy spelling of
	// cssModules.localIdentName. The modern key wins when both are set.
	CSSModuleLocalIdentName string `mapstructure:"cssModuleLocalIdentName"`
	// DisableCSSModuleExtension treats every stylesheet except *.global.*
	// as a CSS module, instead of only *.module.* files.
	DisableCSSModuleExtension bool `mapstructure:"disableCssModuleExtension"`

	DisableMinimize     bool `mapstructure:"disableMinimize"`
	DisableSourceMap    bool `mapstructure:"disableSourceMap"`
	DisableFilenameHash bool `mapstructure:"disableFilenameHash"`
	DisableTsChecker    bool `mapstructure:"disableTsChecker"`

	EnableAssetManifest bool `mapstructure:"enableAssetManifest"`

	AssetsRetry *AssetsRetryConfig `mapstructure:"assetsRetry"`

	// SvgDefaultExport switches SVG imports to React components. Setting it
	// activates the svgr plugin.
	SvgDefaultExport string `mapstructure:"svgDefaultExport" validate:"omitempty,oneof=component url"`

	Polyfill string `mapstructure:"polyfill" validate:"omitempty,oneof=usage entry off"`

	InlineScripts bool `mapstructure:"inlineScripts"`
	InlineStyles  bool `mapstructure:"inlineStyles"`

	// OverrideBrowserslist takes precedence over .browserslistrc and the
	// built in per target defaults. A flat list applies to every target, a
	// keyed map applies per target.
	OverrideBrowserslist BrowserslistOverride `mapstructure:"overrideBrowserslist"`
}

// DistPathConfig controls output directories. All paths are relative to Root
// except Root itself, which is relative to the project directory.
type DistPathConfig struct {
	Root  string `mapstructure:"root" json:"root"`
	JS    string `mapstructure:"js" json:"js"`
	CSS   string `mapstructure:"css" json:"css"`
	HTML  string `mapstructure:"html" json:"html"`
	Media string `mapstructure:"media" json:"media"`
}

// CSSModulesConfig controls CSS module class name generation.
type CSSModulesConfig struct {
	// LocalIdentName defaults to a readable pattern in development and a
	// short hashed pattern in production.
	LocalIdentName string `mapstructure:"localIdentName"`
}

// AssetsRetryConfig enables runtime retry of failed static asset requests.
type AssetsRetryConfig struct {
	Max         int      `mapstructure:"max"`
	Domain      []string `mapstructure:"domain"`
	CrossOrigin bool     `mapstructure:"crossOrigin"`
	// Delay between attempts in milliseconds.
	Delay int `mapstructure:"delay"`
}

// BrowserslistOverride holds either a flat query list for all targets or a
// per target map. A decode hook accepts both shapes from config files.
type BrowserslistOverride struct {
	Queries   []string
	ByTargets map[Target][]string
}

// IsZero reports whether no override was supplied.
func (b BrowserslistOverride) IsZero() bool {
	return len(b.Queries) == 0 && len(b.ByTargets) == 0
}

// HTMLConfig controls generated HTML pages. Every field with a ByEntries
// sibling resolves per entry, the entry value replacing the global one for the
// matching entry only.
type HTMLConfig struct {
	Title           string                       `mapstructure:"title"`
	TitleByEntries  map[string]string            `mapstructure:"titleByEntries"`
	Meta            map[string]string            `mapstructure:"meta"`
	MetaByEntries   map[string]map[string]string `mapstructure:"metaByEntries"`
	Inject          string                       `mapstructure:"inject" validate:"omitempty,oneof=head body"`
	InjectByEntries map[string]string            `mapstructure:"injectByEntries"`

	Template                    string                    `mapstructure:"template"`
	TemplateByEntries           map[string]string         `mapstructure:"templateByEntries"`
	TemplateParameters          map[string]any            `mapstructure:"templateParameters"`
	TemplateParametersByEntries map[string]map[string]any `mapstructure:"templateParametersByEntries"`

	Favicon          string            `mapstructure:"favicon"`
	FaviconByEntries map[string]string `mapstructure:"faviconByEntries"`

	// AppIcon is emitted as an apple-touch-icon link.
	AppIcon string `mapstructure:"appIcon"`

	// MountID is the id of the root element templates render into.
	// Defaults to "root".
	MountID string `mapstructure:"mountId"`

	// DisableHTMLFolder is the legacy spelling of outputStructure: flat.
	DisableHTMLFolder bool   `mapstructure:"disableHtmlFolder"`
	OutputStructure   string `mapstructure:"outputStructure" validate:"omitempty,oneof=flat nested"`
}

// DevConfig controls development mode behaviour. None of it applies to
// production builds.
type DevConfig struct {
	// HMR defaults to true. It never applies outside development.
	HMR *bool `mapstructure:"hmr"`

	Port int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Host string `mapstructure:"host"`

	HTTPS *HTTPSConfig `mapstructure:"https"`

	// AssetPrefix is the public URL prefix served during development.
	AssetPrefix string `mapstructure:"assetPrefix"`

	ProgressBar bool `mapstructure:"progressBar"`

	Proxy map[string]ProxyRule `mapstructure:"proxy" validate:"omitempty,dive"`

	WriteToDisk *bool    `mapstructure:"writeToDisk"`
	Overlay     *bool    `mapstructure:"overlay"`
	WatchFiles  []string `mapstructure:"watchFiles"`
}

// HTTPSConfig enables TLS on the dev server. Leaving both paths empty asks
// the CLI to generate a self signed localhost certificate at build time.
type HTTPSConfig struct {
	Key  string `mapstructure:"key" json:"key,omitempty" validate:"required_with=Cert"`
	Cert string `mapstructure:"cert" json:"cert,omitempty" validate:"required_with=Key"`
}

// ProxyRule forwards dev server requests matching a path prefix. A bare
// string in the config file decodes as the target.
type ProxyRule struct {
	Target       string            `mapstructure:"target" json:"target" validate:"required"`
	PathRewrite  map[string]string `mapstructure:"pathRewrite" json:"pathRewrite,omitempty"`
	ChangeOrigin bool              `mapstructure:"changeOrigin" json:"changeOrigin,omitempty"`
	WS           bool              `mapstructure:"ws" json:"ws,omitempty"`
}

// SecurityConfig controls security related output features.
type SecurityConfig struct {
	// Nonce is attached to emitted script tags for CSP.
	Nonce string `mapstructure:"nonce"`

	// CheckSyntax verifies the produced bundle parses under the resolved
	// browser targets. A bare true in the config file decodes to an empty
	// struct.
	CheckSyntax *CheckSyntaxConfig `mapstructure:"checkSyntax"`

	// SRI adds subresource integrity hashes. Webpack only.
	SRI *SRIConfig `mapstructure:"sri"`
}

// CheckSyntaxConfig tunes the post build syntax check.
type CheckSyntaxConfig struct {
	Targets []string `mapstructure:"targets"`
	Exclude []string `mapstructure:"exclude"`
}

// SRIConfig tunes subresource integrity generation.
type SRIConfig struct {
	HashFuncNames []string `mapstructure:"hashFuncNames" json:"hashFuncNames,omitempty"`
}

// PerformanceConfig controls build output size and speed trade offs.
type PerformanceConfig struct {
	ChunkSplit ChunkSplitConfig `mapstructure:"chunkSplit"`

	// RemoveConsole strips console calls in production. true strips every
	// method, a list strips only the named ones.
	RemoveConsole RemoveConsole `mapstructure:"removeConsole"`

	RemoveMomentLocale bool `mapstructure:"removeMomentLocale"`

	// BuildCache enables the bundler's persistent cache. A bare true in the
	// config file decodes to an empty struct.
	BuildCache *BuildCacheConfig `mapstructure:"buildCache"`

	// PrintFileSize defaults to true.
	PrintFileSize *bool `mapstructure:"printFileSize"`
}

// ChunkSplitConfig selects the chunk splitting strategy.
type ChunkSplitConfig struct {
	Strategy string `mapstructure:"strategy" json:"strategy" validate:"omitempty,oneof=split-by-experience split-by-module single-vendor all-in-one custom"`
	MinSize  int    `mapstructure:"minSize" json:"minSize,omitempty" validate:"omitempty,min=0"`
	MaxSize  int    `mapstructure:"maxSize" json:"maxSize,omitempty" validate:"omitempty,min=0"`
	// ForceSplitting maps a chunk name to a module path regexp that is
	// always split into its own chunk.
	ForceSplitting map[string]string `mapstructure:"forceSplitting" json:"forceSplitting,omitempty"`
	// Override is the raw splitChunks object used by the custom strategy.
	Override map[string]any `mapstructure:"override" json:"override,omitempty"`
}

// RemoveConsole is either a bool or a list of console method names. A decode
// hook accepts both shapes from config files.
type RemoveConsole struct {
	All     bool
	Methods []string
}

// Enabled reports whether any console stripping was requested.
func (r RemoveConsole) Enabled() bool {
	return r.All || len(r.Methods) > 0
}

// BuildCacheConfig tunes the bundler persistent cache.
type BuildCacheConfig struct {
	CacheDirectory string `mapstructure:"cacheDirectory" json:"cacheDirectory,omitempty"`
}

// ToolsConfig holds low level escape hatches merged into the lowered config.
type ToolsConfig struct {
	// Webpack is deep merged onto the webpack flavored output only. The
	// rspack flavor ignores it with a warning, and vice versa.
	Webpack map[string]any `mapstructure:"webpack"`
	Rspack  map[string]any `mapstructure:"rspack"`

	DevServer map[string]any `mapstructure:"devServer"`
	CSSLoader map[string]any `mapstructure:"cssLoader"`

	// Esbuild swaps transpilation or minification to esbuild. Webpack only.
	Esbuild *ESBuildConfig `mapstructure:"esbuild"`

	// StyledComponents enables the styled-components compile time
	// transform. A bare true in the config file decodes to an empty struct.
	StyledComponents *StyledComponentsConfig `mapstructure:"styledComponents"`
}

// ESBuildConfig selects which build phases esbuild replaces.
type ESBuildConfig struct {
	Loader   bool `mapstructure:"loader"`
	Minimize bool `mapstructure:"minimize"`
}

// StyledComponentsConfig tunes the styled-components transform.
type StyledComponentsConfig struct {
	DisplayName *bool `mapstructure:"displayName"`
	SSR         bool  `mapstructure:"ssr"`
	Pure        bool  `mapstructure:"pure"`
}

// PluginRef names a user declared plugin. A bare string in the config file
// decodes as the name.
type PluginRef struct {
	Name    string         `mapstructure:"name" validate:"required"`
	Options map[string]any `mapstructure:"options"`
}
