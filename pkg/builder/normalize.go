package builder

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/unibuild/pkg/builder/plugin"
)

// EnvMode is the environment variable consulted when neither the options nor
// the config select a mode.
const EnvMode = "UNIBUILD_ENV"

// Options selects how a Config is normalized. Zero values take defaults:
// the process working directory, the mode resolution chain, the web target
// and the webpack bundler.
type Options struct {
	// Cwd is the project root directory.
	Cwd string
	// Mode overrides every other mode source when set.
	Mode Mode
	// Target selects the output platform.
	Target Target
	// Bundler selects the flavor the result will be lowered for.
	Bundler BundlerType
}

// ResolveMode applies the mode precedence chain: the explicit override, then
// the config, then UNIBUILD_ENV, then production.
func ResolveMode(override, configured Mode) Mode {
	if override != "" {
		return override
	}
	if configured != "" {
		return configured
	}
	if env := Mode(os.Getenv(EnvMode)); env.Valid() {
		return env
	}
	return ModeProduction
}

// Normalized is the bundler independent result of Normalize. The webpack and
// rspack packages lower it into their native config formats.
type Normalized struct {
	Mode    Mode        `json:"mode"`
	Target  Target      `json:"target"`
	Bundler BundlerType `json:"bundler"`

	// Context is the absolute project root.
	Context string `json:"context"`

	// Entries maps entry names to source files, preEntry files included.
	Entries map[string][]string `json:"entries"`

	Browserslist []string `json:"browserslist"`

	Output OutputNormalized `json:"output"`
	CSS    CSSNormalized    `json:"css"`

	// HTML holds the resolved per entry page options. Empty for non web
	// targets, which emit no pages.
	HTML map[string]HTMLOptions `json:"html,omitempty"`

	Dev DevNormalized `json:"dev"`

	Define          map[string]string `json:"define,omitempty"`
	Alias           map[string]string `json:"alias,omitempty"`
	Include         []string          `json:"include,omitempty"`
	Exclude         []string          `json:"exclude,omitempty"`
	TransformImport []TransformImport `json:"transformImport,omitempty"`
	ModuleScopes    []string          `json:"moduleScopes,omitempty"`

	Polyfill string `json:"polyfill"`

	Security    SecurityNormalized    `json:"security"`
	Performance PerformanceNormalized `json:"performance"`

	// Tools fragments pass through untouched for the lowering stage.
	Tools ToolsConfig `json:"-"`
}

// OutputNormalized holds the resolved output settings.
type OutputNormalized struct {
	DistPath      DistPathConfig `json:"distPath"`
	AssetPrefix   string         `json:"assetPrefix"`
	DataURILimit  int            `json:"dataUriLimit"`
	Charset       string         `json:"charset"`
	LegalComments string         `json:"legalComments"`
	CleanDistPath bool           `json:"cleanDistPath"`
	Minify        bool           `json:"minify"`
	FilenameHash  bool           `json:"filenameHash"`
	// JSSourceMap is the devtool value, empty when maps are disabled.
	JSSourceMap     string `json:"jsSourceMap,omitempty"`
	InlineScripts   bool   `json:"inlineScripts"`
	InlineStyles    bool   `json:"inlineStyles"`
	OutputStructure string `json:"outputStructure"`
}

// CSSNormalized holds the resolved CSS pipeline settings.
type CSSNormalized struct {
	SourceMap bool `json:"sourceMap"`
	// Extract moves CSS into files instead of style tags.
	Extract bool `json:"extract"`
	// ModulesMode is auto (*.module.* files only) or loose (everything but
	// *.global.* files).
	ModulesMode    string `json:"modulesMode"`
	LocalIdentName string `json:"localIdentName"`
}

// DevNormalized holds the resolved dev server settings.
type DevNormalized struct {
	HMR         bool                 `json:"hmr"`
	Port        int                  `json:"port"`
	Host        string               `json:"host"`
	HTTPS       *HTTPSConfig         `json:"https,omitempty"`
	Proxy       map[string]ProxyRule `json:"proxy,omitempty"`
	WriteToDisk bool                 `json:"writeToDisk"`
	Overlay     bool                 `json:"overlay"`
	WatchFiles  []string             `json:"watchFiles,omitempty"`
}

// SecurityNormalized holds the resolved security settings.
type SecurityNormalized struct {
	Nonce string     `json:"nonce,omitempty"`
	SRI   *SRIConfig `json:"sri,omitempty"`
}

// PerformanceNormalized holds the resolved performance settings.
type PerformanceNormalized struct {
	ChunkSplit ChunkSplitConfig `json:"chunkSplit"`
	// RemoveConsole lists the console methods stripped in production.
	RemoveConsole      []string          `json:"removeConsole,omitempty"`
	RemoveMomentLocale bool              `json:"removeMomentLocale"`
	BuildCache         *BuildCacheConfig `json:"buildCache,omitempty"`
	PrintFileSize      bool              `json:"printFileSize"`
}

// allConsoleMethods is what removeConsole: true expands to.
var allConsoleMethods = []string{"log", "info", "warn", "error", "debug"}

// Normalize resolves a Config into the bundler independent Normalized form
// and the ordered plugin activation list. It is a single pass transformation
// with no side effects beyond an optional .browserslistrc read.
func Normalize(cfg *Config, opts Options) (*Normalized, []plugin.Descriptor, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	mode := ResolveMode(opts.Mode, cfg.Mode)
	if !mode.Valid() {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidMode, mode)
	}

	target := opts.Target
	if target == "" {
		target = TargetWeb
	}
	if !target.Valid() {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidTarget, target)
	}

	bundler := opts.Bundler
	if bundler == "" {
		bundler = BundlerWebpack
	}
	if !bundler.Valid() {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidBundler, bundler)
	}

	cwd := opts.Cwd
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		cwd = wd
	}
	context, err := filepath.Abs(cwd)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	entries, err := resolveEntries(cfg.Source)
	if err != nil {
		return nil, nil, err
	}
	warnUnknownEntries(cfg.HTML, entries)

	browserslist, err := ResolveBrowserslist(context, mode, target, cfg.Output.OverrideBrowserslist)
	if err != nil {
		return nil, nil, err
	}

	dev := mode == ModeDevelopment
	web := target == TargetWeb

	n := &Normalized{
		Mode:         mode,
		Target:       target,
		Bundler:      bundler,
		Context:      context,
		Entries:      entries,
		Browserslist: browserslist,

		Define:          resolveDefine(cfg.Source),
		Alias:           maps.Clone(cfg.Source.Alias),
		Include:         cfg.Source.Include,
		Exclude:         cfg.Source.Exclude,
		TransformImport: cfg.Source.TransformImport,
		ModuleScopes:    cfg.Source.ModuleScopes,

		Polyfill: resolvePolyfill(cfg.Output.Polyfill, target),
	}

	n.Output = OutputNormalized{
		DistPath:      defaultDistPath(cfg.Output.DistPath),
		AssetPrefix:   resolveAssetPrefix(cfg, dev),
		DataURILimit:  intOr(cfg.Output.DataURILimit, DefaultDataURILimit),
		Charset:       cond(cfg.Output.Charset != "", cfg.Output.Charset, "utf8"),
		LegalComments: cond(cfg.Output.LegalComments != "", cfg.Output.LegalComments, "linked"),
		CleanDistPath: boolOr(cfg.Output.CleanDistPath, !dev),
		// Server bundles keep stable, readable output.
		Minify:          !dev && !cfg.Output.DisableMinimize && target != TargetNode,
		FilenameHash:    !dev && !cfg.Output.DisableFilenameHash && target != TargetNode,
		InlineScripts:   cfg.Output.InlineScripts,
		InlineStyles:    cfg.Output.InlineStyles,
		OutputStructure: resolveOutputStructure(cfg.HTML),
	}
	if !cfg.Output.DisableSourceMap {
		n.Output.JSSourceMap = defaultDevtool(mode)
	}

	n.CSS = CSSNormalized{
		SourceMap:      dev && !cfg.Output.DisableSourceMap,
		Extract:        !dev,
		ModulesMode:    cond(cfg.Output.DisableCSSModuleExtension, "loose", "auto"),
		LocalIdentName: resolveLocalIdentName(cfg.Output, mode),
	}

	if web {
		n.HTML = resolveHTML(cfg.HTML, entries, n.Output.OutputStructure)
	}

	n.Dev = DevNormalized{
		HMR:         dev && web && boolOr(cfg.Dev.HMR, true),
		Port:        cond(cfg.Dev.Port != 0, cfg.Dev.Port, DefaultDevPort),
		Host:        cond(cfg.Dev.Host != "", cfg.Dev.Host, DefaultDevHost),
		HTTPS:       cfg.Dev.HTTPS,
		Proxy:       cfg.Dev.Proxy,
		WriteToDisk: boolOr(cfg.Dev.WriteToDisk, false),
		Overlay:     boolOr(cfg.Dev.Overlay, true),
		WatchFiles:  cfg.Dev.WatchFiles,
	}

	n.Security = SecurityNormalized{
		Nonce: cfg.Security.Nonce,
		SRI:   cfg.Security.SRI,
	}

	n.Performance = PerformanceNormalized{
		ChunkSplit:         resolveChunkSplit(cfg.Performance.ChunkSplit, target),
		RemoveConsole:      resolveRemoveConsole(cfg.Performance.RemoveConsole),
		RemoveMomentLocale: cfg.Performance.RemoveMomentLocale,
		BuildCache:         cfg.Performance.BuildCache,
		PrintFileSize:      boolOr(cfg.Performance.PrintFileSize, true),
	}

	n.Tools = cfg.Tools

	descriptors, err := plugin.Sort(activePlugins(cfg, browserslist))
	if err != nil {
		return nil, nil, err
	}

	log.Debug().
		Str("mode", string(mode)).
		Str("target", string(target)).
		Str("bundler", string(bundler)).
		Int("entries", len(entries)).
		Int("plugins", len(descriptors)).
		Msg("normalized config")

	return n, descriptors, nil
}

// resolveDefine merges globalVars under define. GlobalVars values are JSON
// encoded, an explicit define for the same key wins.
func resolveDefine(src SourceConfig) map[string]string {
	if len(src.Define) == 0 && len(src.GlobalVars) == 0 {
		return nil
	}

	define := make(map[string]string, len(src.Define)+len(src.GlobalVars))

	for key, value := range src.GlobalVars {
		encoded, err := json.Marshal(value)
		if err != nil {
			log.Warn().Str("key", key).Err(err).Msg("skipping unencodable globalVars value")
			continue
		}
		define[key] = string(encoded)
	}

	maps.Copy(define, src.Define)

	return define
}

// resolveLocalIdentName applies the legacy key mapping. The modern
// cssModules.localIdentName wins over output.cssModuleLocalIdentName.
func resolveLocalIdentName(out OutputConfig, mode Mode) string {
	if out.CSSModules.LocalIdentName != "" {
		return out.CSSModules.LocalIdentName
	}
	if out.CSSModuleLocalIdentName != "" {
		return out.CSSModuleLocalIdentName
	}
	return defaultLocalIdentName(mode)
}

// resolveOutputStructure applies the legacy disableHtmlFolder mapping. The
// modern outputStructure key wins.
func resolveOutputStructure(html HTMLConfig) string {
	if html.OutputStructure != "" {
		return html.OutputStructure
	}
	if html.DisableHTMLFolder {
		return "flat"
	}
	return "nested"
}

// resolveAssetPrefix picks the prefix for the build environment.
func resolveAssetPrefix(cfg *Config, dev bool) string {
	prefix := cond(dev, cfg.Dev.AssetPrefix, cfg.Output.AssetPrefix)
	if prefix == "" {
		return "/"
	}
	return prefix
}

// resolvePolyfill defaults to usage and forces off for node, which needs no
// browser polyfills.
func resolvePolyfill(polyfill string, target Target) string {
	if target == TargetNode {
		return "off"
	}
	if polyfill == "" {
		return "usage"
	}
	return polyfill
}

// resolveChunkSplit defaults the strategy. Non web targets cannot load extra
// chunks, so everything collapses into a single bundle.
func resolveChunkSplit(split ChunkSplitConfig, target Target) ChunkSplitConfig {
	if target != TargetWeb {
		if split.Strategy != "" && split.Strategy != "all-in-one" {
			log.Debug().Str("strategy", split.Strategy).Str("target", string(target)).Msg("forcing all-in-one chunk split for non web target")
		}
		split.Strategy = "all-in-one"
		return split
	}

	if split.Strategy == "" {
		split.Strategy = "split-by-experience"
	}
	return split
}

// resolveRemoveConsole expands the bool form into the full method list.
func resolveRemoveConsole(rc RemoveConsole) []string {
	if rc.All {
		return allConsoleMethods
	}
	return rc.Methods
}

// warnUnknownEntries flags ByEntries keys that match no entry. They are
// harmless but usually a typo.
func warnUnknownEntries(html HTMLConfig, entries map[string][]string) {
	check := func(field string, keys []string) {
		for _, key := range keys {
			if _, ok := entries[key]; !ok {
				log.Warn().Str("field", field).Str("entry", key).Msg("per entry override matches no entry")
			}
		}
	}

	check("html.titleByEntries", mapKeys(html.TitleByEntries))
	check("html.metaByEntries", mapKeys(html.MetaByEntries))
	check("html.injectByEntries", mapKeys(html.InjectByEntries))
	check("html.templateByEntries", mapKeys(html.TemplateByEntries))
	check("html.templateParametersByEntries", mapKeys(html.TemplateParametersByEntries))
	check("html.faviconByEntries", mapKeys(html.FaviconByEntries))
}

func mapKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	return keys
}
