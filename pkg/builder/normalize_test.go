package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_ProductionDefaults(t *testing.T) {
	n, _, err := Normalize(&Config{}, Options{Cwd: t.TempDir(), Mode: ModeProduction})
	require.NoError(t, err)

	assert.Equal(t, ModeProduction, n.Mode)
	assert.Equal(t, TargetWeb, n.Target)
	assert.Equal(t, BundlerWebpack, n.Bundler)

	assert.True(t, n.Output.Minify)
	assert.True(t, n.Output.FilenameHash)
	assert.True(t, n.Output.CleanDistPath)
	assert.Equal(t, "source-map", n.Output.JSSourceMap)

	assert.False(t, n.CSS.SourceMap)
	assert.True(t, n.CSS.Extract)
	assert.Equal(t, "[local]--[hash:base64:6]", n.CSS.LocalIdentName)
	assert.Equal(t, "auto", n.CSS.ModulesMode)

	assert.False(t, n.Dev.HMR)

	assert.Equal(t, map[string][]string{"index": {"src/index.ts"}}, n.Entries)
	assert.Equal(t, DefaultDataURILimit, n.Output.DataURILimit)
	assert.Equal(t, "/", n.Output.AssetPrefix)
	assert.Equal(t, "usage", n.Polyfill)
	assert.Equal(t, "split-by-experience", n.Performance.ChunkSplit.Strategy)
	assert.True(t, n.Performance.PrintFileSize)
}

func TestNormalize_DevelopmentDefaults(t *testing.T) {
	n, _, err := Normalize(&Config{}, Options{Cwd: t.TempDir(), Mode: ModeDevelopment})
	require.NoError(t, err)

	assert.False(t, n.Output.Minify)
	assert.False(t, n.Output.FilenameHash)
	assert.False(t, n.Output.CleanDistPath)
	assert.Equal(t, "cheap-module-source-map", n.Output.JSSourceMap)

	assert.True(t, n.CSS.SourceMap)
	assert.False(t, n.CSS.Extract)
	assert.Equal(t, "[path][name]__[local]--[hash:base64:6]", n.CSS.LocalIdentName)

	assert.True(t, n.Dev.HMR)
	assert.Equal(t, DefaultDevPort, n.Dev.Port)
	assert.Equal(t, DefaultDevHost, n.Dev.Host)
	assert.True(t, n.Dev.Overlay)
}

func TestNormalize_DisableSwitches(t *testing.T) {
	cfg := &Config{
		Output: OutputConfig{
			DisableMinimize:     true,
			DisableSourceMap:    true,
			DisableFilenameHash: true,
		},
	}

	n, _, err := Normalize(cfg, Options{Cwd: t.TempDir(), Mode: ModeProduction})
	require.NoError(t, err)

	assert.False(t, n.Output.Minify)
	assert.False(t, n.Output.FilenameHash)
	assert.Empty(t, n.Output.JSSourceMap)
	assert.False(t, n.CSS.SourceMap)
}

func TestNormalize_DisableSourceMapAppliesToDevelopment(t *testing.T) {
	cfg := &Config{Output: OutputConfig{DisableSourceMap: true}}

	n, _, err := Normalize(cfg, Options{Cwd: t.TempDir(), Mode: ModeDevelopment})
	require.NoError(t, err)

	assert.Empty(t, n.Output.JSSourceMap)
	assert.False(t, n.CSS.SourceMap)
}

func TestNormalize_HMRCanBeDisabled(t *testing.T) {
	off := false
	cfg := &Config{Dev: DevConfig{HMR: &off}}

	n, _, err := Normalize(cfg, Options{Cwd: t.TempDir(), Mode: ModeDevelopment})
	require.NoError(t, err)

	assert.False(t, n.Dev.HMR)
}

func TestNormalize_PerEntryOverrides(t *testing.T) {
	cfg := &Config{
		Source: SourceConfig{
			Entry: map[string][]string{
				"main":  {"src/main.ts"},
				"admin": {"src/admin.ts"},
			},
		},
		HTML: HTMLConfig{
			Title:          "My App",
			TitleByEntries: map[string]string{"admin": "Admin Console"},
			Inject:         "head",
			InjectByEntries: map[string]string{
				"admin": "body",
			},
			Template:          "templates/page.html",
			TemplateByEntries: map[string]string{"admin": "templates/admin.html"},
			Favicon:           "static/favicon.ico",
			Meta:              map[string]string{"description": "global description"},
			MetaByEntries: map[string]map[string]string{
				"admin": {"description": "admin description"},
			},
		},
	}

	n, _, err := Normalize(cfg, Options{Cwd: t.TempDir(), Mode: ModeProduction})
	require.NoError(t, err)
	require.Len(t, n.HTML, 2)

	main := n.HTML["main"]
	assert.Equal(t, "My App", main.Title)
	assert.Equal(t, "head", main.Inject)
	assert.Equal(t, "templates/page.html", main.Template)
	assert.Equal(t, "static/favicon.ico", main.Favicon)
	assert.Equal(t, "global description", main.Meta["description"])

	admin := n.HTML["admin"]
	assert.Equal(t, "Admin Console", admin.Title)
	assert.Equal(t, "body", admin.Inject)
	assert.Equal(t, "templates/admin.html", admin.Template)
	// No per entry favicon, the global applies.
	assert.Equal(t, "static/favicon.ico", admin.Favicon)
	assert.Equal(t, "admin description", admin.Meta["description"])
}

func TestNormalize_PerEntryOverrideReplacesWholeValue(t *testing.T) {
	cfg := &Config{
		Source: SourceConfig{
			Entry: map[string][]string{
				"main":  {"src/main.ts"},
				"admin": {"src/admin.ts"},
			},
		},
		HTML: HTMLConfig{
			TemplateParameters: map[string]any{"theme": "light", "version": "1.0"},
			TemplateParametersByEntries: map[string]map[string]any{
				"admin": {"theme": "dark"},
			},
		},
	}

	n, _, err := Normalize(cfg, Options{Cwd: t.TempDir(), Mode: ModeProduction})
	require.NoError(t, err)

	main := n.HTML["main"]
	assert.Equal(t, "light", main.TemplateParameters["theme"])
	assert.Equal(t, "1.0", main.TemplateParameters["version"])

	// The admin map replaces the global map, version is gone.
	admin := n.HTML["admin"]
	assert.Equal(t, "dark", admin.TemplateParameters["theme"])
	assert.NotContains(t, admin.TemplateParameters, "version")

	// Built in parameters survive either way.
	assert.Equal(t, "main", main.TemplateParameters["entryName"])
	assert.Equal(t, "admin", admin.TemplateParameters["entryName"])
	assert.Equal(t, DefaultMountID, admin.TemplateParameters["mountId"])
}

func TestNormalize_HTMLDefaults(t *testing.T) {
	n, _, err := Normalize(&Config{}, Options{Cwd: t.TempDir(), Mode: ModeProduction})
	require.NoError(t, err)

	page := n.HTML["index"]
	assert.Equal(t, "head", page.Inject)
	assert.Equal(t, "utf-8", page.Meta["charset"])
	assert.Equal(t, "index/index.html", page.Filename)
}

func TestNormalize_LegacyCSSModuleKeys(t *testing.T) {
	tests := map[string]struct {
		output OutputConfig
		want   string
	}{
		"legacy key applies": {
			output: OutputConfig{CSSModuleLocalIdentName: "[hash:base64:4]"},
			want:   "[hash:base64:4]",
		},
		"modern key wins over legacy": {
			output: OutputConfig{
				CSSModules:              CSSModulesConfig{LocalIdentName: "[local]-[hash:base64:8]"},
				CSSModuleLocalIdentName: "[hash:base64:4]",
			},
			want: "[local]-[hash:base64:8]",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			n, _, err := Normalize(&Config{Output: tt.output}, Options{Cwd: t.TempDir(), Mode: ModeProduction})
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.CSS.LocalIdentName)
		})
	}
}

func TestNormalize_LegacyCSSModuleExtension(t *testing.T) {
	cfg := &Config{Output: OutputConfig{DisableCSSModuleExtension: true}}

	n, _, err := Normalize(cfg, Options{Cwd: t.TempDir(), Mode: ModeProduction})
	require.NoError(t, err)

	assert.Equal(t, "loose", n.CSS.ModulesMode)
}

func TestNormalize_LegacyHTMLFolderKey(t *testing.T) {
	tests := map[string]struct {
		html HTMLConfig
		want string
	}{
		"default is nested":  {html: HTMLConfig{}, want: "nested"},
		"legacy key applies": {html: HTMLConfig{DisableHTMLFolder: true}, want: "flat"},
		"modern key wins": {
			html: HTMLConfig{DisableHTMLFolder: true, OutputStructure: "nested"},
			want: "nested",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			n, _, err := Normalize(&Config{HTML: tt.html}, Options{Cwd: t.TempDir(), Mode: ModeProduction})
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.Output.OutputStructure)

			if tt.want == "flat" {
				assert.Equal(t, "index.html", n.HTML["index"].Filename)
			}
		})
	}
}

func TestNormalize_Entries(t *testing.T) {
	cfg := &Config{
		Source: SourceConfig{
			Entry: map[string][]string{
				"main": {"src/main.ts", "src/bootstrap.ts"},
			},
			PreEntry: []string{"src/polyfill-setup.ts"},
		},
	}

	n, _, err := Normalize(cfg, Options{Cwd: t.TempDir(), Mode: ModeProduction})
	require.NoError(t, err)

	assert.Equal(t, []string{"src/polyfill-setup.ts", "src/main.ts", "src/bootstrap.ts"}, n.Entries["main"])
}

func TestNormalize_EmptyEntryFails(t *testing.T) {
	cfg := &Config{
		Source: SourceConfig{
			Entry: map[string][]string{"main": {}},
		},
	}

	_, _, err := Normalize(cfg, Options{Cwd: t.TempDir(), Mode: ModeProduction})
	require.ErrorIs(t, err, ErrEmptyEntry)
}

func TestNormalize_Define(t *testing.T) {
	cfg := &Config{
		Source: SourceConfig{
			Define: map[string]string{
				"__VERSION__": `"1.2.3"`,
				"FLAG":        "true",
			},
			GlobalVars: map[string]any{
				"API_URL": "https://api.example.com",
				"FLAG":    false,
			},
		},
	}

	n, _, err := Normalize(cfg, Options{Cwd: t.TempDir(), Mode: ModeProduction})
	require.NoError(t, err)

	assert.Equal(t, `"1.2.3"`, n.Define["__VERSION__"])
	assert.Equal(t, `"https://api.example.com"`, n.Define["API_URL"])
	// An explicit define wins over a globalVars value for the same key.
	assert.Equal(t, "true", n.Define["FLAG"])
}

func TestNormalize_AssetPrefixPerMode(t *testing.T) {
	cfg := &Config{
		Output: OutputConfig{AssetPrefix: "https://cdn.example.com/"},
		Dev:    DevConfig{AssetPrefix: "http://localhost:8080/"},
	}

	prod, _, err := Normalize(cfg, Options{Cwd: t.TempDir(), Mode: ModeProduction})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/", prod.Output.AssetPrefix)

	dev, _, err := Normalize(cfg, Options{Cwd: t.TempDir(), Mode: ModeDevelopment})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/", dev.Output.AssetPrefix)
}

func TestNormalize_NodeTarget(t *testing.T) {
	n, _, err := Normalize(&Config{}, Options{Cwd: t.TempDir(), Mode: ModeProduction, Target: TargetNode})
	require.NoError(t, err)

	// Server bundles stay readable and stable.
	assert.False(t, n.Output.Minify)
	assert.False(t, n.Output.FilenameHash)
	assert.Empty(t, n.HTML)
	assert.Equal(t, "off", n.Polyfill)
	assert.Equal(t, "all-in-one", n.Performance.ChunkSplit.Strategy)
	assert.Equal(t, []string{"node >= 14"}, n.Browserslist)
}

func TestNormalize_WebWorkerTarget(t *testing.T) {
	n, _, err := Normalize(&Config{}, Options{Cwd: t.TempDir(), Mode: ModeProduction, Target: TargetWebWorker})
	require.NoError(t, err)

	assert.Empty(t, n.HTML)
	assert.Equal(t, "all-in-one", n.Performance.ChunkSplit.Strategy)
	assert.True(t, n.Output.Minify)
}

func TestNormalize_RemoveConsole(t *testing.T) {
	all, _, err := Normalize(&Config{
		Performance: PerformanceConfig{RemoveConsole: RemoveConsole{All: true}},
	}, Options{Cwd: t.TempDir(), Mode: ModeProduction})
	require.NoError(t, err)
	assert.Equal(t, allConsoleMethods, all.Performance.RemoveConsole)

	some, _, err := Normalize(&Config{
		Performance: PerformanceConfig{RemoveConsole: RemoveConsole{Methods: []string{"log", "debug"}}},
	}, Options{Cwd: t.TempDir(), Mode: ModeProduction})
	require.NoError(t, err)
	assert.Equal(t, []string{"log", "debug"}, some.Performance.RemoveConsole)
}

func TestNormalize_InvalidInputs(t *testing.T) {
	_, _, err := Normalize(&Config{}, Options{Cwd: t.TempDir(), Mode: "staging"})
	require.ErrorIs(t, err, ErrInvalidMode)

	_, _, err = Normalize(&Config{}, Options{Cwd: t.TempDir(), Mode: ModeProduction, Target: "desktop"})
	require.ErrorIs(t, err, ErrInvalidTarget)

	_, _, err = Normalize(&Config{}, Options{Cwd: t.TempDir(), Mode: ModeProduction, Bundler: "vite"})
	require.ErrorIs(t, err, ErrInvalidBundler)
}

func TestResolveMode(t *testing.T) {
	assert.Equal(t, ModeDevelopment, ResolveMode(ModeDevelopment, ModeProduction))
	assert.Equal(t, ModeProduction, ResolveMode("", ModeProduction))
	assert.Equal(t, ModeProduction, ResolveMode("", ""))
}

func TestResolveMode_Environment(t *testing.T) {
	t.Setenv(EnvMode, "development")

	assert.Equal(t, ModeDevelopment, ResolveMode("", ""))
	// Explicit sources still win over the environment.
	assert.Equal(t, ModeProduction, ResolveMode(ModeProduction, ""))
	assert.Equal(t, ModeProduction, ResolveMode("", ModeProduction))
}

func TestResolveMode_IgnoresInvalidEnvironment(t *testing.T) {
	t.Setenv(EnvMode, "staging")

	assert.Equal(t, ModeProduction, ResolveMode("", ""))
}
