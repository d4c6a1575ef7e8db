package webpack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/unibuild/pkg/builder"
	"github.com/wolfeidau/unibuild/pkg/builder/bundler"
)

func lower(t *testing.T, cfg *builder.Config, mode builder.Mode) *Config {
	t.Helper()

	n, _, err := builder.Normalize(cfg, builder.Options{
		Cwd:     t.TempDir(),
		Mode:    mode,
		Bundler: builder.BundlerWebpack,
	})
	require.NoError(t, err)

	out, err := Lower(n)
	require.NoError(t, err)
	return out
}

func findPlugin(plugins []bundler.PluginEntry, name string) (bundler.PluginEntry, bool) {
	for _, p := range plugins {
		if p.Name == name {
			return p, true
		}
	}
	return bundler.PluginEntry{}, false
}

func TestLower_ProductionBasics(t *testing.T) {
	cfg := lower(t, &builder.Config{}, builder.ModeProduction)

	assert.Equal(t, "production", cfg.Mode)
	assert.Equal(t, "web", cfg.Target)
	assert.Equal(t, "source-map", cfg.Devtool)
	assert.True(t, cfg.Optimization.Minimize)
	assert.Nil(t, cfg.DevServer)
	assert.Equal(t, []string{"src/index.ts"}, cfg.Entry["index"])
}

func TestLower_DevelopmentBasics(t *testing.T) {
	cfg := lower(t, &builder.Config{}, builder.ModeDevelopment)

	assert.Equal(t, "cheap-module-source-map", cfg.Devtool)
	assert.False(t, cfg.Optimization.Minimize)
	assert.Empty(t, cfg.Optimization.Minimizer)

	require.NotNil(t, cfg.DevServer)
	assert.True(t, cfg.DevServer.Hot)

	_, ok := findPlugin(cfg.Plugins, pluginReactRefresh)
	assert.True(t, ok)
}

func TestLower_SourceMapsDisabled(t *testing.T) {
	cfg := lower(t, &builder.Config{
		Output: builder.OutputConfig{DisableSourceMap: true},
	}, builder.ModeProduction)

	assert.Equal(t, false, cfg.Devtool)
}

func TestLower_BabelLoaderByDefault(t *testing.T) {
	cfg := lower(t, &builder.Config{}, builder.ModeProduction)

	rule := cfg.Module.Rules[0]
	require.Len(t, rule.Use, 1)
	assert.Equal(t, "babel-loader", rule.Use[0].Loader)

	presets := rule.Use[0].Options["presets"].([]any)
	env := presets[0].([]any)
	assert.Equal(t, "@babel/preset-env", env[0])

	envOptions := env[1].(map[string]any)
	assert.Equal(t, "usage", envOptions["useBuiltIns"])
	assert.NotEmpty(t, envOptions["targets"])
}

func TestLower_ESBuildLoader(t *testing.T) {
	cfg := lower(t, &builder.Config{
		Tools: builder.ToolsConfig{Esbuild: &builder.ESBuildConfig{Loader: true}},
	}, builder.ModeProduction)

	rule := cfg.Module.Rules[0]
	assert.Equal(t, "esbuild-loader", rule.Use[0].Loader)
}

func TestLower_TerserMinimizer(t *testing.T) {
	cfg := lower(t, &builder.Config{
		Performance: builder.PerformanceConfig{
			RemoveConsole: builder.RemoveConsole{Methods: []string{"log"}},
		},
	}, builder.ModeProduction)

	terser, ok := findPlugin(cfg.Optimization.Minimizer, pluginTerser)
	require.True(t, ok)

	terserOptions := terser.Options["terserOptions"].(map[string]any)
	compress := terserOptions["compress"].(map[string]any)
	assert.Equal(t, []string{"console.log"}, compress["pure_funcs"])

	_, ok = findPlugin(cfg.Optimization.Minimizer, pluginCSSMinimizer)
	assert.True(t, ok)
}

func TestLower_ESBuildMinimizer(t *testing.T) {
	cfg := lower(t, &builder.Config{
		Tools: builder.ToolsConfig{Esbuild: &builder.ESBuildConfig{Minimize: true}},
	}, builder.ModeProduction)

	require.Len(t, cfg.Optimization.Minimizer, 1)
	assert.Equal(t, pluginESBuildMin, cfg.Optimization.Minimizer[0].Name)
}

func TestLower_BuildCache(t *testing.T) {
	cfg := lower(t, &builder.Config{
		Performance: builder.PerformanceConfig{
			BuildCache: &builder.BuildCacheConfig{CacheDirectory: ".cache/webpack"},
		},
	}, builder.ModeProduction)

	require.NotNil(t, cfg.Cache)
	assert.Equal(t, "filesystem", cfg.Cache.Type)
	assert.Equal(t, ".cache/webpack", cfg.Cache.CacheDirectory)
}

func TestLower_NoBuildCacheByDefault(t *testing.T) {
	cfg := lower(t, &builder.Config{}, builder.ModeProduction)
	assert.Nil(t, cfg.Cache)
}

func TestLower_ModuleScopesBecomeRestrictions(t *testing.T) {
	cfg := lower(t, &builder.Config{
		Source: builder.SourceConfig{ModuleScopes: []string{"./src", "./shared"}},
	}, builder.ModeProduction)

	assert.Equal(t, []string{"./src", "./shared"}, cfg.Resolve.Restrictions)
}

func TestLower_SRIPlugin(t *testing.T) {
	cfg := lower(t, &builder.Config{
		Security: builder.SecurityConfig{SRI: &builder.SRIConfig{}},
	}, builder.ModeProduction)

	sri, ok := findPlugin(cfg.Plugins, pluginSRI)
	require.True(t, ok)
	assert.Equal(t, []string{"sha384"}, sri.Options["hashFuncNames"])
}

func TestLower_PolyfillEntryMode(t *testing.T) {
	cfg := lower(t, &builder.Config{
		Output: builder.OutputConfig{Polyfill: "entry"},
	}, builder.ModeProduction)

	assert.Equal(t, []string{polyfillEntry, "src/index.ts"}, cfg.Entry["index"])
}

func TestLower_CSSExtractInProduction(t *testing.T) {
	cfg := lower(t, &builder.Config{}, builder.ModeProduction)

	_, ok := findPlugin(cfg.Plugins, pluginCSSExtract)
	assert.True(t, ok)

	dev := lower(t, &builder.Config{}, builder.ModeDevelopment)
	_, ok = findPlugin(dev.Plugins, pluginCSSExtract)
	assert.False(t, ok)
}

func TestLower_HTMLPluginPerEntry(t *testing.T) {
	cfg := lower(t, &builder.Config{
		Source: builder.SourceConfig{
			Entry: map[string][]string{
				"main":  {"src/main.ts"},
				"admin": {"src/admin.ts"},
			},
		},
	}, builder.ModeProduction)

	count := 0
	for _, p := range cfg.Plugins {
		if p.Name == pluginHTML {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

func TestLower_MomentLocaleIgnore(t *testing.T) {
	cfg := lower(t, &builder.Config{
		Performance: builder.PerformanceConfig{RemoveMomentLocale: true},
	}, builder.ModeProduction)

	_, ok := findPlugin(cfg.Plugins, pluginIgnore)
	assert.True(t, ok)
}

func TestLower_TransformImport(t *testing.T) {
	cfg := lower(t, &builder.Config{
		Source: builder.SourceConfig{
			TransformImport: []builder.TransformImport{{LibraryName: "lodash"}},
		},
	}, builder.ModeProduction)

	plugins := cfg.Module.Rules[0].Use[0].Options["plugins"].([]any)
	require.Len(t, plugins, 2)

	importPlugin := plugins[1].([]any)
	assert.Equal(t, "babel-plugin-import", importPlugin[0])

	options := importPlugin[1].(map[string]any)
	assert.Equal(t, "lodash", options["libraryName"])
	assert.Equal(t, "lib", options["libraryDirectory"])
}

func TestCompile_ToolsWebpackMerged(t *testing.T) {
	n, _, err := builder.Normalize(&builder.Config{
		Tools: builder.ToolsConfig{
			Webpack: map[string]any{
				"output": map[string]any{"publicPath": "https://cdn.example.com/"},
				"bail":   true,
			},
		},
	}, builder.Options{Cwd: t.TempDir(), Mode: builder.ModeProduction})
	require.NoError(t, err)

	out, err := Compile(n)
	require.NoError(t, err)

	output := out["output"].(map[string]any)
	assert.Equal(t, "https://cdn.example.com/", output["publicPath"])
	// Untouched keys survive the merge.
	assert.NotEmpty(t, output["filename"])
	assert.Equal(t, true, out["bail"])
}

func TestCompile_ToolsRspackIgnored(t *testing.T) {
	n, _, err := builder.Normalize(&builder.Config{
		Tools: builder.ToolsConfig{
			Rspack: map[string]any{"bail": true},
		},
	}, builder.Options{Cwd: t.TempDir(), Mode: builder.ModeProduction})
	require.NoError(t, err)

	out, err := Compile(n)
	require.NoError(t, err)

	assert.NotContains(t, out, "bail")
}

func TestCompile_DevServerFragment(t *testing.T) {
	n, _, err := builder.Normalize(&builder.Config{
		Tools: builder.ToolsConfig{
			DevServer: map[string]any{"compress": true},
		},
	}, builder.Options{Cwd: t.TempDir(), Mode: builder.ModeDevelopment})
	require.NoError(t, err)

	out, err := Compile(n)
	require.NoError(t, err)

	devServer := out["devServer"].(map[string]any)
	assert.Equal(t, true, devServer["compress"])
	// Lowered settings survive alongside the fragment.
	assert.EqualValues(t, builder.DefaultDevPort, devServer["port"])
}
