package emit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/unibuild/pkg/builder"
	"github.com/wolfeidau/unibuild/pkg/builder/plugin"
)

func TestWrite_Layout(t *testing.T) {
	dist := t.TempDir()

	art := &Artifacts{
		Bundler: builder.BundlerWebpack,
		Target:  builder.TargetWeb,
		Mode:    builder.ModeProduction,
		Config: map[string]any{
			"mode":    "production",
			"context": "/proj",
		},
		Plugins: []plugin.Descriptor{
			{Name: "unibuild:type-check", Order: plugin.OrderPost},
		},
		ConfigFingerprint: "3f7abc",
	}

	manifest, err := Write(dist, art)
	require.NoError(t, err)

	dir := filepath.Join(dist, ArtifactDir)

	raw, err := os.ReadFile(filepath.Join(dir, "webpack.config.web.json"))
	require.NoError(t, err)

	var config map[string]any
	require.NoError(t, json.Unmarshal(raw, &config))
	assert.Equal(t, "production", config["mode"])
	assert.Equal(t, "/proj", config["context"])

	shim, err := os.ReadFile(filepath.Join(dir, "webpack.config.web.cjs"))
	require.NoError(t, err)
	assert.Contains(t, string(shim), `require("./webpack.config.web.json")`)

	raw, err = os.ReadFile(filepath.Join(dir, "plugins.json"))
	require.NoError(t, err)

	var plugins []plugin.Descriptor
	require.NoError(t, json.Unmarshal(raw, &plugins))
	require.Len(t, plugins, 1)
	assert.Equal(t, "unibuild:type-check", plugins[0].Name)

	_, err = uuid.Parse(manifest.BuildID)
	assert.NoError(t, err)
	assert.Equal(t, "3f7abc", manifest.ConfigFingerprint)
	assert.Equal(t, []string{"webpack.config.web.json", "webpack.config.web.cjs", "plugins.json"}, manifest.Files)

	raw, err = os.ReadFile(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)

	var stored Manifest
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, manifest.BuildID, stored.BuildID)
	assert.Equal(t, builder.BundlerWebpack, stored.Bundler)
}

func TestWrite_EmptyPluginsAsList(t *testing.T) {
	dist := t.TempDir()

	_, err := Write(dist, &Artifacts{
		Bundler: builder.BundlerRspack,
		Target:  builder.TargetNode,
		Mode:    builder.ModeDevelopment,
		Config:  map[string]any{"mode": "development"},
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dist, ArtifactDir, "plugins.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(string(raw)))

	_, err = os.Stat(filepath.Join(dist, ArtifactDir, "rspack.config.node.json"))
	assert.NoError(t, err)
}

func TestWrite_ReplacesPreviousBuild(t *testing.T) {
	dist := t.TempDir()

	art := &Artifacts{
		Bundler: builder.BundlerWebpack,
		Target:  builder.TargetWeb,
		Mode:    builder.ModeProduction,
		Config:  map[string]any{"rev": "one"},
	}

	first, err := Write(dist, art)
	require.NoError(t, err)

	art.Config["rev"] = "two"
	second, err := Write(dist, art)
	require.NoError(t, err)

	assert.NotEqual(t, first.BuildID, second.BuildID)

	raw, err := os.ReadFile(filepath.Join(dist, ArtifactDir, "webpack.config.web.json"))
	require.NoError(t, err)

	var config map[string]any
	require.NoError(t, json.Unmarshal(raw, &config))
	assert.Equal(t, "two", config["rev"])
}
