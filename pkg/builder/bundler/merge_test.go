package bundler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_NestedMaps(t *testing.T) {
	dst := map[string]any{
		"output": map[string]any{
			"path":       "/dist",
			"publicPath": "/",
		},
		"mode": "production",
	}

	out := Merge(dst, map[string]any{
		"output": map[string]any{
			"publicPath": "https://cdn.example.com/",
		},
	})

	output := out["output"].(map[string]any)
	assert.Equal(t, "/dist", output["path"])
	assert.Equal(t, "https://cdn.example.com/", output["publicPath"])
	assert.Equal(t, "production", out["mode"])
}

func TestMerge_NonMapValuesReplace(t *testing.T) {
	dst := map[string]any{
		"devtool": "source-map",
		"plugins": []any{"a"},
	}

	out := Merge(dst, map[string]any{
		"devtool": false,
		"plugins": []any{"b", "c"},
	})

	assert.Equal(t, false, out["devtool"])
	// Lists replace wholesale, they never concatenate.
	assert.Equal(t, []any{"b", "c"}, out["plugins"])
}

func TestMerge_NilDestination(t *testing.T) {
	out := Merge(nil, map[string]any{"mode": "development"})
	assert.Equal(t, "development", out["mode"])
}

func TestMerge_MapOverScalar(t *testing.T) {
	dst := map[string]any{"cache": true}

	out := Merge(dst, map[string]any{
		"cache": map[string]any{"type": "filesystem"},
	})

	assert.Equal(t, map[string]any{"type": "filesystem"}, out["cache"])
}

func TestToMap(t *testing.T) {
	out, err := ToMap(Output{
		Path:       "/dist",
		PublicPath: "/",
		Filename:   "static/js/[name].js",
	})
	require.NoError(t, err)

	assert.Equal(t, "/dist", out["path"])
	assert.Equal(t, "static/js/[name].js", out["filename"])
	// Zero values with omitempty disappear.
	assert.NotContains(t, out, "chunkFilename")
}
