package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/unibuild/internal/emit"
	"github.com/wolfeidau/unibuild/pkg/builder"
)

func TestInspectCmd_Run(t *testing.T) {
	tmpDir := t.TempDir()

	writeConfig(t, tmpDir, `
source:
  entry:
    app:
      - src/app.ts
`)

	cmd := &InspectCmd{
		ConfigFlags: ConfigFlags{Root: tmpDir, Bundler: "webpack", Target: "web"},
		Env:         "development",
	}

	err := cmd.Run(context.Background(), &Globals{})
	require.NoError(t, err)

	// Without --output nothing is written.
	_, err = os.Stat(filepath.Join(tmpDir, "dist", emit.ArtifactDir))
	require.True(t, os.IsNotExist(err))
}

func TestInspectCmd_Output(t *testing.T) {
	tmpDir := t.TempDir()

	writeConfig(t, tmpDir, `
source:
  entry:
    app:
      - src/app.ts
`)

	cmd := &InspectCmd{
		ConfigFlags: ConfigFlags{Root: tmpDir, Bundler: "rspack", Target: "web"},
		Env:         "development",
		Output:      true,
	}

	err := cmd.Run(context.Background(), &Globals{})
	require.NoError(t, err)

	artifactDir := filepath.Join(tmpDir, "dist", emit.ArtifactDir)
	_, err = os.Stat(filepath.Join(artifactDir, "rspack.config.web.json"))
	require.NoError(t, err)

	manifest := readManifest(t, artifactDir)
	assert.Equal(t, builder.ModeDevelopment, manifest.Mode)
	assert.Equal(t, builder.BundlerRspack, manifest.Bundler)
}

func TestInspectCmd_InvalidConfig(t *testing.T) {
	tmpDir := t.TempDir()

	writeConfig(t, tmpDir, `
dev:
  port: 99999
`)

	cmd := &InspectCmd{
		ConfigFlags: ConfigFlags{Root: tmpDir, Bundler: "webpack", Target: "web"},
		Env:         "development",
	}

	err := cmd.Run(context.Background(), &Globals{})
	require.Error(t, err)
}
