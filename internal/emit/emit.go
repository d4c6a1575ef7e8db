// Package emit writes the lowered bundler config and its companion artifacts
// under <dist>/.unibuild, where the JS adapter picks them up.
package emit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/unibuild/pkg/builder"
	"github.com/wolfeidau/unibuild/pkg/builder/plugin"
)

// ArtifactDir is the directory under the dist root holding emitted artifacts.
const ArtifactDir = ".unibuild"

// ConfigName returns the file name of the compiled bundler config.
func ConfigName(b builder.BundlerType, t builder.Target) string {
	return fmt.Sprintf("%s.config.%s.json", b, t)
}

// ShimName returns the file name of the require shim the bundler CLI loads.
func ShimName(b builder.BundlerType, t builder.Target) string {
	return fmt.Sprintf("%s.config.%s.cjs", b, t)
}

// Artifacts bundles everything a build produces for the JS adapter.
type Artifacts struct {
	Bundler builder.BundlerType
	Target  builder.Target
	Mode    builder.Mode

	// Config is the compiled bundler config.
	Config map[string]any
	// Plugins is the ordered activation list.
	Plugins []plugin.Descriptor
	// ConfigFingerprint identifies the source config file. Empty when the
	// build ran on defaults.
	ConfigFingerprint string
}

// Manifest records what a build wrote and under which identity.
type Manifest struct {
	BuildID           string              `json:"buildId"`
	CreatedAt         time.Time           `json:"createdAt"`
	Mode              builder.Mode        `json:"mode"`
	Bundler           builder.BundlerType `json:"bundler"`
	Target            builder.Target      `json:"target"`
	ConfigFingerprint string              `json:"configFingerprint,omitempty"`
	Files             []string            `json:"files"`
}

// Write stores the artifacts under distRoot/.unibuild and returns the
// manifest, itself written last as manifest.json.
func Write(distRoot string, art *Artifacts) (*Manifest, error) {
	dir := filepath.Join(distRoot, ArtifactDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact dir: %w", err)
	}

	configName := ConfigName(art.Bundler, art.Target)
	shimName := ShimName(art.Bundler, art.Target)

	if err := writeJSON(filepath.Join(dir, configName), art.Config); err != nil {
		return nil, err
	}

	shim := fmt.Sprintf("// Generated by unibuild, do not edit.\nmodule.exports = require(%q);\n", "./"+configName)
	if err := writeFile(filepath.Join(dir, shimName), []byte(shim)); err != nil {
		return nil, err
	}

	plugins := art.Plugins
	if plugins == nil {
		plugins = []plugin.Descriptor{}
	}
	if err := writeJSON(filepath.Join(dir, "plugins.json"), plugins); err != nil {
		return nil, err
	}

	manifest := &Manifest{
		BuildID:           uuid.New().String(),
		CreatedAt:         time.Now().UTC(),
		Mode:              art.Mode,
		Bundler:           art.Bundler,
		Target:            art.Target,
		ConfigFingerprint: art.ConfigFingerprint,
		Files:             []string{configName, shimName, "plugins.json"},
	}

	if err := writeJSON(filepath.Join(dir, "manifest.json"), manifest); err != nil {
		return nil, err
	}

	log.Debug().
		Str("dir", dir).
		Str("build_id", manifest.BuildID).
		Msg("wrote build artifacts")

	return manifest, nil
}

// writeJSON marshals v with stable indentation and writes it atomically.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	return writeFile(path, append(data, '\n'))
}

// writeFile writes to a temp file first, then renames into place.
func writeFile(path string, data []byte) error {
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save %s: %w", filepath.Base(path), err)
	}

	return nil
}
