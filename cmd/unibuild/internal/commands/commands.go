// Package commands implements the unibuild CLI commands. Each command loads
// the project config, normalizes it and hands the result to the stage the
// command is about: lowering and artifact emission for build, printing for
// inspect, dependency scanning for doctor.
package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wolfeidau/unibuild/internal/configfile"
	"github.com/wolfeidau/unibuild/internal/devcert"
	"github.com/wolfeidau/unibuild/pkg/builder"
	"github.com/wolfeidau/unibuild/pkg/builder/plugin"
	"github.com/wolfeidau/unibuild/pkg/builder/rspack"
	"github.com/wolfeidau/unibuild/pkg/builder/webpack"
)

// Globals carries the top level CLI flags shared by every command.
type Globals struct {
	Debug   bool
	Version string
}

// ConfigFlags selects the config source and the normalization parameters
// shared by every command.
type ConfigFlags struct {
	Config  string `help:"Config file path or URL. Discovered in the project root when empty." env:"UNIBUILD_CONFIG"`
	Root    string `help:"Project root directory." default:"." type:"path" env:"UNIBUILD_ROOT"`
	Bundler string `help:"Bundler flavor to compile for." default:"webpack" enum:"webpack,rspack" env:"UNIBUILD_BUNDLER"`
	Target  string `help:"Output platform." default:"web" enum:"web,node,web-worker" env:"UNIBUILD_TARGET"`
}

// loadNormalized runs the front half of every command: load the config from
// the selected source and normalize it for the requested bundler, target and
// mode. An empty mode falls through the usual resolution chain.
func loadNormalized(ctx context.Context, flags *ConfigFlags, mode builder.Mode) (*builder.Normalized, []plugin.Descriptor, *configfile.Info, error) {
	cfg, info, err := configfile.Load(ctx, flags.Config, flags.Root)
	if err != nil {
		return nil, nil, nil, err
	}

	n, plugins, err := builder.Normalize(cfg, builder.Options{
		Cwd:     flags.Root,
		Mode:    mode,
		Target:  builder.Target(flags.Target),
		Bundler: builder.BundlerType(flags.Bundler),
	})
	if err != nil {
		return nil, nil, nil, err
	}

	return n, plugins, info, nil
}

// compile lowers the normalized config into the flavor it was normalized for.
func compile(n *builder.Normalized) (map[string]any, error) {
	switch n.Bundler {
	case builder.BundlerRspack:
		return rspack.Compile(n)
	default:
		return webpack.Compile(n)
	}
}

// ensureDevCert fills in generated certificate paths when the dev server
// wants TLS and the config names no key and cert. Only development builds
// configure a dev server, so other modes pass through untouched.
func ensureDevCert(n *builder.Normalized) error {
	https := n.Dev.HTTPS
	if n.Mode != builder.ModeDevelopment || https == nil || https.Key != "" || https.Cert != "" {
		return nil
	}

	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return fmt.Errorf("failed to locate user cache dir: %w", err)
	}

	pair, err := devcert.Ensure(filepath.Join(cacheDir, "unibuild", "certs"), []string{n.Dev.Host})
	if err != nil {
		return err
	}

	https.Key = pair.KeyPath
	https.Cert = pair.CertPath

	return nil
}
