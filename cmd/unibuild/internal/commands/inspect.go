package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/unibuild/internal/emit"
	"github.com/wolfeidau/unibuild/internal/logger"
	"github.com/wolfeidau/unibuild/pkg/builder"
	"github.com/wolfeidau/unibuild/pkg/builder/plugin"
)

type InspectCmd struct {
	ConfigFlags `embed:""`

	Env    string `help:"Build mode." default:"development" enum:"development,production"`
	Output bool   `help:"Write the compiled artifacts as build would." default:"false"`
}

func (c *InspectCmd) Run(ctx context.Context, globals *Globals) error {
	log.Logger = logger.Setup(globals.Debug)

	n, plugins, info, err := loadNormalized(ctx, &c.ConfigFlags, builder.Mode(c.Env))
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal normalized config: %w", err)
	}

	fmt.Println(string(data))

	printPlugins(plugins)

	if !c.Output {
		return nil
	}

	if err := ensureDevCert(n); err != nil {
		return err
	}

	out, err := compile(n)
	if err != nil {
		return err
	}

	manifest, err := emit.Write(filepath.Join(n.Context, n.Output.DistPath.Root), &emit.Artifacts{
		Bundler:           n.Bundler,
		Target:            n.Target,
		Mode:              n.Mode,
		Config:            out,
		Plugins:           plugins,
		ConfigFingerprint: info.Fingerprint,
	})
	if err != nil {
		return err
	}

	fmt.Printf("\nArtifacts written to %s (build %s)\n",
		filepath.Join(n.Output.DistPath.Root, emit.ArtifactDir), manifest.BuildID)

	return nil
}

// printPlugins renders the activation list in resolved order.
func printPlugins(plugins []plugin.Descriptor) {
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLUGIN\tORDER\tAFTER")

	for _, p := range plugins {
		order := p.Order
		if order == "" {
			order = plugin.OrderNormal
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, order, strings.Join(p.After, ", "))
	}

	w.Flush()
}
