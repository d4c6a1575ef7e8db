package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/unibuild/internal/emit"
	"github.com/wolfeidau/unibuild/internal/logger"
	"github.com/wolfeidau/unibuild/internal/runner"
	"github.com/wolfeidau/unibuild/internal/telemetry"
	"github.com/wolfeidau/unibuild/pkg/builder"
)

type BuildCmd struct {
	ConfigFlags `embed:""`

	Env        string `help:"Build mode (development or production). Empty falls through config and UNIBUILD_ENV to production."`
	RunBundler bool   `name:"run" help:"Run the bundler after writing artifacts." default:"false"`
	BundlerBin string `help:"Bundler executable. Defaults to node_modules/.bin/<bundler>." env:"UNIBUILD_BUNDLER_BIN"`
	PTY        bool   `help:"Run the bundler on a pseudo terminal." default:"false"`
	Tracing    bool   `help:"enable tracing" default:"false" env:"UNIBUILD_TRACING"`
}

func (c *BuildCmd) Validate() error {
	if c.Env != "" && !builder.Mode(c.Env).Valid() {
		return fmt.Errorf("invalid mode %q, expected development or production (--env)", c.Env)
	}
	return nil
}

func (c *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	log.Logger = logger.Setup(globals.Debug)

	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, "unibuild", globals.Version)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	metrics := telemetry.GetMetrics()
	started := time.Now()

	n, plugins, info, err := loadNormalized(ctx, &c.ConfigFlags, builder.Mode(c.Env))
	if err != nil {
		metrics.BuildErrorsTotal.Add(ctx, 1)
		return err
	}
	metrics.ConfigLoadsTotal.Add(ctx, 1)
	if strings.HasPrefix(info.Source, "http://") || strings.HasPrefix(info.Source, "https://") {
		metrics.RemoteFetchesTotal.Add(ctx, 1)
	}

	if err := ensureDevCert(n); err != nil {
		metrics.BuildErrorsTotal.Add(ctx, 1)
		return err
	}

	out, err := compile(n)
	if err != nil {
		metrics.BuildErrorsTotal.Add(ctx, 1)
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
		metrics.BuildErrorsTotal.Add(ctx, 1)
		return err
	}

	metrics.BuildsTotal.Add(ctx, 1)
	metrics.ArtifactsWritten.Add(ctx, int64(len(manifest.Files)))
	metrics.BuildDuration.Record(ctx, float64(time.Since(started).Milliseconds()))

	log.Info().
		Str("build_id", manifest.BuildID).
		Str("bundler", string(n.Bundler)).
		Str("mode", string(n.Mode)).
		Int("files", len(manifest.Files)).
		Msg("Artifacts written")

	if c.RunBundler {
		return c.execBundler(ctx, n)
	}

	return nil
}

// execBundler invokes the bundler CLI against the emitted shim, streaming its
// output to stdout.
func (c *BuildCmd) execBundler(ctx context.Context, n *builder.Normalized) error {
	bin := c.BundlerBin
	if bin == "" {
		bin = filepath.Join("node_modules", ".bin", string(n.Bundler))
	}

	shim := filepath.Join(n.Context, n.Output.DistPath.Root, emit.ArtifactDir, emit.ShimName(n.Bundler, n.Target))

	result, err := runner.New(os.Stdout).Run(ctx, bin, []string{"build", "--config", shim}, runner.Options{
		PTY: c.PTY,
		Env: map[string]string{"NODE_ENV": string(n.Mode)},
	})
	if err != nil {
		return err
	}

	log.Info().Int("exit_code", result.ExitCode).Dur("duration", result.Duration).Msg("Bundler finished")

	return nil
}
