package commands

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/unibuild/internal/logger"
	"github.com/wolfeidau/unibuild/internal/scan"
	"github.com/wolfeidau/unibuild/internal/scan/cache"
	"github.com/wolfeidau/unibuild/internal/telemetry"
	"github.com/wolfeidau/unibuild/pkg/builder"
)

// scanCacheRetention bounds how long unused cached reports stay on disk.
const scanCacheRetention = 7 * 24 * time.Hour

type DoctorCmd struct {
	ConfigFlags `embed:""`

	JSON        bool          `help:"Print the report as JSON." default:"false"`
	SVG         string        `help:"Write an SVG size chart to the given path." type:"path"`
	Top         int           `help:"Largest modules listed per entry." default:"10"`
	Concurrency int           `help:"Entries scanned in parallel." default:"4"`
	External    []string      `help:"Imports resolved as external, never followed."`
	NoCache     bool          `help:"Ignore cached reports and scan fresh." default:"false"`
	MaxAge      time.Duration `help:"Lifetime of cached reports." default:"1h"`
	Tracing     bool          `help:"enable tracing" default:"false" env:"UNIBUILD_TRACING"`
}

func (c *DoctorCmd) Run(ctx context.Context, globals *Globals) error {
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

	n, _, info, err := loadNormalized(ctx, &c.ConfigFlags, "")
	if err != nil {
		return err
	}

	store, err := c.openStore()
	if err != nil {
		return err
	}

	key := scanKey(info.Fingerprint, n)

	var report *scan.Report
	if store != nil && !c.NoCache {
		cached, err := store.Get(key, c.MaxAge)
		switch {
		case err == nil:
			log.Debug().Str("key", key).Msg("using cached scan report")
			metrics.ScanCacheHitsTotal.Add(ctx, 1)
			report = cached
		case errors.Is(err, cache.ErrMiss):
			metrics.ScanCacheMissTotal.Add(ctx, 1)
		default:
			return err
		}
	}

	if report == nil {
		started := time.Now()

		report, err = scan.Run(ctx, n, scan.Options{
			Concurrency: c.Concurrency,
			TopInputs:   c.Top,
			External:    c.External,
		})
		if err != nil {
			return err
		}

		metrics.ScansTotal.Add(ctx, 1)
		metrics.ScanDuration.Record(ctx, float64(time.Since(started).Milliseconds()))
		metrics.DuplicatesFoundTotal.Add(ctx, int64(len(report.Duplicates)))

		if store != nil && !c.NoCache {
			if err := store.Put(key, report); err != nil {
				log.Warn().Err(err).Msg("failed to cache scan report")
			}
			if err := store.Sweep(scanCacheRetention); err != nil {
				log.Warn().Err(err).Msg("failed to sweep scan cache")
			}
		}
	}

	if c.JSON {
		if err := scan.RenderJSON(os.Stdout, report); err != nil {
			return err
		}
	} else {
		if err := scan.Render(os.Stdout, report); err != nil {
			return err
		}
	}

	if c.SVG != "" {
		if err := c.writeSVG(report); err != nil {
			return err
		}
	}

	return nil
}

// openStore returns the on disk report cache, or nil when no user cache dir
// exists so the scan still runs uncached.
func (c *DoctorCmd) openStore() (*cache.Store, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		log.Warn().Err(err).Msg("no user cache dir, scanning without cache")
		return nil, nil
	}

	return cache.NewStore(filepath.Join(cacheDir, "unibuild", "scan")), nil
}

func (c *DoctorCmd) writeSVG(report *scan.Report) error {
	f, err := os.Create(c.SVG)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", c.SVG, err)
	}
	defer f.Close()

	if err := scan.RenderSVG(f, report); err != nil {
		return err
	}

	log.Info().Str("path", c.SVG).Msg("Wrote SVG report")

	return nil
}

// scanKey identifies a scan by config fingerprint, target and the entry
// files' sizes and modification times, so config or entry edits invalidate
// cached reports. Edits deeper in the import graph are caught by the cache
// max age instead.
func scanKey(fingerprint string, n *builder.Normalized) string {
	h := sha256.New()

	io.WriteString(h, fingerprint)
	io.WriteString(h, string(n.Target))

	for _, name := range slices.Sorted(maps.Keys(n.Entries)) {
		io.WriteString(h, name)
		for _, file := range n.Entries[name] {
			io.WriteString(h, file)
			if info, err := os.Stat(filepath.Join(n.Context, file)); err == nil {
				fmt.Fprintf(h, "%d:%d", info.Size(), info.ModTime().UnixNano())
			}
		}
	}

	sum := h.Sum(nil)

	return base58.Encode(sum[:8])
}
