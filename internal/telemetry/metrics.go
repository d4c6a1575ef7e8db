package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/unibuild"
)

// Metrics holds all the OpenTelemetry metric instruments. Without a
// configured meter provider every instrument is a no-op.
type Metrics struct {
	// Build pipeline metrics
	BuildsTotal      metric.Int64Counter
	BuildErrorsTotal metric.Int64Counter
	BuildDuration    metric.Float64Histogram
	ArtifactsWritten metric.Int64Counter

	// Config metrics
	ConfigLoadsTotal   metric.Int64Counter
	RemoteFetchesTotal metric.Int64Counter

	// Doctor scan metrics
	ScansTotal           metric.Int64Counter
	ScanDuration         metric.Float64Histogram
	ScanCacheHitsTotal   metric.Int64Counter
	ScanCacheMissTotal   metric.Int64Counter
	DuplicatesFoundTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if
// necessary.
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	// Build pipeline metrics
	m.BuildsTotal, _ = meter.Int64Counter(
		"unibuild.builds.total",
		metric.WithDescription("Total number of build config compilations"),
		metric.WithUnit("{build}"),
	)

	m.BuildErrorsTotal, _ = meter.Int64Counter(
		"unibuild.builds.errors.total",
		metric.WithDescription("Total number of failed build config compilations"),
		metric.WithUnit("{error}"),
	)

	m.BuildDuration, _ = meter.Float64Histogram(
		"unibuild.builds.duration",
		metric.WithDescription("Duration of build config compilations"),
		metric.WithUnit("ms"),
	)

	m.ArtifactsWritten, _ = meter.Int64Counter(
		"unibuild.artifacts.written.total",
		metric.WithDescription("Total number of artifact files written"),
		metric.WithUnit("{file}"),
	)

	// Config metrics
	m.ConfigLoadsTotal, _ = meter.Int64Counter(
		"unibuild.config.loads.total",
		metric.WithDescription("Total number of config documents loaded"),
		metric.WithUnit("{config}"),
	)

	m.RemoteFetchesTotal, _ = meter.Int64Counter(
		"unibuild.config.remote_fetches.total",
		metric.WithDescription("Total number of remote config fetches"),
		metric.WithUnit("{fetch}"),
	)

	// Doctor scan metrics
	m.ScansTotal, _ = meter.Int64Counter(
		"unibuild.scans.total",
		metric.WithDescription("Total number of doctor scans"),
		metric.WithUnit("{scan}"),
	)

	m.ScanDuration, _ = meter.Float64Histogram(
		"unibuild.scans.duration",
		metric.WithDescription("Duration of doctor scans"),
		metric.WithUnit("ms"),
	)

	m.ScanCacheHitsTotal, _ = meter.Int64Counter(
		"unibuild.scans.cache_hits.total",
		metric.WithDescription("Total number of scans served from the cache"),
		metric.WithUnit("{scan}"),
	)

	m.ScanCacheMissTotal, _ = meter.Int64Counter(
		"unibuild.scans.cache_misses.total",
		metric.WithDescription("Total number of scans that missed the cache"),
		metric.WithUnit("{scan}"),
	)

	m.DuplicatesFoundTotal, _ = meter.Int64Counter(
		"unibuild.scans.duplicates.total",
		metric.WithDescription("Total number of duplicated packages reported"),
		metric.WithUnit("{package}"),
	)

	return m
}
