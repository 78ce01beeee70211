package avl

// Exporter wiring mirrors the teacher's observability/exporter.go:
// one constructor for ad-hoc console inspection during development,
// one for scrape-based production use. Callers pass the resulting
// metric.MeterProvider to WithMeterProvider; a Tree never reaches
// into the global otel.SetMeterProvider state itself, so multiple
// trees in one process can be wired to different providers.

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// ShutdownFunc flushes and releases the resources a metrics exporter
// holds. Callers should invoke it during teardown, before Tree.Close.
type ShutdownFunc func(ctx context.Context) error

// NewConsoleMeterProvider periodically prints metrics to stdout.
// Intended for local development and tests, not production traffic.
func NewConsoleMeterProvider(interval, timeout time.Duration, opts ...stdoutmetric.Option) (*sdkmetric.MeterProvider, ShutdownFunc, error) {
	exporter, err := stdoutmetric.New(opts...)
	if err != nil {
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(interval),
		sdkmetric.WithTimeout(timeout),
	)))
	return mp, mp.Shutdown, nil
}

// NewPrometheusMeterProvider exposes metrics for scraping. The caller
// is responsible for serving promhttp.Handler() on whatever mux it
// already runs; this package has no HTTP server of its own.
func NewPrometheusMeterProvider() (*sdkmetric.MeterProvider, ShutdownFunc, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	return mp, mp.Shutdown, nil
}
