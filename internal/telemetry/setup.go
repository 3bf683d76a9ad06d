package telemetry

import (
	"context"
	"errors"
	"io"

	"braces.dev/errtrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config selects exporters for traces and metrics.
type Config struct {
	Traces  string    // name of the trace exporter
	Metrics string    // name of the metrics exporter
	Writer  io.Writer // destination for stdout exporters
}

// Providers are the SDK providers built by [Setup].
type Providers struct {
	Tracer *sdktrace.TracerProvider
	Meter  *sdkmetric.MeterProvider

	// Prometheus reports whether metrics are exported
	// through the default Prometheus registry.
	Prometheus bool
}

// Setup builds tracer and meter providers for cfg.
// Callers must Shutdown the providers when they're done.
func Setup(ctx context.Context, cfg Config) (*Providers, error) {
	w := cfg.Writer
	if w == nil {
		w = io.Discard
	}

	spans, err := NewTracingExporter(ctx, cfg.Traces, w)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	reader, err := NewMetricsReader(ctx, cfg.Metrics, w)
	if err != nil {
		return nil, errtrace.Wrap(errors.Join(err, spans.Shutdown(ctx)))
	}

	return &Providers{
		Tracer:     sdktrace.NewTracerProvider(sdktrace.WithBatcher(spans)),
		Meter:      sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		Prometheus: cfg.Metrics == ExporterPrometheus,
	}, nil
}

// Instruments builds [Instruments] backed by these providers.
func (p *Providers) Instruments() *Instruments {
	return New(p.Tracer, p.Meter)
}

// Shutdown flushes and stops both providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	return errtrace.Wrap(errors.Join(
		p.Tracer.Shutdown(ctx),
		p.Meter.Shutdown(ctx),
	))
}
