package telemetry

import (
	"context"
	"io"

	"braces.dev/errtrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Exporter names accepted by [NewTracingExporter] and [NewMetricsReader].
const (
	ExporterNone       = "none"
	ExporterStdout     = "stdout"
	ExporterOTLP       = "otlp"
	ExporterPrometheus = "prometheus"
)

// NewTracingExporter builds a span exporter by name.
// stdout writes to w.
// otlp is configured by the standard OTEL_EXPORTER_OTLP_* variables.
func NewTracingExporter(ctx context.Context, name string, w io.Writer) (sdktrace.SpanExporter, error) {
	switch name {
	case ExporterStdout:
		return errtrace.Wrap2(stdouttrace.New(stdouttrace.WithWriter(w)))
	case ExporterOTLP:
		return errtrace.Wrap2(otlptracegrpc.New(ctx))
	case ExporterNone, "":
		return errtrace.Wrap2(stdouttrace.New(stdouttrace.WithWriter(io.Discard)))
	default:
		return nil, errtrace.Errorf("unknown trace exporter: %q", name)
	}
}

// NewMetricsReader builds a metrics reader by name.
// stdout writes to w.
// prometheus registers with the default Prometheus registry.
func NewMetricsReader(ctx context.Context, name string, w io.Writer) (sdkmetric.Reader, error) {
	switch name {
	case ExporterStdout:
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			return nil, errtrace.Wrap(err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	case ExporterOTLP:
		exp, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, errtrace.Wrap(err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	case ExporterPrometheus:
		return errtrace.Wrap2(prometheus.New())

	case ExporterNone, "":
		return sdkmetric.NewManualReader(), nil

	default:
		return nil, errtrace.Errorf("unknown metrics exporter: %q", name)
	}
}
