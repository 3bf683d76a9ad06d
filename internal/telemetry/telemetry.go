// Package telemetry records metrics and traces for highlighting.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "go.abhg.dev/lazyhl"

// Instruments holds the OpenTelemetry instruments
// for highlight calls and factory runs.
//
// A nil *Instruments is valid and records nothing.
type Instruments struct {
	tracer trace.Tracer

	highlights metric.Int64Counter
	errors     metric.Int64Counter
	duration   metric.Float64Histogram
	factories  metric.Int64Counter
}

// New builds instruments from the given providers.
// Nil providers fall back to the global ones.
func New(tp trace.TracerProvider, mp metric.MeterProvider) *Instruments {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	in := &Instruments{tracer: tp.Tracer(instrumentationName)}

	var err error
	in.highlights, err = meter.Int64Counter(
		"lazyhl.highlight.count",
		metric.WithDescription("Number of highlight calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		otel.Handle(err)
	}

	in.errors, err = meter.Int64Counter(
		"lazyhl.highlight.errors",
		metric.WithDescription("Number of failed highlight calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		otel.Handle(err)
	}

	in.duration, err = meter.Float64Histogram(
		"lazyhl.highlight.duration",
		metric.WithDescription("Duration of highlight calls"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		otel.Handle(err)
	}

	in.factories, err = meter.Int64Counter(
		"lazyhl.factory.runs",
		metric.WithDescription("Number of times a memoized factory ran"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		otel.Handle(err)
	}

	return in
}

// HighlightStart begins recording a highlight call.
// Call the returned function with the call's error when it finishes.
func (in *Instruments) HighlightStart(ctx context.Context, lang, theme string) (context.Context, func(error)) {
	if in == nil {
		return ctx, func(error) {}
	}

	attrs := []attribute.KeyValue{
		attribute.String("lazyhl.lang", lang),
		attribute.String("lazyhl.theme", theme),
	}
	ctx, span := in.tracer.Start(ctx, "lazyhl.highlight", trace.WithAttributes(attrs...))
	start := time.Now()

	return ctx, func(err error) {
		opt := metric.WithAttributes(attrs...)
		in.highlights.Add(ctx, 1, opt)
		in.duration.Record(ctx, float64(time.Since(start))/float64(time.Millisecond), opt)
		if err != nil {
			in.errors.Add(ctx, 1, opt)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// FactoryRun records a run of the memoized factory with the given name.
func (in *Instruments) FactoryRun(ctx context.Context, name string) {
	if in == nil {
		return
	}

	in.factories.Add(ctx, 1, metric.WithAttributes(attribute.String("lazyhl.factory", name)))
}
