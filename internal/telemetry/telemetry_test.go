package telemetry

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestInstruments(t *testing.T) (*Instruments, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return New(tp, mp), spans, reader
}

func findSum(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%v is %T", name, m.Data)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestInstruments_HighlightStart(t *testing.T) {
	t.Parallel()

	in, spans, reader := newTestInstruments(t)
	ctx := context.Background()

	_, done := in.HighlightStart(ctx, "go", "monokai")
	done(nil)
	_, done = in.HighlightStart(ctx, "go", "monokai")
	done(errors.New("great sadness"))

	ended := spans.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "lazyhl.highlight", ended[0].Name())
	assert.Equal(t, codes.Unset, ended[0].Status().Code)
	assert.Equal(t, codes.Error, ended[1].Status().Code)
	assert.Equal(t, "great sadness", ended[1].Status().Description)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	assert.Equal(t, int64(2), findSum(t, rm, "lazyhl.highlight.count"))
	assert.Equal(t, int64(1), findSum(t, rm, "lazyhl.highlight.errors"))
}

func TestInstruments_FactoryRun(t *testing.T) {
	t.Parallel()

	in, _, reader := newTestInstruments(t)
	ctx := context.Background()
	in.FactoryRun(ctx, "highlighter")
	in.FactoryRun(ctx, "options")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	assert.Equal(t, int64(2), findSum(t, rm, "lazyhl.factory.runs"))
}

func TestInstruments_nil(t *testing.T) {
	t.Parallel()

	var in *Instruments
	ctx := context.Background()
	got, done := in.HighlightStart(ctx, "go", "")
	assert.Equal(t, ctx, got)
	done(nil)
	in.FactoryRun(ctx, "x")
}

func TestSetup(t *testing.T) {
	t.Parallel()

	var buff bytes.Buffer
	ctx := context.Background()
	p, err := Setup(ctx, Config{
		Traces:  ExporterStdout,
		Metrics: ExporterNone,
		Writer:  &buff,
	})
	require.NoError(t, err)
	assert.False(t, p.Prometheus)

	_, done := p.Instruments().HighlightStart(ctx, "go", "github")
	done(nil)
	require.NoError(t, p.Shutdown(ctx))

	assert.Contains(t, buff.String(), "lazyhl.highlight")
}

func TestSetup_unknownExporter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, err := Setup(ctx, Config{Traces: "carrier-pigeon"})
	assert.ErrorContains(t, err, `unknown trace exporter: "carrier-pigeon"`)

	_, err = Setup(ctx, Config{Metrics: "carrier-pigeon"})
	assert.ErrorContains(t, err, `unknown metrics exporter: "carrier-pigeon"`)
}
