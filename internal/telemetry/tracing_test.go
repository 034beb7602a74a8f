package telemetry

import (
	"context"
	"testing"

	"github.com/Togather-Foundation/confdir/internal/config"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), config.TracingConfig{Enabled: false}, "test")

	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitTracingRejectsBadConfig(t *testing.T) {
	_, err := InitTracing(context.Background(), config.TracingConfig{Enabled: true, Exporter: "none", SampleRate: 1.5}, "test")
	require.Error(t, err)

	_, err = InitTracing(context.Background(), config.TracingConfig{Enabled: true, Exporter: "jaeger", SampleRate: 1}, "test")
	require.ErrorContains(t, err, "unsupported exporter")
}

func TestInitTracingNoopExporter(t *testing.T) {
	ctx := context.Background()
	shutdown, err := InitTracing(ctx, config.TracingConfig{Enabled: true, Exporter: "none", SampleRate: 1}, "test")
	require.NoError(t, err)

	_, span := GetTracer("telemetry-test").Start(ctx, "unit")
	require.True(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, shutdown(ctx))
}

func TestOTLPOptions(t *testing.T) {
	cfg := config.TracingConfig{OTLPEndpoint: "collector:4317"}
	require.Len(t, otlpOptions(cfg), 1)

	cfg.OTLPInsecure = true
	require.Len(t, otlpOptions(cfg), 2)
}

func TestNewSampler(t *testing.T) {
	for _, rate := range []float64{0, 0.25, 1} {
		sampler, err := newSampler(rate)
		require.NoError(t, err)
		require.NotNil(t, sampler)
	}

	_, err := newSampler(-0.1)
	require.Error(t, err)
}

func TestStartSpanUsesGlobalProvider(t *testing.T) {
	ctx := context.Background()
	shutdown, err := InitTracing(ctx, config.TracingConfig{Enabled: true, Exporter: "none", SampleRate: 1}, "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(ctx) })

	spanCtx, span := StartSpan(ctx, "calendar.link", attribute.String("event.id", "e_run"))
	defer span.End()

	require.True(t, span.SpanContext().IsValid())
	require.Equal(t, span.SpanContext().TraceID(), trace.SpanContextFromContext(spanCtx).TraceID())
}
