package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInitTracerRequiresServiceName(t *testing.T) {
	_, err := InitTracer(context.Background(), Config{})
	require.Error(t, err)
}

func TestInitTracerRejectsUnknownExporter(t *testing.T) {
	_, err := InitTracer(context.Background(), Config{ServiceName: "x", Exporter: "jaeger"})
	require.Error(t, err)
}

func TestInitTracerNoopExport(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), Config{
		ServiceName: "billing-relay-test",
		Environment: "test",
		Exporter:    "none",
	})
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	ctx, span := StartSpan(context.Background(), "unit", attribute.String("k", "v"))
	defer span.End()
	assert.True(t, span.SpanContext().IsValid())
	assert.NotNil(t, ctx)

	RecordError(span, errors.New("boom"))
	RecordError(span, nil)
}

func TestSamplerFromEnv(t *testing.T) {
	assert.Equal(t, "AlwaysOnSampler", samplerFromEnv("always_on", "").Description())
	assert.Equal(t, "AlwaysOffSampler", samplerFromEnv("always_off", "").Description())
	assert.Equal(t, "TraceIDRatioBased{0.25}", samplerFromEnv("traceidratio", "0.25").Description())
	assert.Equal(t, "AlwaysOnSampler", samplerFromEnv("traceidratio", "7").Description())
	assert.Contains(t, samplerFromEnv("bogus", "").Description(), "ParentBased")
}
