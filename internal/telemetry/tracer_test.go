package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"docindex/config"
)

func TestSetup_DisabledIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TelemetryConfig{Enabled: false}, "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestNewProvider_ExportsSpans(t *testing.T) {
	ctx := context.Background()
	exporter := tracetest.NewInMemoryExporter()
	cfg := config.DefaultConfig().Telemetry

	tp, err := NewProvider(ctx, cfg, "1.2.3", exporter)
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(ctx, "ingest")
	span.End()
	require.NoError(t, tp.ForceFlush(ctx))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "ingest", spans[0].Name)

	var service string
	for _, kv := range spans[0].Resource.Attributes() {
		if kv.Key == semconv.ServiceNameKey {
			service = kv.Value.AsString()
		}
	}
	assert.Equal(t, "docindex", service)
	require.NoError(t, tp.Shutdown(ctx))
}

func TestNewProvider_ZeroRatioDropsSpans(t *testing.T) {
	ctx := context.Background()
	exporter := tracetest.NewInMemoryExporter()
	cfg := config.DefaultConfig().Telemetry
	cfg.SampleRatio = 0

	tp, err := NewProvider(ctx, cfg, "dev", exporter)
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(ctx, "query")
	span.End()
	require.NoError(t, tp.ForceFlush(ctx))
	assert.Empty(t, exporter.GetSpans())
	require.NoError(t, tp.Shutdown(ctx))
}
