package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracerProviderExportsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp, err := InitTracerProvider(context.Background(), "malcrawl-test", exporter)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "unit")
	require.True(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, tp.ForceFlush(context.Background()))
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, "unit", spans[0].Name)
	require.NoError(t, tp.Shutdown(context.Background()))
}

func TestNewExporterNone(t *testing.T) {
	exp, closer, err := NewExporter("", "")
	require.NoError(t, err)
	require.Nil(t, exp)
	require.NoError(t, closer.Close())
}

func TestNewExporterRejectsUnknown(t *testing.T) {
	_, _, err := NewExporter("zipkin", "")
	require.Error(t, err)
}

func TestStdoutExporterWritesSpansToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces", "spans.json")
	exp, closer, err := NewExporter(ExporterStdout, path)
	require.NoError(t, err)
	require.NotNil(t, exp)

	tp, err := InitTracerProvider(context.Background(), "malcrawl-test", exp)
	require.NoError(t, err)
	_, span := tp.Tracer("test").Start(context.Background(), "crawl.character")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "crawl.character")
}
