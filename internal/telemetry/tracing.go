// Package telemetry sets up OpenTelemetry tracing for crawl runs.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// Exporter names accepted by NewExporter.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// InitTracerProvider installs a global tracer provider for serviceName. Spans
// are batched to each exporter; with none, spans still carry trace ids that the
// crawl attaches to its log lines.
func InitTracerProvider(
	ctx context.Context,
	serviceName string,
	exporters ...sdktrace.SpanExporter,
) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	for _, exp := range exporters {
		if exp != nil {
			opts = append(opts, sdktrace.WithBatcher(exp))
		}
	}
	tp := sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp, nil
}

// NewExporter builds the span exporter named by kind. The stdout exporter writes
// JSON spans to the file at path, or to stderr when path is empty. The returned
// closer releases the file and is never nil.
func NewExporter(kind, path string) (sdktrace.SpanExporter, io.Closer, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", ExporterNone:
		return nil, nopCloser{}, nil
	case ExporterStdout:
		var (
			w      io.Writer = os.Stderr
			closer io.Closer = nopCloser{}
		)
		if path != "" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, nil, fmt.Errorf("create trace output dir: %w", err)
			}
			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, nil, fmt.Errorf("open trace output: %w", err)
			}
			w, closer = f, f
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			_ = closer.Close()
			return nil, nil, fmt.Errorf("create stdout exporter: %w", err)
		}
		return exp, closer, nil
	default:
		return nil, nil, fmt.Errorf("unknown tracing exporter %q", kind)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
