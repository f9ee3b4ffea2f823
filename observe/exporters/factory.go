// Package exporters constructs the OpenTelemetry exporters the cache
// engine's telemetry can ship to.
package exporters

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// otlpEndpoint resolves the collector endpoint for a signal, preferring
// the signal-specific variable over the shared one.
func otlpEndpoint(signalVar string) string {
	if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
		return ep
	}
	return os.Getenv(signalVar)
}

// NewTracingExporter builds the span exporter named by kind: "stdout",
// "otlp", or "none". An empty kind behaves like "none".
func NewTracingExporter(ctx context.Context, kind string) (sdktrace.SpanExporter, error) {
	switch kind {
	case "none", "":
		return stdouttrace.New(stdouttrace.WithWriter(io.Discard))
	case "stdout":
		return stdouttrace.New(stdouttrace.WithWriter(os.Stdout))
	case "otlp":
		if otlpEndpoint("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT") == "" {
			return nil, fmt.Errorf("exporters: no OTLP trace endpoint in environment")
		}
		return otlptracegrpc.New(ctx)
	default:
		return nil, fmt.Errorf("exporters: unknown trace exporter %q", kind)
	}
}

// NewMetricsReader builds the metrics reader named by kind: "stdout",
// "otlp", "prometheus", or "none". An empty kind behaves like "none".
func NewMetricsReader(ctx context.Context, kind string) (sdkmetric.Reader, error) {
	switch kind {
	case "none", "":
		return discardingReader()
	case "stdout":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stdout))
		if err != nil {
			return nil, fmt.Errorf("exporters: stdout metrics: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	case "otlp":
		if otlpEndpoint("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT") == "" {
			return nil, fmt.Errorf("exporters: no OTLP metrics endpoint in environment")
		}
		exp, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("exporters: otlp metrics: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	case "prometheus":
		exp, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("exporters: prometheus: %w", err)
		}
		return exp, nil
	default:
		return nil, fmt.Errorf("exporters: unknown metrics exporter %q", kind)
	}
}

func discardingReader() (sdkmetric.Reader, error) {
	exp, err := stdoutmetric.New(stdoutmetric.WithWriter(io.Discard))
	if err != nil {
		return nil, err
	}
	return sdkmetric.NewPeriodicReader(exp), nil
}
