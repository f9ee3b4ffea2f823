package exporters

import (
	"context"
	"strings"
	"testing"
)

// TestTracingExporter_UnknownKind verifies unknown exporter kinds are rejected.
func TestTracingExporter_UnknownKind(t *testing.T) {
	_, err := NewTracingExporter(context.Background(), "carrier-pigeon")
	if err == nil {
		t.Fatal("expected error for unknown exporter kind")
	}
	if !strings.Contains(err.Error(), "unknown trace exporter") {
		t.Errorf("expected 'unknown trace exporter' in error, got: %v", err)
	}
}

// TestTracingExporter_Stdout verifies the stdout span exporter builds.
func TestTracingExporter_Stdout(t *testing.T) {
	exp, err := NewTracingExporter(context.Background(), "stdout")
	if err != nil {
		t.Fatalf("failed to create stdout tracing exporter: %v", err)
	}
	if exp == nil {
		t.Fatal("expected non-nil exporter")
	}
}

// TestTracingExporter_NoneDiscards verifies "none" still yields a usable exporter.
func TestTracingExporter_NoneDiscards(t *testing.T) {
	for _, kind := range []string{"none", ""} {
		exp, err := NewTracingExporter(context.Background(), kind)
		if err != nil {
			t.Fatalf("kind %q: %v", kind, err)
		}
		if exp == nil {
			t.Fatalf("kind %q: expected non-nil exporter", kind)
		}
	}
}

// TestTracingExporter_OtlpNeedsEndpoint verifies OTLP is rejected without an
// endpoint in the environment.
func TestTracingExporter_OtlpNeedsEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")

	_, err := NewTracingExporter(context.Background(), "otlp")
	if err == nil {
		t.Fatal("expected error when no OTLP endpoint is configured")
	}
	if !strings.Contains(err.Error(), "endpoint") {
		t.Errorf("expected 'endpoint' in error, got: %v", err)
	}
}

// TestTracingExporter_OtlpWithEndpoint verifies the shared endpoint variable
// is honored.
func TestTracingExporter_OtlpWithEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4317")

	exp, err := NewTracingExporter(context.Background(), "otlp")
	if err != nil {
		t.Fatalf("failed to create OTLP exporter: %v", err)
	}
	if exp == nil {
		t.Fatal("expected non-nil exporter")
	}
}

// TestMetricsReader_Kinds verifies each local reader kind builds.
func TestMetricsReader_Kinds(t *testing.T) {
	for _, kind := range []string{"none", "", "stdout", "prometheus"} {
		reader, err := NewMetricsReader(context.Background(), kind)
		if err != nil {
			t.Fatalf("kind %q: %v", kind, err)
		}
		if reader == nil {
			t.Fatalf("kind %q: expected non-nil reader", kind)
		}
	}
}

// TestMetricsReader_UnknownKind verifies unknown reader kinds are rejected.
func TestMetricsReader_UnknownKind(t *testing.T) {
	_, err := NewMetricsReader(context.Background(), "statsd")
	if err == nil {
		t.Fatal("expected error for unknown metrics exporter kind")
	}
	if !strings.Contains(err.Error(), "unknown metrics exporter") {
		t.Errorf("expected 'unknown metrics exporter' in error, got: %v", err)
	}
}
