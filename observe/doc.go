// Package observe provides observability primitives for the cache engine.
//
// It is a pure instrumentation library: structured logging, OpenTelemetry
// metrics and tracing, and exporter setup. The workspace provider and the
// retention engine wire an Observer in; nothing here performs cache work.
package observe
