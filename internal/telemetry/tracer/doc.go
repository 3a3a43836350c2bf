// Package tracer configures OpenTelemetry tracing for the gateway.
//
// Init installs a global TracerProvider. With an OTLP endpoint configured,
// spans are batched to an otlptracehttp exporter; without one, spans are
// still created (so trace IDs propagate) but never exported.
package tracer
