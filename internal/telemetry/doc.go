// Package telemetry provides Prometheus metrics and OpenTelemetry spans for
// registry fetches, device authorization polls, and Git hosting calls.
//
// Metrics are created against an explicit prometheus.Registerer so tests and
// embedders can isolate them. All recording methods are nil-safe: components
// accept a *Metrics that may be nil when metrics are not wanted.
//
// Spans come from the global OpenTelemetry tracer provider, which is a no-op
// unless the embedding application installs one:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
package telemetry
