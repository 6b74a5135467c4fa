// Package otel provides OpenTelemetry metric exporter bindings for goSession
// counters and histograms.
//
// [NewOTelExporter] registers an Int64ObservableCounter for each goSession
// counter and an Int64ObservableGauge per refresh latency bucket. A single
// callback reads [goSession.AuthContext.MetricsSnapshot] on each collection
// cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate session state.
package otel
