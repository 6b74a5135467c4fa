// Package prometheus provides a Prometheus collector for goSession metrics.
//
// [NewPrometheusExporter] accepts a [goSession.AuthContext] and implements
// [prometheus.Collector]; mount [PrometheusExporter.Handler] or register the
// collector with an existing registry. Counter names are prefixed
// gosession_*_total; the single histogram is gosession_refresh_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate session state.
package prometheus
