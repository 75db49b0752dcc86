// Package prometheus renders goSession metrics in Prometheus text exposition
// format.
//
// [NewPrometheusExporter] wraps an [goSession.Engine] and exposes an
// [http.Handler] for a /metrics route. Counter names are gosession_*_total;
// the single histogram is gosession_decode_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
