// Package otel binds goSession counters and the decode latency histogram to
// OpenTelemetry observable instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter and one
// Int64ObservableGauge per histogram bucket. A single callback reads
// [goSession.Engine.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
