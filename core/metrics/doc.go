// Package metrics defines the sinks that record control-cycle results for
// observability. Sinks like the Prometheus and InfluxDB ones in infra/metrics
// register themselves in a factory and can be combined with NewMultiSink;
// NewMetricsSink returns a MultiSink automatically when several sinks are
// configured. Optional recorder interfaces are discovered by type assertion.
package metrics
