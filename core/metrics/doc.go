// Package metrics defines the sinks that record allocation outcomes.
// Sinks such as the Prometheus and InfluxDB implementations in infra/metrics
// record phase resolutions and may opt into proposal, completion and stall
// events by implementing the matching recorder interface. NewMetricsSink
// returns a MultiSink automatically when several sinks are configured.
package metrics
