// Package infra holds the adapters behind the core interfaces: the MQTT
// provider transport and gateway, Prometheus and InfluxDB sinks, Sentry
// monitoring, OpenTelemetry tracing and the zerolog/logrus loggers. Core
// packages never import infra.
package infra
