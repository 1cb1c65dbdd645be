// Package infra holds the adapters that talk to the outside world: the
// zerolog logger, Prometheus and InfluxDB sinks, the Sentry monitor, the MQTT
// status client and the SQLite associate store. Core packages define the
// interfaces; nothing under core imports infra.
package infra
