// Package metrics defines the sinks that record ambulance activity for
// observability. Every sink records state transitions; sinks that also
// implement RequestRecorder or RunRecorder receive request outcomes and
// simulation run boundaries. Sinks are built from configuration through the
// registry in factory.go and combined with NewMultiSink when more than one is
// configured. Concrete sinks live in infra/metrics.
package metrics
