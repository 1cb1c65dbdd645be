// Package simulation runs concurrent clients and a maintenance requester
// against one ambulance.
//
// An Orchestrator moves through Idle, Running and ShuttingDown. Stopping a run
// is bounded twice: workers first get a soft cancellation that ends their
// sleeps and stops new requests, and if they do not finish within the
// graceful timeout a hard cancellation aborts requests still waiting inside
// the ambulance.
package simulation
