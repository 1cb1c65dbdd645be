package events

import "time"

// RunPhase identifies the lifecycle step announced by a RunEvent.
type RunPhase string

const (
	RunStarted RunPhase = "started"
	RunStopped RunPhase = "stopped"
)

// RunEvent is emitted by the simulation orchestrator.
type RunEvent struct {
	RunID   string
	Phase   RunPhase
	Clients int
	Clean   bool
	Forced  bool
	Time    time.Time
}
