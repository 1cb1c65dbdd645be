package metrics

import (
	"time"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/model"
)

// TransitionRecord is one applied state change.
type TransitionRecord struct {
	VehicleID string
	From      model.VehicleState
	To        model.VehicleState
	Cause     model.Event
	Requester string
	Seq       uint64
	Time      time.Time
}

// MetricsSink records state transitions.
type MetricsSink interface {
	RecordTransition(rec TransitionRecord) error
}

// RequestRecord is the outcome of one blocking request.
type RequestRecord struct {
	VehicleID string
	Kind      model.Event
	Requester string
	Granted   bool
	Error     string
	Waited    time.Duration
	Time      time.Time
}

// RequestRecorder records request outcomes.
type RequestRecorder interface {
	RecordRequest(rec RequestRecord) error
}

// RunRecord marks the start or end of a simulation run.
type RunRecord struct {
	RunID   string
	Phase   string
	Clients int
	Clean   bool
	Forced  bool
	Time    time.Time
}

// RunRecorder records simulation runs.
type RunRecorder interface {
	RecordRun(rec RunRecord) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordTransition(TransitionRecord) error { return nil }
func (NopSink) RecordRequest(RequestRecord) error       { return nil }
func (NopSink) RecordRun(RunRecord) error               { return nil }
