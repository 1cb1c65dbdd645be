package model

import (
	"fmt"
	"strings"
)

// Event drives a vehicle state transition.
type Event int

const (
	EventHomeVisit Event = iota + 1
	EventTransport
	EventMaintenance
	// EventReturn completes the current trip leg. It never blocks.
	EventReturn
)

var eventNames = map[Event]string{
	EventHomeVisit:   "home_visit",
	EventTransport:   "transport",
	EventMaintenance: "maintenance",
	EventReturn:      "return",
}

func (e Event) String() string {
	if n, ok := eventNames[e]; ok {
		return n
	}
	return fmt.Sprintf("Event(%d)", int(e))
}

// IsRequest reports whether the event is one of the blocking requests.
func (e Event) IsRequest() bool {
	return e == EventHomeVisit || e == EventTransport || e == EventMaintenance
}

// MarshalText encodes the event by name.
func (e Event) MarshalText() ([]byte, error) {
	if _, ok := eventNames[e]; !ok {
		return nil, fmt.Errorf("invalid event %d", int(e))
	}
	return []byte(e.String()), nil
}

// UnmarshalText decodes an event name.
func (e *Event) UnmarshalText(b []byte) error {
	v, err := ParseEvent(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// ParseEvent converts an event name such as "home_visit" or "transport".
// Dashes are accepted in place of underscores.
func ParseEvent(name string) (Event, error) {
	n := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for e, s := range eventNames {
		if s == n {
			return e, nil
		}
	}
	return 0, fmt.Errorf("unknown event %q", name)
}

// returnTargets maps each state to the state reached on EventReturn.
var returnTargets = map[VehicleState]VehicleState{
	StateOnHomeVisit:              StateReturningEmpty,
	StateTransporting:             StateReturningEmpty,
	StateReturningEmpty:           StateAvailable,
	StateInMaintenance:            StateReturningFromMaintenance,
	StateReturningFromMaintenance: StateAvailable,
}

// Next returns the state reached by applying e in s. The boolean is false when
// the event does not apply: a request the state cannot accept, or a return
// while already available. In that case s is returned unchanged.
func Next(s VehicleState, e Event) (VehicleState, bool) {
	if !s.Valid() {
		return s, false
	}
	switch e {
	case EventHomeVisit:
		if s.AcceptsHomeVisit() {
			return StateOnHomeVisit, true
		}
	case EventTransport:
		if s.AcceptsTransport() {
			return StateTransporting, true
		}
	case EventMaintenance:
		if s.AcceptsMaintenance() {
			return StateInMaintenance, true
		}
	case EventReturn:
		if to, ok := returnTargets[s]; ok {
			return to, true
		}
	}
	return s, false
}
