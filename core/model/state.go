package model

import (
	"fmt"
	"strings"
)

// VehicleState is the operational state of the ambulance. Exactly one state is
// current at any time.
type VehicleState int

const (
	StateAvailable VehicleState = iota
	StateOnHomeVisit
	StateTransporting
	StateInMaintenance
	StateReturningEmpty
	StateReturningFromMaintenance
)

// States lists every vehicle state in declaration order.
var States = []VehicleState{
	StateAvailable,
	StateOnHomeVisit,
	StateTransporting,
	StateInMaintenance,
	StateReturningEmpty,
	StateReturningFromMaintenance,
}

type capability struct {
	name        string
	homeVisit   bool
	transport   bool
	maintenance bool
}

// capabilities is indexed by VehicleState. ReturningEmpty accepts patient
// requests so an empty vehicle can be redirected; ReturningFromMaintenance
// must reach the clinic first.
var capabilities = [...]capability{
	StateAvailable:                {name: "Available", homeVisit: true, transport: true, maintenance: true},
	StateOnHomeVisit:              {name: "OnHomeVisit"},
	StateTransporting:             {name: "Transporting"},
	StateInMaintenance:            {name: "InMaintenance"},
	StateReturningEmpty:           {name: "ReturningEmpty", homeVisit: true, transport: true},
	StateReturningFromMaintenance: {name: "ReturningFromMaintenance"},
}

// Valid reports whether s is one of the declared states.
func (s VehicleState) Valid() bool {
	return s >= StateAvailable && int(s) < len(capabilities)
}

func (s VehicleState) String() string {
	if !s.Valid() {
		return fmt.Sprintf("VehicleState(%d)", int(s))
	}
	return capabilities[s].name
}

// AcceptsHomeVisit reports whether a home visit can start in this state.
func (s VehicleState) AcceptsHomeVisit() bool { return s.Valid() && capabilities[s].homeVisit }

// AcceptsTransport reports whether a patient transport can start in this state.
func (s VehicleState) AcceptsTransport() bool { return s.Valid() && capabilities[s].transport }

// AcceptsMaintenance reports whether the vehicle can be sent to the workshop.
func (s VehicleState) AcceptsMaintenance() bool { return s.Valid() && capabilities[s].maintenance }

// Accepts reports whether the event can be applied in this state. Return
// events are always accepted; they may still be a no-op.
func (s VehicleState) Accepts(e Event) bool {
	switch e {
	case EventHomeVisit:
		return s.AcceptsHomeVisit()
	case EventTransport:
		return s.AcceptsTransport()
	case EventMaintenance:
		return s.AcceptsMaintenance()
	case EventReturn:
		return s.Valid()
	default:
		return false
	}
}

// Busy reports whether the vehicle is performing a job.
func (s VehicleState) Busy() bool {
	return s == StateOnHomeVisit || s == StateTransporting || s == StateInMaintenance
}

// InTransit reports whether the vehicle is driving back to the clinic.
func (s VehicleState) InTransit() bool {
	return s == StateReturningEmpty || s == StateReturningFromMaintenance
}

// MarshalText encodes the state by name.
func (s VehicleState) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid vehicle state %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *VehicleState) UnmarshalText(b []byte) error {
	v, err := ParseVehicleState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseVehicleState converts a state name, case-insensitively.
func ParseVehicleState(name string) (VehicleState, error) {
	for _, st := range States {
		if strings.EqualFold(st.String(), strings.TrimSpace(name)) {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown vehicle state %q", name)
}
