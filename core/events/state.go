package events

import (
	"time"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/model"
)

// StateChangeEvent is published by the ambulance machine after every applied
// transition. Seq increases by one per transition of the same vehicle.
type StateChangeEvent struct {
	VehicleID string
	From      model.VehicleState
	To        model.VehicleState
	Cause     model.Event
	Requester string
	Seq       uint64
	Time      time.Time
}

// StateName returns the name of the new state, which is what status
// observers display.
func (e StateChangeEvent) StateName() string { return e.To.String() }
