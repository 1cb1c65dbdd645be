package events

import (
	"time"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/model"
)

// RequestEvent reports the outcome of a blocking request. Waited is the time
// spent blocked before the transition was applied or the wait was abandoned.
type RequestEvent struct {
	VehicleID string
	Kind      model.Event
	Requester string
	Granted   bool
	Err       error
	Waited    time.Duration
	Time      time.Time
}
