// Package mqtt declares the status messages the service broadcasts over MQTT.
// The broker connection lives in infra/mqtt.
package mqtt

import (
	"fmt"
	"time"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/events"
)

// Availability payloads published on the availability topic. Offline is also
// the last will of the connection.
const (
	Online  = "online"
	Offline = "offline"
)

// StatusMessage is the retained payload of the state topic.
type StatusMessage struct {
	MessageID string    `json:"message_id"`
	VehicleID string    `json:"vehicle_id"`
	State     string    `json:"state"`
	From      string    `json:"from"`
	Cause     string    `json:"cause"`
	Requester string    `json:"requester"`
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
}

// FromStateChange maps a transition event to its status message. MessageID is
// left for the publisher to assign.
func FromStateChange(e events.StateChangeEvent) StatusMessage {
	return StatusMessage{
		VehicleID: e.VehicleID,
		State:     e.To.String(),
		From:      e.From.String(),
		Cause:     e.Cause.String(),
		Requester: e.Requester,
		Seq:       e.Seq,
		Timestamp: e.Time,
	}
}

// Publisher broadcasts the ambulance status.
type Publisher interface {
	PublishStatus(StatusMessage) error
}

// Topics builds the topic names of one vehicle under a prefix.
type Topics struct {
	Prefix    string
	VehicleID string
}

func (t Topics) base() string { return fmt.Sprintf("%s/%s", t.Prefix, t.VehicleID) }

// State is the retained status topic.
func (t Topics) State() string { return t.base() + "/state" }

// Availability carries Online or Offline.
func (t Topics) Availability() string { return t.base() + "/availability" }

// Return receives arrival signals from the crew.
func (t Topics) Return() string { return t.base() + "/cmd/return" }
