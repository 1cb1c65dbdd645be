package mqtt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/events"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/model"
)

func TestTopics(t *testing.T) {
	tp := Topics{Prefix: "clinic", VehicleID: "amb-1"}
	assert.Equal(t, "clinic/amb-1/state", tp.State())
	assert.Equal(t, "clinic/amb-1/availability", tp.Availability())
	assert.Equal(t, "clinic/amb-1/cmd/return", tp.Return())
}

func TestFromStateChange(t *testing.T) {
	now := time.Now()
	m := FromStateChange(events.StateChangeEvent{
		VehicleID: "amb-1",
		From:      model.StateAvailable,
		To:        model.StateTransporting,
		Cause:     model.EventTransport,
		Requester: "client-1",
		Seq:       4,
		Time:      now,
	})
	assert.Equal(t, model.StateTransporting.String(), m.State)
	assert.Equal(t, model.StateAvailable.String(), m.From)
	assert.Equal(t, model.EventTransport.String(), m.Cause)
	assert.Equal(t, uint64(4), m.Seq)
	assert.Empty(t, m.MessageID)
}
