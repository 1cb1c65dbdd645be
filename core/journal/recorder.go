package journal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/events"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/logger"
	"github.com/marcoioli/proyecto-programacion3-grupo12/internal/eventbus"
)

// FromEvent converts a bus event into a record. The boolean is false for
// events the journal does not keep.
func FromEvent(ev eventbus.Event) (Record, bool) {
	rec := Record{ID: uuid.NewString()}
	switch e := ev.(type) {
	case events.StateChangeEvent:
		rec.Type = TypeTransition
		rec.Timestamp = e.Time
		rec.VehicleID = e.VehicleID
		rec.From = e.From.String()
		rec.To = e.To.String()
		rec.Cause = e.Cause.String()
		rec.Requester = e.Requester
		rec.Seq = e.Seq
	case events.RequestEvent:
		rec.Type = TypeRequest
		rec.Timestamp = e.Time
		rec.VehicleID = e.VehicleID
		rec.Cause = e.Kind.String()
		rec.Requester = e.Requester
		rec.Granted = e.Granted
		rec.WaitMS = float64(e.Waited) / float64(time.Millisecond)
		if e.Err != nil {
			rec.Error = e.Err.Error()
		}
	case events.RunEvent:
		rec.Type = TypeRun
		rec.Timestamp = e.Time
		rec.RunID = e.RunID
		rec.Phase = string(e.Phase)
		rec.Forced = e.Forced
	default:
		return Record{}, false
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	return rec, true
}

// StartRecorder appends every journaled bus event to store until ctx is done
// or the bus is closed. The returned channel is closed when it exits.
func StartRecorder(ctx context.Context, bus eventbus.EventBus, store Store, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || store == nil {
		close(done)
		return done
	}
	log = logger.OrNop(log)
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				rec, keep := FromEvent(ev)
				if !keep {
					continue
				}
				if err := store.Append(ctx, rec); err != nil {
					log.Errorf("journal append %s: %v", rec.Type, err)
				}
			}
		}
	}()
	return done
}
