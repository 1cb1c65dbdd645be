package metrics

import (
	"context"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/events"
	coremetrics "github.com/marcoioli/proyecto-programacion3-grupo12/core/metrics"
	"github.com/marcoioli/proyecto-programacion3-grupo12/infra/logger"
	"github.com/marcoioli/proyecto-programacion3-grupo12/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for events.
// It stops when the context is canceled or the bus is closed. The returned
// channel is closed once the collector has exited.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("metrics-collector")
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
				if err := collect(ev, sink); err != nil {
					log.Warnf("record %T: %v", ev, err)
				}
			}
		}
	}()
	return done
}

func collect(ev eventbus.Event, sink coremetrics.MetricsSink) error {
	switch e := ev.(type) {
	case events.StateChangeEvent:
		return sink.RecordTransition(coremetrics.TransitionRecord{
			VehicleID: e.VehicleID,
			From:      e.From,
			To:        e.To,
			Cause:     e.Cause,
			Requester: e.Requester,
			Seq:       e.Seq,
			Time:      e.Time,
		})
	case events.RequestEvent:
		r, ok := sink.(coremetrics.RequestRecorder)
		if !ok {
			return nil
		}
		errStr := ""
		if e.Err != nil {
			errStr = e.Err.Error()
		}
		return r.RecordRequest(coremetrics.RequestRecord{
			VehicleID: e.VehicleID,
			Kind:      e.Kind,
			Requester: e.Requester,
			Granted:   e.Granted,
			Error:     errStr,
			Waited:    e.Waited,
			Time:      e.Time,
		})
	case events.RunEvent:
		r, ok := sink.(coremetrics.RunRecorder)
		if !ok {
			return nil
		}
		return r.RecordRun(coremetrics.RunRecord{
			RunID:   e.RunID,
			Phase:   string(e.Phase),
			Clients: e.Clients,
			Clean:   e.Clean,
			Forced:  e.Forced,
			Time:    e.Time,
		})
	}
	return nil
}
