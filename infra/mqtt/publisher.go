package mqtt

import (
	"context"
	"sync"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/events"
	coremqtt "github.com/marcoioli/proyecto-programacion3-grupo12/core/mqtt"
	"github.com/marcoioli/proyecto-programacion3-grupo12/infra/logger"
	"github.com/marcoioli/proyecto-programacion3-grupo12/internal/eventbus"
)

// Publisher mirrors the core mqtt.Publisher interface.
type Publisher = coremqtt.Publisher

// StartStatusPublisher forwards every state change on the bus to pub. It
// stops when ctx is cancelled or the bus is closed; the returned channel is
// closed once it has exited.
func StartStatusPublisher(ctx context.Context, bus eventbus.EventBus, pub Publisher) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || pub == nil {
		close(done)
		return done
	}
	log := logger.New("mqtt-status")
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
				e, isChange := ev.(events.StateChangeEvent)
				if !isChange {
					continue
				}
				if err := pub.PublishStatus(coremqtt.FromStateChange(e)); err != nil {
					log.Warnf("publish status seq %d: %v", e.Seq, err)
				}
			}
		}
	}()
	return done
}

// MemoryPublisher keeps published messages in memory.
type MemoryPublisher struct {
	mu       sync.Mutex
	Messages []coremqtt.StatusMessage
	Err      error
}

// PublishStatus records m or returns Err when set.
func (m *MemoryPublisher) PublishStatus(msg coremqtt.StatusMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Messages = append(m.Messages, msg)
	return nil
}

// Published returns a copy of the recorded messages.
func (m *MemoryPublisher) Published() []coremqtt.StatusMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]coremqtt.StatusMessage(nil), m.Messages...)
}
