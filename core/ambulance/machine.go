package ambulance

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/events"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/logger"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/model"
	"github.com/marcoioli/proyecto-programacion3-grupo12/internal/eventbus"
)

// Requester names used for transitions not issued by a caller.
const (
	RequesterSignal = "return-signal"
	RequesterTimer  = "trip-timer"
)

// Status is a consistent snapshot of the machine.
type Status struct {
	VehicleID   string             `json:"vehicle_id"`
	State       model.VehicleState `json:"state"`
	Since       time.Time          `json:"since"`
	Transitions uint64             `json:"transitions"`
	Waiting     int                `json:"waiting"`
}

// Machine is the ambulance monitor. The zero value is not usable; build one
// with New and share the pointer.
type Machine struct {
	cfg Config
	log logger.Logger
	bus eventbus.EventBus

	mu    sync.Mutex
	state model.VehicleState
	since time.Time
	// seq counts applied transitions and doubles as the generation that
	// gates trip timer callbacks.
	seq uint64
	// changed is closed and replaced on every transition, waking all waiters.
	changed chan struct{}
	waiting int
	timer   *time.Timer
	rng     *rand.Rand
	closed  bool
}

// New creates a machine in the Available state. bus and log may be nil.
func New(cfg Config, bus eventbus.EventBus, log logger.Logger) *Machine {
	cfg.SetDefaults()
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Machine{
		cfg:     cfg,
		log:     logger.OrNop(log),
		bus:     bus,
		state:   model.StateAvailable,
		since:   time.Now(),
		changed: make(chan struct{}),
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// ID returns the vehicle identifier.
func (m *Machine) ID() string { return m.cfg.ID }

// RequestHomeVisit blocks until the ambulance can start a home visit, then
// moves it to OnHomeVisit.
func (m *Machine) RequestHomeVisit(ctx context.Context, requester string) error {
	return m.request(ctx, model.EventHomeVisit, requester)
}

// RequestTransport blocks until the ambulance can transport a patient, then
// moves it to Transporting.
func (m *Machine) RequestTransport(ctx context.Context, requester string) error {
	return m.request(ctx, model.EventTransport, requester)
}

// RequestMaintenance blocks until the ambulance can go to the workshop, then
// moves it to InMaintenance.
func (m *Machine) RequestMaintenance(ctx context.Context, requester string) error {
	return m.request(ctx, model.EventMaintenance, requester)
}

// Request dispatches one of the three request events.
func (m *Machine) Request(ctx context.Context, kind model.Event, requester string) error {
	if !kind.IsRequest() {
		return fmt.Errorf("ambulance: %s is not a request", kind)
	}
	return m.request(ctx, kind, requester)
}

func (m *Machine) request(ctx context.Context, kind model.Event, requester string) error {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return m.abandon(kind, requester, start, cancelled(kind, requester, err))
	}

	m.mu.Lock()
	blocked := false
	for {
		if m.closed {
			m.leaveLocked(kind, blocked)
			m.mu.Unlock()
			return m.abandon(kind, requester, start, ErrClosed)
		}
		if m.state.Accepts(kind) {
			break
		}
		if !blocked {
			blocked = true
			m.waiting++
			waitingRequests.WithLabelValues(kind.String()).Inc()
			m.log.Debugf("%s waiting for %s while %s", requester, kind, m.state)
		}
		changed := m.changed
		m.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			m.mu.Lock()
			m.leaveLocked(kind, blocked)
			m.mu.Unlock()
			cancelledRequests.WithLabelValues(kind.String()).Inc()
			return m.abandon(kind, requester, start, cancelled(kind, requester, ctx.Err()))
		}
		m.mu.Lock()
	}
	m.leaveLocked(kind, blocked)
	m.applyLocked(kind, requester)
	m.mu.Unlock()

	waited := time.Since(start)
	requestWait.WithLabelValues(kind.String()).Observe(waited.Seconds())
	m.publish(events.RequestEvent{
		VehicleID: m.cfg.ID,
		Kind:      kind,
		Requester: requester,
		Granted:   true,
		Waited:    waited,
		Time:      time.Now(),
	})
	return nil
}

func cancelled(kind model.Event, requester string, cause error) error {
	return fmt.Errorf("%w: %s waiting for %s: %w", ErrRequestCancelled, requester, kind, cause)
}

// leaveLocked undoes the waiting bookkeeping of a request that stops waiting.
func (m *Machine) leaveLocked(kind model.Event, blocked bool) {
	if !blocked {
		return
	}
	m.waiting--
	waitingRequests.WithLabelValues(kind.String()).Dec()
}

func (m *Machine) abandon(kind model.Event, requester string, start time.Time, err error) error {
	m.log.Warnf("%s abandoned %s request: %v", requester, kind, err)
	m.publish(events.RequestEvent{
		VehicleID: m.cfg.ID,
		Kind:      kind,
		Requester: requester,
		Err:       err,
		Waited:    time.Since(start),
		Time:      time.Now(),
	})
	return err
}

// SignalReturn completes the current trip leg without blocking. It reports
// whether a transition was applied; from Available it is a no-op.
func (m *Machine) SignalReturn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	_, ok := m.applyLocked(model.EventReturn, RequesterSignal)
	return ok
}

// completeLeg is the trip timer callback. It applies only if no transition
// happened since the timer was armed for generation gen.
func (m *Machine) completeLeg(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.seq != gen {
		staleReturns.Inc()
		m.log.Debugf("discarding stale return of generation %d, current %d", gen, m.seq)
		return
	}
	m.timer = nil
	m.applyLocked(model.EventReturn, RequesterTimer)
}

// applyLocked performs the transition for e. The caller holds m.mu.
func (m *Machine) applyLocked(e model.Event, requester string) (model.VehicleState, bool) {
	from := m.state
	to, ok := model.Next(from, e)
	if !ok {
		return from, false
	}
	m.state = to
	m.since = time.Now()
	m.seq++
	close(m.changed)
	m.changed = make(chan struct{})
	m.scheduleLocked(to)

	transitionsTotal.WithLabelValues(from.String(), to.String()).Inc()
	m.log.Debugw("state transition", map[string]any{
		"vehicle_id": m.cfg.ID,
		"from":       from.String(),
		"to":         to.String(),
		"cause":      e.String(),
		"requester":  requester,
		"seq":        m.seq,
	})
	m.publish(events.StateChangeEvent{
		VehicleID: m.cfg.ID,
		From:      from,
		To:        to,
		Cause:     e,
		Requester: requester,
		Seq:       m.seq,
		Time:      m.since,
	})
	return to, true
}

// scheduleLocked replaces the pending trip timer with one for state s.
func (m *Machine) scheduleLocked(s model.VehicleState) {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	r := m.cfg.dwellFor(s)
	if !r.Enabled() {
		return
	}
	gen := m.seq
	m.timer = time.AfterFunc(r.Pick(m.rng), func() { m.completeLeg(gen) })
}

func (m *Machine) publish(ev eventbus.Event) {
	if m.bus != nil {
		m.bus.Publish(ev)
	}
}

// State returns the current state.
func (m *Machine) State() model.VehicleState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// StateName returns the name of the current state.
func (m *Machine) StateName() string { return m.State().String() }

// Waiting returns the number of requests currently blocked.
func (m *Machine) Waiting() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waiting
}

// Snapshot returns the current status.
func (m *Machine) Snapshot() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		VehicleID:   m.cfg.ID,
		State:       m.state,
		Since:       m.since,
		Transitions: m.seq,
		Waiting:     m.waiting,
	}
}

// Close cancels the pending trip timer and fails every blocked request with
// ErrClosed. It is safe to call more than once.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	close(m.changed)
	m.changed = make(chan struct{})
	m.log.Infof("ambulance %s closed in state %s", m.cfg.ID, m.state)
}
