package simulation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/events"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/logger"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/monitoring"
	"github.com/marcoioli/proyecto-programacion3-grupo12/internal/eventbus"
)

// Phase is the orchestrator lifecycle step.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseShuttingDown
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseShuttingDown:
		return "shutting_down"
	default:
		return fmt.Sprintf("Phase(%d)", int32(p))
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(b []byte) error {
	for _, v := range []Phase{PhaseIdle, PhaseRunning, PhaseShuttingDown} {
		if v.String() == string(b) {
			*p = v
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// Run is one started simulation.
type Run struct {
	ID      string
	Started time.Time
	Clients []string

	softCancel  context.CancelFunc
	hardCancel  context.CancelFunc
	wg          sync.WaitGroup
	done        chan struct{}
	clientsDone chan struct{}

	mu    sync.Mutex
	stats []WorkerStats
}

func (r *Run) record(s WorkerStats) {
	r.mu.Lock()
	r.stats = append(r.stats, s)
	r.mu.Unlock()
}

func (r *Run) collected() []WorkerStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]WorkerStats(nil), r.stats...)
}

// Status describes the orchestrator for observers.
type Status struct {
	Phase   Phase       `json:"phase"`
	Active  bool        `json:"active"`
	RunID   string      `json:"run_id,omitempty"`
	Clients []string    `json:"clients,omitempty"`
	Started time.Time   `json:"started,omitempty"`
	Last    *StopReport `json:"last,omitempty"`
}

// Orchestrator starts and stops runs against one dispatcher.
type Orchestrator struct {
	cfg Config
	d   Dispatcher
	bus eventbus.EventBus
	log logger.Logger

	active atomic.Bool

	mu    sync.Mutex
	phase Phase
	run   *Run
	last  *StopReport
	runs  int64
}

// NewOrchestrator validates cfg and returns an idle orchestrator. bus and log
// may be nil.
func NewOrchestrator(cfg Config, d Dispatcher, bus eventbus.EventBus, log logger.Logger) (*Orchestrator, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%w: dispatcher is required", ErrInvalidConfig)
	}
	return &Orchestrator{cfg: cfg, d: d, bus: bus, log: logger.OrNop(log)}, nil
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config { return o.cfg }

// IsActive reports whether the current run accepts maintenance requests. It
// never blocks.
func (o *Orchestrator) IsActive() bool { return o.active.Load() }

// Phase returns the lifecycle step.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// Start launches clientCount generated clients issuing requestsPerClient
// requests each, plus one maintenance worker.
func (o *Orchestrator) Start(requestsPerClient, clientCount int) error {
	if clientCount <= 0 {
		return fmt.Errorf("%w: client count must be positive", ErrInvalidConfig)
	}
	return o.StartWith(ClientIDs(clientCount), requestsPerClient)
}

// StartWith launches one client worker per ID. It fails with ErrNotIdle,
// without side effects, unless the orchestrator is idle.
func (o *Orchestrator) StartWith(clientIDs []string, requestsPerClient int) error {
	if len(clientIDs) == 0 || requestsPerClient <= 0 {
		return fmt.Errorf("%w: need at least one client and one request", ErrInvalidConfig)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.phase != PhaseIdle {
		return ErrNotIdle
	}

	hard, hardCancel := context.WithCancel(context.Background())
	soft, softCancel := context.WithCancel(hard)
	o.runs++
	r := &Run{
		ID:          uuid.NewString(),
		Started:     time.Now(),
		Clients:     append([]string(nil), clientIDs...),
		softCancel:  softCancel,
		hardCancel:  hardCancel,
		done:        make(chan struct{}),
		clientsDone: make(chan struct{}),
	}

	seed := o.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	seed += o.runs * 1000

	// Workers read the flag as soon as they start.
	o.active.Store(true)
	var clients sync.WaitGroup
	for i, id := range clientIDs {
		w := NewClientWorker(id, requestsPerClient, o.cfg.ClientDelay, o.d, seed+int64(i), o.log)
		clients.Add(1)
		o.launch(r, w, soft, hard, clients.Done)
	}
	m := NewMaintenanceWorker("maintenance", o.cfg.MaintenanceDelay, o.d, o, seed-1, o.log)
	o.launch(r, m, soft, hard, nil)

	go func() {
		clients.Wait()
		close(r.clientsDone)
	}()
	go func() {
		r.wg.Wait()
		close(r.done)
	}()

	o.run = r
	o.phase = PhaseRunning
	o.log.Infof("run %s started with %d clients x %d requests", r.ID, len(clientIDs), requestsPerClient)
	o.publish(events.RunEvent{RunID: r.ID, Phase: events.RunStarted, Clients: len(clientIDs), Time: r.Started})
	return nil
}

func (o *Orchestrator) launch(r *Run, w Worker, soft, hard context.Context, onExit func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if onExit != nil {
			defer onExit()
		}
		defer monitoring.Recover(w.Name(), func(err error) {
			o.log.Errorf("run %s: %v", r.ID, err)
		})
		r.record(w.Run(soft, hard))
	}()
}

// ClientsDone is closed once every client of the current run has finished.
// With no run in progress the returned channel is already closed.
func (o *Orchestrator) ClientsDone() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.run == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return o.run.clientsDone
}

// Stop ends the current run. Workers get the graceful timeout to finish after
// the soft cancellation, then the forced timeout after the hard one. It
// returns ErrNotRunning, without side effects, unless a run is in progress,
// and ErrShutdownTimeout when workers outlive both waits. The orchestrator is
// idle again when Stop returns.
func (o *Orchestrator) Stop() (StopReport, error) {
	o.mu.Lock()
	if o.phase != PhaseRunning {
		o.mu.Unlock()
		return StopReport{}, ErrNotRunning
	}
	o.phase = PhaseShuttingDown
	r := o.run
	o.mu.Unlock()

	began := time.Now()
	o.active.Store(false)
	r.softCancel()

	clean, forced := true, false
	var err error
	if !waitDone(r.done, o.cfg.GracefulTimeout()) {
		clean, forced = false, true
		o.log.Warnf("run %s: workers still running after %s, cancelling waits", r.ID, o.cfg.GracefulTimeout())
		r.hardCancel()
		if !waitDone(r.done, o.cfg.ForcedTimeout()) {
			err = fmt.Errorf("%w: run %s after %s", ErrShutdownTimeout, r.ID, o.cfg.GracefulTimeout()+o.cfg.ForcedTimeout())
			o.log.Errorf("%v", err)
			monitoring.CaptureException(err, map[string]string{"run_id": r.ID})
		}
	}
	r.hardCancel()

	rep := buildReport(r.ID, r.collected())
	rep.Clean, rep.Forced = clean, forced
	rep.Duration = time.Since(began)

	o.mu.Lock()
	o.phase = PhaseIdle
	o.run = nil
	o.last = &rep
	o.mu.Unlock()

	o.log.Infof("run %s stopped: clean=%v forced=%v requests=%d", r.ID, clean, forced, rep.Requests)
	o.publish(events.RunEvent{RunID: r.ID, Phase: events.RunStopped, Clients: len(r.Clients), Clean: clean, Forced: forced, Time: time.Now()})
	return rep, err
}

// Status returns a snapshot for observers.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := Status{Phase: o.phase, Active: o.active.Load(), Last: o.last}
	if o.run != nil {
		s.RunID = o.run.ID
		s.Clients = o.run.Clients
		s.Started = o.run.Started
	}
	return s
}

func (o *Orchestrator) publish(ev eventbus.Event) {
	if o.bus != nil {
		o.bus.Publish(ev)
	}
}

func waitDone(done <-chan struct{}, timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
		return false
	}
}
