package simulation

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/ambulance"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/logger"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/model"
)

// Dispatcher is the part of the ambulance used by workers.
type Dispatcher interface {
	RequestHomeVisit(ctx context.Context, requester string) error
	RequestTransport(ctx context.Context, requester string) error
	RequestMaintenance(ctx context.Context, requester string) error
}

// ActiveFlag is polled by the maintenance worker between requests.
type ActiveFlag interface {
	IsActive() bool
}

// Worker is a unit of a run. soft ends sleeps and stops new requests; hard
// additionally aborts a request waiting inside the ambulance.
type Worker interface {
	Name() string
	Run(soft, hard context.Context) WorkerStats
}

// WorkerStats summarizes what a worker did.
type WorkerStats struct {
	Worker    string
	Granted   int
	Cancelled int
	// ByKind counts granted requests per event.
	ByKind map[model.Event]int
	Waits  []time.Duration
}

func newStats(name string) WorkerStats {
	return WorkerStats{Worker: name, ByKind: make(map[model.Event]int)}
}

func (s *WorkerStats) granted(kind model.Event, waited time.Duration) {
	s.Granted++
	s.ByKind[kind]++
	s.Waits = append(s.Waits, waited)
}

// ClientWorker issues Total patient requests, each after a random pause.
type ClientWorker struct {
	ID    string
	Total int
	Delay ambulance.DwellRange

	d   Dispatcher
	rng *rand.Rand
	log logger.Logger
}

// NewClientWorker creates a client worker.
func NewClientWorker(id string, total int, delay ambulance.DwellRange, d Dispatcher, seed int64, log logger.Logger) *ClientWorker {
	return &ClientWorker{
		ID:    id,
		Total: total,
		Delay: delay,
		d:     d,
		rng:   rand.New(rand.NewSource(seed)),
		log:   logger.OrNop(log),
	}
}

func (w *ClientWorker) Name() string { return w.ID }

// Run performs the requests until done or cancelled.
func (w *ClientWorker) Run(soft, hard context.Context) WorkerStats {
	stats := newStats(w.ID)
	for i := 0; i < w.Total; i++ {
		if err := sleepCtx(soft, w.Delay.Pick(w.rng)); err != nil {
			w.log.Debugf("client %s stopped after %d of %d requests", w.ID, i, w.Total)
			return stats
		}
		kind := model.EventHomeVisit
		if w.rng.Intn(2) == 1 {
			kind = model.EventTransport
		}
		start := time.Now()
		if err := w.issue(hard, kind); err != nil {
			if isCancellation(err) {
				stats.Cancelled++
				w.log.Infof("client %s: %v", w.ID, err)
			} else {
				w.log.Errorf("client %s: %v", w.ID, err)
			}
			return stats
		}
		stats.granted(kind, time.Since(start))
	}
	w.log.Debugf("client %s completed %d requests", w.ID, w.Total)
	return stats
}

func (w *ClientWorker) issue(ctx context.Context, kind model.Event) error {
	if kind == model.EventTransport {
		return w.d.RequestTransport(ctx, w.ID)
	}
	return w.d.RequestHomeVisit(ctx, w.ID)
}

// MaintenanceWorker sends the ambulance to the workshop while the run is
// active.
type MaintenanceWorker struct {
	ID    string
	Delay ambulance.DwellRange

	d      Dispatcher
	active ActiveFlag
	rng    *rand.Rand
	log    logger.Logger
}

// NewMaintenanceWorker creates a maintenance worker.
func NewMaintenanceWorker(id string, delay ambulance.DwellRange, d Dispatcher, active ActiveFlag, seed int64, log logger.Logger) *MaintenanceWorker {
	return &MaintenanceWorker{
		ID:     id,
		Delay:  delay,
		d:      d,
		active: active,
		rng:    rand.New(rand.NewSource(seed)),
		log:    logger.OrNop(log),
	}
}

func (w *MaintenanceWorker) Name() string { return w.ID }

// Run loops until the active flag clears or the context ends.
func (w *MaintenanceWorker) Run(soft, hard context.Context) WorkerStats {
	stats := newStats(w.ID)
	for w.active.IsActive() {
		if err := sleepCtx(soft, w.Delay.Pick(w.rng)); err != nil {
			break
		}
		if !w.active.IsActive() {
			break
		}
		start := time.Now()
		if err := w.d.RequestMaintenance(hard, w.ID); err != nil {
			if isCancellation(err) {
				stats.Cancelled++
			} else {
				w.log.Errorf("maintenance %s: %v", w.ID, err)
			}
			break
		}
		stats.granted(model.EventMaintenance, time.Since(start))
	}
	w.log.Debugf("maintenance %s stopped after %d visits", w.ID, stats.Granted)
	return stats
}

func isCancellation(err error) bool {
	return errors.Is(err, ambulance.ErrRequestCancelled) || errors.Is(err, ambulance.ErrClosed)
}

// sleepCtx waits for d or until ctx ends.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
