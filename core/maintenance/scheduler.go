package maintenance

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/logger"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/monitoring"
)

// Requester is the ambulance operation the scheduler drives.
type Requester interface {
	RequestMaintenance(ctx context.Context, requester string) error
}

// RequesterName identifies scheduled visits in transitions and logs.
const RequesterName = "maintenance-plan"

// Scheduler triggers maintenance requests on a cron schedule.
type Scheduler struct {
	cfg      Config
	schedule cron.Schedule
	target   Requester
	log      logger.Logger

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
	wg     sync.WaitGroup

	pending   atomic.Bool
	triggered atomic.Uint64
	skipped   atomic.Uint64
	failed    atomic.Uint64
}

// NewScheduler parses cfg.Spec and prepares a scheduler for target.
func NewScheduler(cfg Config, target Requester, log logger.Logger) (*Scheduler, error) {
	cfg.SetDefaults()
	if target == nil {
		return nil, fmt.Errorf("maintenance: nil requester")
	}
	sched, err := parser.Parse(cfg.Spec)
	if err != nil {
		return nil, fmt.Errorf("maintenance spec %q: %w", cfg.Spec, err)
	}
	return &Scheduler{cfg: cfg, schedule: sched, target: target, log: logger.OrNop(log)}, nil
}

// Start runs the cron loop until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.cron = cron.New(cron.WithParser(parser))
	s.cron.Schedule(s.schedule, cron.FuncJob(func() { s.Trigger(ctx) }))
	s.cron.Start()
	s.log.Infof("maintenance plan %q started, next visit %s", s.cfg.Spec, s.schedule.Next(time.Now()).Format(time.RFC3339))
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

// Trigger issues one maintenance request in the background unless a previous
// one is still waiting. It reports whether a request was issued.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	if !s.pending.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.log.Warnf("maintenance visit skipped, previous request still pending")
		return false
	}
	s.triggered.Add(1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.pending.Store(false)
		defer monitoring.Recover("maintenance-plan")
		rctx := ctx
		if t := s.cfg.Timeout(); t > 0 {
			var cancel context.CancelFunc
			rctx, cancel = context.WithTimeout(ctx, t)
			defer cancel()
		}
		if err := s.target.RequestMaintenance(rctx, RequesterName); err != nil {
			s.failed.Add(1)
			s.log.Warnf("scheduled maintenance not granted: %v", err)
			return
		}
		s.log.Infof("scheduled maintenance granted")
	}()
	return true
}

// Stop halts the cron loop, cancels a pending request and waits for it.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()
	if c == nil {
		s.wg.Wait()
		return
	}
	<-c.Stop().Done()
	cancel()
	s.wg.Wait()
	s.log.Infof("maintenance plan stopped")
}

// NextRuns lists the next n visit times after from.
func (s *Scheduler) NextRuns(from time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	t := from
	for i := 0; i < n; i++ {
		t = s.schedule.Next(t)
		if t.IsZero() {
			break
		}
		out = append(out, t)
	}
	return out
}

// Stats counts triggered, skipped and failed visits.
type Stats struct {
	Triggered uint64 `json:"triggered"`
	Skipped   uint64 `json:"skipped"`
	Failed    uint64 `json:"failed"`
	Pending   bool   `json:"pending"`
}

// Stats returns the current counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Triggered: s.triggered.Load(),
		Skipped:   s.skipped.Load(),
		Failed:    s.failed.Load(),
		Pending:   s.pending.Load(),
	}
}
