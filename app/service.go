// Package app wires the ambulance, the simulation orchestrator and their
// collaborators into a runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/marcoioli/proyecto-programacion3-grupo12/api/status"
	"github.com/marcoioli/proyecto-programacion3-grupo12/config"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/ambulance"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/associates"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/clinic"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/journal"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/maintenance"
	coremetrics "github.com/marcoioli/proyecto-programacion3-grupo12/core/metrics"
	coremon "github.com/marcoioli/proyecto-programacion3-grupo12/core/monitoring"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/simulation"
	"github.com/marcoioli/proyecto-programacion3-grupo12/infra/logger"
	"github.com/marcoioli/proyecto-programacion3-grupo12/infra/metrics"
	"github.com/marcoioli/proyecto-programacion3-grupo12/infra/monitoring"
	"github.com/marcoioli/proyecto-programacion3-grupo12/infra/mqtt"
	"github.com/marcoioli/proyecto-programacion3-grupo12/infra/store"
	"github.com/marcoioli/proyecto-programacion3-grupo12/internal/eventbus"
)

// Service owns one ambulance and everything observing or driving it.
type Service struct {
	Machine      *ambulance.Machine
	Orchestrator *simulation.Orchestrator
	Associates   *associates.Registry
	Clinic       *clinic.Clinic
	Journal      journal.Store

	cfg       *config.Config
	bus       *eventbus.Bus
	sink      coremetrics.MetricsSink
	store     *store.AssociateStore
	mqtt      *mqtt.StatusClient
	scheduler *maintenance.Scheduler
	log       logger.Logger
	closers   []func() error
}

// New creates a Service from the configuration. Optional parts (journal,
// MQTT, maintenance plan) are built only when enabled.
func New(cfg *config.Config) (svc *Service, err error) {
	logg := logger.New("service")
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, err
	}
	coremon.Init(mon)

	s := &Service{cfg: cfg, log: logg, bus: eventbus.New()}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	s.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	if c, ok := s.sink.(io.Closer); ok {
		s.closers = append(s.closers, c.Close)
	}

	s.Machine = ambulance.New(cfg.Ambulance, s.bus, logger.New("machine"))
	s.Orchestrator, err = simulation.NewOrchestrator(cfg.Simulation, s.Machine, s.bus, logger.New("simulation"))
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}

	if cfg.Journal.Enabled {
		s.Journal, err = journal.Open(cfg.Journal)
		if err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
		s.closers = append(s.closers, s.Journal.Close)
	}

	s.store, err = store.NewAssociateStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("associate store: %w", err)
	}
	s.closers = append(s.closers, s.store.Close)
	if cfg.Store.Seed {
		if err := s.store.Reset(context.Background()); err != nil {
			return nil, err
		}
	}
	s.Associates = associates.NewRegistry(s.store, s.bus, logger.New("associates"))
	if err := s.Associates.Load(context.Background()); err != nil {
		return nil, err
	}

	s.Clinic = clinic.New(cfg.Billing, logger.New("clinic"))

	if cfg.MQTT.Enabled {
		s.mqtt, err = mqtt.NewStatusClient(cfg.MQTT, s.Machine.ID(), func() { s.Machine.SignalReturn() })
		if err != nil {
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
	}
	if cfg.Maintenance.Enabled {
		s.scheduler, err = maintenance.NewScheduler(cfg.Maintenance, s.Machine, logger.New("maintenance"))
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Bus returns the event bus shared by every component.
func (s *Service) Bus() eventbus.EventBus { return s.bus }

// ClientIDs returns the associates' DNIs, or generated IDs when none are
// registered.
func (s *Service) ClientIDs(n int) []string {
	ids := s.Associates.DNIs()
	if len(ids) == 0 {
		return simulation.ClientIDs(n)
	}
	if n > 0 && n < len(ids) {
		ids = ids[:n]
	}
	return ids
}

// Observe starts the bus subscribers. It returns a channel closed when they
// have all exited after ctx is cancelled.
func (s *Service) Observe(ctx context.Context) <-chan struct{} {
	dones := []<-chan struct{}{
		metrics.StartEventCollector(ctx, s.bus, s.sink),
	}
	if s.Journal != nil {
		dones = append(dones, journal.StartRecorder(ctx, s.bus, s.Journal, logger.New("journal")))
	}
	if s.mqtt != nil {
		dones = append(dones, mqtt.StartStatusPublisher(ctx, s.bus, s.mqtt))
	}
	all := make(chan struct{})
	go func() {
		for _, d := range dones {
			<-d
		}
		close(all)
	}()
	return all
}

// Run starts the observers, the maintenance plan and the HTTP servers, then
// blocks until ctx is cancelled. A running simulation is stopped on exit.
func (s *Service) Run(ctx context.Context) error {
	observed := s.Observe(ctx)
	if s.scheduler != nil {
		s.scheduler.Start(ctx)
	}
	if port := s.cfg.Metrics.PrometheusPort; port != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, port); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	errc := make(chan error, 1)
	var srv *http.Server
	if s.cfg.API.Enabled() {
		srv = &http.Server{
			Addr:              s.cfg.API.Listen,
			Handler:           s.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			s.log.Infof("API listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errc:
	}

	if srv != nil {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutCtx); err != nil {
			s.log.Warnf("API shutdown: %v", err)
		}
		cancel()
	}
	if s.Orchestrator.Phase() == simulation.PhaseRunning {
		if rep, err := s.Orchestrator.Stop(); err != nil {
			s.log.Errorf("simulation stop: %v", err)
		} else {
			s.log.Infof("simulation %s stopped, %d requests", rep.RunID, rep.Requests)
		}
	}
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	<-observed
	return runErr
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	d := status.Deps{
		Ambulance:  s.Machine,
		Simulation: s.Orchestrator,
		Associates: s.Associates,
		Clinic:     s.Clinic,
		ClientIDs:  s.ClientIDs,
		Defaults:   s.cfg.Simulation,
		Token:      s.cfg.API.Token,
		Log:        logger.New("api"),
	}
	if s.Journal != nil {
		d.Journal = s.Journal
	}
	return status.NewHandler(d)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.Machine != nil {
		s.Machine.Close()
	}
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	s.bus.Close()
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	coremon.Flush(2 * time.Second)
	return errors.Join(errs...)
}
