package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/marcoioli/proyecto-programacion3-grupo12/core/metrics"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/model"
)

// PromSink exposes the ambulance state and request outcomes as Prometheus
// metrics.
type PromSink struct {
	state    *prometheus.GaugeVec
	changes  *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	waited   *prometheus.HistogramVec
	runs     *prometheus.CounterVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	state := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ambulance_state",
		Help: "1 for the current state of each ambulance, 0 otherwise",
	}, []string{"vehicle_id", "state"})
	changes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ambulance_state_changes_total",
		Help: "State changes observed per ambulance and cause",
	}, []string{"vehicle_id", "cause"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ambulance_request_outcomes_total",
		Help: "Blocking requests by kind and outcome",
	}, []string{"vehicle_id", "kind", "granted"})
	waited := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ambulance_observed_wait_seconds",
		Help:    "Request wait observed on the event bus",
		Buckets: prometheus.DefBuckets,
	}, []string{"vehicle_id", "kind"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_runs_total",
		Help: "Simulation run boundaries by phase",
	}, []string{"phase", "forced"})

	var err error
	if state, err = register(reg, state); err != nil {
		return nil, err
	}
	if changes, err = register(reg, changes); err != nil {
		return nil, err
	}
	if outcomes, err = register(reg, outcomes); err != nil {
		return nil, err
	}
	if waited, err = register(reg, waited); err != nil {
		return nil, err
	}
	if runs, err = register(reg, runs); err != nil {
		return nil, err
	}
	return &PromSink{state: state, changes: changes, outcomes: outcomes, waited: waited, runs: runs}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordTransition moves the state gauge and counts the change.
func (s *PromSink) RecordTransition(rec coremetrics.TransitionRecord) error {
	for _, st := range model.States {
		v := 0.0
		if st == rec.To {
			v = 1
		}
		s.state.WithLabelValues(rec.VehicleID, st.String()).Set(v)
	}
	s.changes.WithLabelValues(rec.VehicleID, rec.Cause.String()).Inc()
	return nil
}

// RecordRequest counts the outcome and observes the wait.
func (s *PromSink) RecordRequest(rec coremetrics.RequestRecord) error {
	s.outcomes.WithLabelValues(rec.VehicleID, rec.Kind.String(), strconv.FormatBool(rec.Granted)).Inc()
	if rec.Granted {
		s.waited.WithLabelValues(rec.VehicleID, rec.Kind.String()).Observe(rec.Waited.Seconds())
	}
	return nil
}

// RecordRun counts run boundaries.
func (s *PromSink) RecordRun(rec coremetrics.RunRecord) error {
	s.runs.WithLabelValues(rec.Phase, strconv.FormatBool(rec.Forced)).Inc()
	return nil
}
