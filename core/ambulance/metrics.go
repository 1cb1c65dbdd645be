package ambulance

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	transitionsTotal  *prometheus.CounterVec
	requestWait       *prometheus.HistogramVec
	waitingRequests   *prometheus.GaugeVec
	cancelledRequests *prometheus.CounterVec
	staleReturns      prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.HistogramVec, *prometheus.GaugeVec, *prometheus.CounterVec, prometheus.Counter) {
	tr := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ambulance_transitions_total",
			Help: "Number of applied ambulance state transitions",
		},
		[]string{"from", "to"},
	)
	wait := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ambulance_request_wait_seconds",
			Help:    "Time a request spent blocked before being granted",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"kind"},
	)
	waiting := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ambulance_waiting_requests",
			Help: "Requests currently blocked on the ambulance state",
		},
		[]string{"kind"},
	)
	cancelled := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ambulance_cancelled_requests_total",
			Help: "Requests abandoned while waiting",
		},
		[]string{"kind"},
	)
	stale := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ambulance_stale_returns_total",
			Help: "Trip timer callbacks discarded because the state had already changed",
		},
	)
	return tr, wait, waiting, cancelled, stale
}

func init() {
	transitionsTotal, requestWait, waitingRequests, cancelledRequests, staleReturns = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers machine metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(transitionsTotal, requestWait, waitingRequests, cancelledRequests, staleReturns)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	transitionsTotal, requestWait, waitingRequests, cancelledRequests, staleReturns = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
