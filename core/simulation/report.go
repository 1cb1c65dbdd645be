package simulation

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/model"
)

// WaitSummary describes how long granted requests were blocked.
type WaitSummary struct {
	Count  int           `json:"count"`
	Mean   time.Duration `json:"mean"`
	StdDev time.Duration `json:"stddev"`
	P95    time.Duration `json:"p95"`
	Max    time.Duration `json:"max"`
}

// SummarizeWaits computes the summary of the given waits.
func SummarizeWaits(waits []time.Duration) WaitSummary {
	if len(waits) == 0 {
		return WaitSummary{}
	}
	xs := make([]float64, len(waits))
	for i, w := range waits {
		xs[i] = float64(w)
	}
	sort.Float64s(xs)
	s := WaitSummary{
		Count: len(xs),
		Mean:  time.Duration(stat.Mean(xs, nil)),
		P95:   time.Duration(stat.Quantile(0.95, stat.Empirical, xs, nil)),
		Max:   time.Duration(xs[len(xs)-1]),
	}
	if len(xs) > 1 {
		s.StdDev = time.Duration(stat.StdDev(xs, nil))
	}
	return s
}

// StopReport is returned by Orchestrator.Stop.
type StopReport struct {
	RunID string `json:"run_id"`
	// Clean is true when every worker ended within the graceful timeout.
	Clean bool `json:"clean"`
	// Forced is true when the hard cancellation was needed.
	Forced   bool          `json:"forced"`
	Duration time.Duration `json:"duration"`
	// Requests counts every granted request, maintenance visits included.
	Requests int `json:"requests"`
	// ClientRequests counts granted home visits and transports.
	ClientRequests    int                 `json:"client_requests"`
	MaintenanceVisits int                 `json:"maintenance_visits"`
	Cancelled         int                 `json:"cancelled"`
	ByKind            map[model.Event]int `json:"by_kind"`
	Wait              WaitSummary         `json:"wait"`
	Workers           []WorkerStats       `json:"-"`
}

func buildReport(runID string, stats []WorkerStats) StopReport {
	r := StopReport{RunID: runID, ByKind: make(map[model.Event]int), Workers: stats}
	var waits []time.Duration
	for _, s := range stats {
		r.Requests += s.Granted
		r.Cancelled += s.Cancelled
		for k, n := range s.ByKind {
			r.ByKind[k] += n
		}
		waits = append(waits, s.Waits...)
	}
	r.ClientRequests = r.ByKind[model.EventHomeVisit] + r.ByKind[model.EventTransport]
	r.MaintenanceVisits = r.ByKind[model.EventMaintenance]
	r.Wait = SummarizeWaits(waits)
	return r
}
