// Package status exposes the ambulance, the simulation orchestrator, the
// journal, the associate registry and the clinic over HTTP.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/ambulance"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/associates"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/journal"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/logger"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/model"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/simulation"
)

// Ambulance is the part of the machine served by the API.
type Ambulance interface {
	Snapshot() ambulance.Status
	Request(ctx context.Context, kind model.Event, requester string) error
	SignalReturn() bool
}

// Simulation is the part of the orchestrator served by the API.
type Simulation interface {
	Status() simulation.Status
	StartWith(clientIDs []string, requestsPerClient int) error
	Stop() (simulation.StopReport, error)
}

// Associates is the registry served by the API.
type Associates interface {
	List() []associates.Associate
	Add(ctx context.Context, a associates.Associate) error
	Remove(ctx context.Context, dni string) error
}

// Deps groups the collaborators. Journal, Associates and Clinic may be nil,
// in which case their routes answer 404.
type Deps struct {
	Ambulance  Ambulance
	Simulation Simulation
	Journal    journal.Store
	Associates Associates
	Clinic     Clinic
	// ClientIDs names n clients for a start request that lists none. Nil
	// generates client-1..client-n.
	ClientIDs func(n int) []string
	// Defaults fills the counts a start request leaves at zero.
	Defaults simulation.Config
	// Token enables bearer authentication on every route when non-empty.
	Token string
	Log   logger.Logger
}

type server struct {
	Deps
	log logger.Logger
}

// NewHandler returns the API router.
func NewHandler(d Deps) http.Handler {
	s := &server{Deps: d, log: logger.OrNop(d.Log)}
	r := chi.NewRouter()
	r.Use(s.auth)

	r.Route("/api/ambulance", func(r chi.Router) {
		r.Get("/", s.getAmbulance)
		r.Post("/requests/{kind}", s.postRequest)
		r.Post("/return", s.postReturn)
	})
	r.Route("/api/simulation", func(r chi.Router) {
		r.Get("/", s.getSimulation)
		r.Post("/start", s.postStart)
		r.Post("/stop", s.postStop)
	})
	if d.Journal != nil {
		r.Get("/api/journal", s.getJournal)
	}
	if d.Associates != nil {
		r.Route("/api/associates", func(r chi.Router) {
			r.Get("/", s.listAssociates)
			r.Post("/", s.addAssociate)
			r.Delete("/{dni}", s.removeAssociate)
		})
	}
	if d.Clinic != nil {
		r.Route("/api/clinic", s.clinicRoutes)
	}
	return r
}

func (s *server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warnf("encode response: %v", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *server) writeError(w http.ResponseWriter, code int, err error) {
	s.writeJSON(w, code, errorBody{Error: err.Error()})
}

func (s *server) getAmbulance(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Ambulance.Snapshot())
}

// postRequest blocks until the ambulance grants the request, the optional
// timeout_ms elapses or the client goes away.
func (s *server) postRequest(w http.ResponseWriter, r *http.Request) {
	kind, err := model.ParseEvent(chi.URLParam(r, "kind"))
	if err != nil || !kind.IsRequest() {
		http.Error(w, "unknown request kind", http.StatusBadRequest)
		return
	}
	requester := r.URL.Query().Get("requester")
	if requester == "" {
		requester = "api"
	}
	ctx := r.Context()
	if v := r.URL.Query().Get("timeout_ms"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			http.Error(w, "invalid timeout_ms", http.StatusBadRequest)
			return
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(ms)*time.Millisecond)
		defer cancel()
	}
	err = s.Ambulance.Request(ctx, kind, requester)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, s.Ambulance.Snapshot())
	case errors.Is(err, ambulance.ErrClosed):
		s.writeError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, http.StatusGatewayTimeout, err)
	default:
		// The client disconnected; nobody reads this.
		s.log.Debugf("request %s by %s abandoned: %v", kind, requester, err)
	}
}

type returnResponse struct {
	Applied bool             `json:"applied"`
	Status  ambulance.Status `json:"status"`
}

func (s *server) postReturn(w http.ResponseWriter, _ *http.Request) {
	applied := s.Ambulance.SignalReturn()
	s.writeJSON(w, http.StatusOK, returnResponse{Applied: applied, Status: s.Ambulance.Snapshot()})
}

func (s *server) getSimulation(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Simulation.Status())
}

// StartRequest is the body of POST /api/simulation/start. ClientIDs wins over
// Clients when both are set. Zero counts and an empty body fall back to
// Deps.Defaults.
type StartRequest struct {
	Clients           int      `json:"clients"`
	ClientIDs         []string `json:"client_ids"`
	RequestsPerClient int      `json:"requests_per_client"`
}

func (s *server) postStart(w http.ResponseWriter, r *http.Request) {
	var body StartRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
	}
	ids := body.ClientIDs
	if len(ids) == 0 {
		n := body.Clients
		if n <= 0 {
			n = s.Defaults.Clients
		}
		ids = s.clientIDs(n)
	}
	requests := body.RequestsPerClient
	if requests <= 0 {
		requests = s.Defaults.RequestsPerClient
	}
	err := s.Simulation.StartWith(ids, requests)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusAccepted, s.Simulation.Status())
	case errors.Is(err, simulation.ErrNotIdle):
		s.writeError(w, http.StatusConflict, err)
	case errors.Is(err, simulation.ErrInvalidConfig):
		s.writeError(w, http.StatusBadRequest, err)
	default:
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *server) clientIDs(n int) []string {
	if s.ClientIDs != nil {
		return s.ClientIDs(n)
	}
	if n <= 0 {
		return nil
	}
	return simulation.ClientIDs(n)
}

func (s *server) postStop(w http.ResponseWriter, _ *http.Request) {
	rep, err := s.Simulation.Stop()
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, rep)
	case errors.Is(err, simulation.ErrNotRunning):
		s.writeError(w, http.StatusConflict, err)
	default:
		s.writeJSON(w, http.StatusInternalServerError, struct {
			Error  string                `json:"error"`
			Report simulation.StopReport `json:"report"`
		}{err.Error(), rep})
	}
}

func (s *server) listAssociates(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Associates.List())
}

func (s *server) addAssociate(w http.ResponseWriter, r *http.Request) {
	var a associates.Associate
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	err := s.Associates.Add(r.Context(), a)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusCreated, a.Normalize())
	case errors.Is(err, associates.ErrInvalid):
		s.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, associates.ErrDuplicate):
		s.writeError(w, http.StatusConflict, err)
	default:
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *server) removeAssociate(w http.ResponseWriter, r *http.Request) {
	err := s.Associates.Remove(r.Context(), chi.URLParam(r, "dni"))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, associates.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err)
	default:
		s.writeError(w, http.StatusInternalServerError, err)
	}
}
