package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcoioli/proyecto-programacion3-grupo12/config"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/ambulance"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/factory"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/journal"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/model"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Ambulance = ambulance.Config{ID: "amb-test", Manual: true}
	cfg.Journal = journal.Config{Enabled: true, Path: filepath.Join(dir, "journal.jsonl")}
	cfg.Journal.SetDefaults()
	cfg.Store.Path = filepath.Join(dir, "clinic.db")
	cfg.Store.Seed = true
	cfg.API.Listen = "-"
	return cfg
}

func TestServiceLoadsSeededAssociates(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	defer func() { require.NoError(t, svc.Close()) }()

	assert.Equal(t, 2, svc.Associates.Len())
	assert.Equal(t, []string{"87654321", "12345678"}, svc.ClientIDs(0))
	assert.Equal(t, []string{"87654321"}, svc.ClientIDs(1))
}

func TestServiceJournalsTransitions(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	// give the subscribers time to attach before publishing
	require.Eventually(t, func() bool { return svc.bus.Subscribers() >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, svc.Machine.RequestTransport(ctx, "test"))
	svc.Machine.SignalReturn()

	require.Eventually(t, func() bool {
		recs, err := svc.Journal.Query(context.Background(), journal.Query{Type: journal.TypeTransition})
		return err == nil && len(recs) == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return")
	}
	assert.Equal(t, model.StateReturningEmpty, svc.Machine.State())
}

func TestServiceHandler(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	rr := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/associates", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Gomez")

	rr = httptest.NewRecorder()
	svc.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/journal", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestServiceHandlerStartsWithDefaults(t *testing.T) {
	cfg := testConfig(t)
	cfg.Simulation.Clients = 1
	cfg.Simulation.RequestsPerClient = 2
	cfg.Simulation.GracefulTimeoutMS = 100
	cfg.Simulation.ForcedTimeoutMS = 100
	svc, err := New(cfg)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	rr := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/simulation/start", nil))
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	assert.Equal(t, []string{"87654321"}, svc.Orchestrator.Status().Clients)

	_, _ = svc.Orchestrator.Stop()
}

func TestNewFailsOnUnknownMetricsSink(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "does-not-exist"}}
	_, err := New(cfg)
	assert.Error(t, err)
}
