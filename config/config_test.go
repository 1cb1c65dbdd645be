package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:gocyclo
func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `ambulance:
  id: "amb-7"
  transport:
    min_ms: 100
    max_ms: 200
simulation:
  clients: 4
  graceful_timeout_ms: 1500
metrics:
  prometheus_port: ":9100"
  sinks:
    - type: "nop"
journal:
  enabled: true
  backend: "sqlite"
store:
  path: "clinic-test.db"
  seed: true
billing:
  assignment_cost: 500
api:
  listen: ":9000"
  token: "secret"
mqtt:
  enabled: true
  broker: "tcp://broker:1883"
  client_id: "cli"
  qos: 1
maintenance:
  enabled: true
  spec: "@weekly"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"ambulance.id", cfg.Ambulance.ID, "amb-7"},
		{"ambulance.transport.max_ms", cfg.Ambulance.Transport.MaxMS, 200},
		{"ambulance.home_visit filled", cfg.Ambulance.HomeVisit.Enabled(), true},
		{"simulation.clients", cfg.Simulation.Clients, 4},
		{"simulation.requests default", cfg.Simulation.RequestsPerClient, 5},
		{"simulation.graceful_timeout_ms", cfg.Simulation.GracefulTimeoutMS, 1500},
		{"metrics.prometheus_port", cfg.Metrics.PrometheusPort, ":9100"},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"journal.backend", cfg.Journal.Backend, "sqlite"},
		{"journal.path default", cfg.Journal.Path, "journal.db"},
		{"store.path", cfg.Store.Path, "clinic-test.db"},
		{"store.seed", cfg.Store.Seed, true},
		{"billing.assignment_cost", cfg.Billing.AssignmentCost, 500.0},
		{"billing.icu_exponent default", cfg.Billing.ICUExponent, 2},
		{"api.listen", cfg.API.Listen, ":9000"},
		{"api.token", cfg.API.Token, "secret"},
		{"mqtt.broker", cfg.MQTT.Broker, "tcp://broker:1883"},
		{"mqtt.qos", cfg.MQTT.QoS, byte(1)},
		{"maintenance.spec", cfg.Maintenance.Spec, "@weekly"},
	}
	for _, c := range checks {
		assert.Equal(t, c.want, c.got, c.name)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"simulation":{"clients":2}}`), 0o644))
	t.Setenv("K_SIMULATION__CLIENTS", "9")
	t.Setenv("K_AMBULANCE__ID", "env-amb")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Simulation.Clients)
	assert.Equal(t, "env-amb", cfg.Ambulance.ID)
}

func TestLoadEnvOverrideNestedString(t *testing.T) {
	t.Setenv("K_API__LISTEN", ":9999")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.API.Listen)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.API.Listen)
	assert.Equal(t, "ambulance-1", cfg.Ambulance.ID)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load("config.toml")
	assert.Error(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("maintenance:\n  enabled: true\n  spec: \"nope\"\njournal:\n  backend: csv\n"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maintenance")
	assert.Contains(t, err.Error(), "journal")
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.API.Enabled())
	cfg.API.Listen = "-"
	assert.False(t, cfg.API.Enabled())
	cfg.API.Listen = "localhost"
	assert.Error(t, cfg.API.Validate())
}

func TestSentrySection(t *testing.T) {
	cfg := Default()
	cfg.Sentry.DSN = "https://key@example.invalid/1"
	cfg.SetDefaults()
	assert.Equal(t, "development", cfg.Sentry.Environment)

	cfg.Sentry.TracesSampleRate = 1.5
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sentry")
}
