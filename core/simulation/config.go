package simulation

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/ambulance"
)

// Config holds the run parameters.
type Config struct {
	// Clients and RequestsPerClient are the defaults used by the CLI and API
	// when a start call does not provide them.
	Clients           int `json:"clients" yaml:"clients"`
	RequestsPerClient int `json:"requests_per_client" yaml:"requests_per_client"`
	// ClientDelay is the pause before each client request.
	ClientDelay ambulance.DwellRange `json:"client_delay" yaml:"client_delay"`
	// MaintenanceDelay is the pause before each maintenance request.
	MaintenanceDelay  ambulance.DwellRange `json:"maintenance_delay" yaml:"maintenance_delay"`
	GracefulTimeoutMS int                  `json:"graceful_timeout_ms" yaml:"graceful_timeout_ms"`
	ForcedTimeoutMS   int                  `json:"forced_timeout_ms" yaml:"forced_timeout_ms"`
	// Seed makes worker draws reproducible. Zero seeds from the clock.
	Seed int64 `json:"seed" yaml:"seed"`
	// Instant keeps a zero delay as "no pause". Without it a zero delay
	// means "unset" and gets the default range.
	Instant bool `json:"instant" yaml:"instant"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Clients == 0 {
		c.Clients = 3
	}
	if c.RequestsPerClient == 0 {
		c.RequestsPerClient = 5
	}
	if c.ClientDelay == (ambulance.DwellRange{}) && !c.Instant {
		c.ClientDelay = ambulance.DwellRange{MinMS: 1000, MaxMS: 4000}
	}
	if c.MaintenanceDelay == (ambulance.DwellRange{}) && !c.Instant {
		c.MaintenanceDelay = ambulance.DwellRange{MinMS: 5000, MaxMS: 15000}
	}
	if c.GracefulTimeoutMS == 0 {
		c.GracefulTimeoutMS = 60000
	}
	if c.ForcedTimeoutMS == 0 {
		c.ForcedTimeoutMS = 60000
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Clients < 0 || c.RequestsPerClient < 0 {
		return fmt.Errorf("%w: clients and requests_per_client must not be negative", ErrInvalidConfig)
	}
	if err := c.ClientDelay.Validate(); err != nil {
		return fmt.Errorf("%w: client_delay: %w", ErrInvalidConfig, err)
	}
	if err := c.MaintenanceDelay.Validate(); err != nil {
		return fmt.Errorf("%w: maintenance_delay: %w", ErrInvalidConfig, err)
	}
	if c.GracefulTimeoutMS <= 0 || c.ForcedTimeoutMS <= 0 {
		return fmt.Errorf("%w: shutdown timeouts must be positive", ErrInvalidConfig)
	}
	return nil
}

// GracefulTimeout is the first bounded wait of Stop.
func (c Config) GracefulTimeout() time.Duration {
	return time.Duration(c.GracefulTimeoutMS) * time.Millisecond
}

// ForcedTimeout is the wait after the hard cancellation.
func (c Config) ForcedTimeout() time.Duration {
	return time.Duration(c.ForcedTimeoutMS) * time.Millisecond
}

// Scenario is a reusable run description read from YAML.
//
//	name: morning-rush
//	clients: [ "12345678", "87654321" ]
//	requests_per_client: 4
//	simulation:
//	  client_delay: {min_ms: 100, max_ms: 400}
type Scenario struct {
	Name              string   `yaml:"name"`
	Clients           []string `yaml:"clients"`
	RequestsPerClient int      `yaml:"requests_per_client"`
	Simulation        Config   `yaml:"simulation"`
}

// ParseScenario decodes a YAML scenario and applies defaults. When the client
// list is empty, Simulation.Clients generated IDs are used.
func ParseScenario(data []byte) (Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("%w: scenario: %w", ErrInvalidConfig, err)
	}
	if sc.RequestsPerClient > 0 {
		sc.Simulation.RequestsPerClient = sc.RequestsPerClient
	}
	if len(sc.Clients) > 0 {
		sc.Simulation.Clients = len(sc.Clients)
	}
	sc.Simulation.SetDefaults()
	if err := sc.Simulation.Validate(); err != nil {
		return Scenario{}, err
	}
	sc.RequestsPerClient = sc.Simulation.RequestsPerClient
	if len(sc.Clients) == 0 {
		sc.Clients = ClientIDs(sc.Simulation.Clients)
	}
	return sc, nil
}

// LoadScenario reads a scenario file.
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ClientIDs generates n client identifiers.
func ClientIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("client-%d", i+1)
	}
	return ids
}
