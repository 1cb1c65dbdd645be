package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/ambulance"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/billing"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/journal"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/maintenance"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/metrics"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/simulation"
	"github.com/marcoioli/proyecto-programacion3-grupo12/infra/mqtt"
	"github.com/marcoioli/proyecto-programacion3-grupo12/infra/store"
)

type Config struct {
	Ambulance   ambulance.Config   `json:"ambulance"`
	Simulation  simulation.Config  `json:"simulation"`
	Metrics     metrics.Config     `json:"metrics"`
	Journal     journal.Config     `json:"journal"`
	Store       store.Config       `json:"store"`
	Billing     billing.Catalog    `json:"billing"`
	API         APIConfig          `json:"api"`
	MQTT        mqtt.Config        `json:"mqtt"`
	Sentry      SentryConfig       `json:"sentry"`
	Maintenance maintenance.Config `json:"maintenance"`
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Ambulance.SetDefaults()
	c.Ambulance.FillTimings()
	c.Simulation.SetDefaults()
	c.Journal.SetDefaults()
	c.Store.SetDefaults()
	c.Billing.SetDefaults()
	c.API.SetDefaults()
	c.MQTT.SetDefaults()
	c.Maintenance.SetDefaults()
	c.Sentry.SetDefaults()
}

// Validate checks every section and joins the failures.
func (c *Config) Validate() error {
	var errs []error
	add := func(section string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", section, err))
		}
	}
	add("ambulance", c.Ambulance.Validate())
	add("simulation", c.Simulation.Validate())
	add("journal", c.Journal.Validate())
	add("billing", c.Billing.Validate())
	add("api", c.API.Validate())
	if c.MQTT.Enabled {
		add("mqtt", c.MQTT.Validate())
	}
	add("maintenance", c.Maintenance.Validate())
	add("sentry", c.Sentry.Validate())
	return errors.Join(errs...)
}

// Default returns the configuration used without a file.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// Load reads path, applies K_ prefixed environment overrides (K_SIMULATION__CLIENTS=5
// sets simulation.clients), fills defaults and validates. An empty path loads
// the environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
