package maintenance

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config defines the maintenance plan.
type Config struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// Spec is a five field cron expression or a descriptor such as "@daily".
	Spec string `json:"spec" yaml:"spec"`
	// TimeoutMS bounds how long a scheduled request may wait for the vehicle.
	TimeoutMS int `json:"timeout_ms" yaml:"timeout_ms"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Spec == "" {
		c.Spec = "0 3 * * *"
	}
	if c.TimeoutMS == 0 {
		c.TimeoutMS = 30 * 60 * 1000
	}
}

// Validate checks the cron expression.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if _, err := parser.Parse(c.Spec); err != nil {
		return fmt.Errorf("maintenance spec %q: %w", c.Spec, err)
	}
	if c.TimeoutMS < 0 {
		return fmt.Errorf("maintenance timeout_ms must not be negative")
	}
	return nil
}

// Timeout returns TimeoutMS as a duration; zero means no limit.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// LoadConfig loads a Config from a JSON or YAML file.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer func() { _ = f.Close() }()
	return DecodeConfig(f, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
}

// DecodeConfig reads from r to decode a Config.
func DecodeConfig(r io.Reader, format string) (Config, error) {
	var cfg Config
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
			return cfg, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported format: %s", format)
	}
	cfg.SetDefaults()
	return cfg, cfg.Validate()
}
