package journal

import (
	"fmt"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/factory"
)

// Config defines settings for journal storage and rotation.
type Config struct {
	// Enabled turns the recorder on.
	Enabled bool `json:"enabled" yaml:"enabled"`
	// Backend selects a registered store type: "jsonl" or "sqlite" built in.
	Backend string `json:"backend" yaml:"backend"`
	Path    string `json:"path" yaml:"path"`
	// MaxSizeMB rotates a jsonl journal past this size. Zero disables rotation.
	MaxSizeMB  int `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int `json:"max_age_days" yaml:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
	if c.Path == "" {
		if c.Backend == "sqlite" {
			c.Path = "journal.db"
		} else {
			c.Path = "journal.jsonl"
		}
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if !backends.Has(c.Backend) {
		return fmt.Errorf("unknown journal backend %q (known: %v)", c.Backend, backends.Names())
	}
	if c.Path == "" {
		return fmt.Errorf("journal path is required")
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("journal rotation limits must not be negative")
	}
	return nil
}

func (c Config) module() factory.ModuleConfig {
	return factory.ModuleConfig{Type: c.Backend, Conf: map[string]any{
		"path":         c.Path,
		"max_size_mb":  c.MaxSizeMB,
		"max_backups":  c.MaxBackups,
		"max_age_days": c.MaxAgeDays,
	}}
}

var backends = factory.NewRegistry[Store]()

// RegisterBackend makes a store type selectable through Config.Backend.
func RegisterBackend(name string, f factory.Factory[Store]) error {
	return backends.Register(name, f)
}

func init() {
	backends.MustRegister("jsonl", func(conf map[string]any) (Store, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.MaxSizeMB > 0 {
			return NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
		}
		return NewJSONLStore(c.Path)
	})
	backends.MustRegister("sqlite", func(conf map[string]any) (Store, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewSQLiteStore(c.Path)
	})
}

// Open creates the store selected by cfg.
func Open(cfg Config) (Store, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return backends.Create(cfg.module())
}
