package config

import (
	"fmt"
	"strings"
)

// APIConfig defines the HTTP API listener.
type APIConfig struct {
	// Listen is the address of the API server. Empty disables it.
	Listen string `json:"listen"`
	// Token enables bearer authentication when set.
	Token string `json:"token"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
}

// Validate checks the listen address.
func (c APIConfig) Validate() error {
	if c.Listen == "-" {
		return nil
	}
	if c.Listen != "" && !strings.Contains(c.Listen, ":") {
		return fmt.Errorf("listen address %q needs a port", c.Listen)
	}
	return nil
}

// Enabled reports whether the API server should run. "-" disables it.
func (c APIConfig) Enabled() bool { return c.Listen != "" && c.Listen != "-" }
