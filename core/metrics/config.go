package metrics

import "github.com/marcoioli/proyecto-programacion3-grupo12/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
	// PrometheusPort serves /metrics when set.
	PrometheusPort string `json:"prometheus_port" yaml:"prometheus_port"`
}
