package observability

import (
	"strings"

	"github.com/consensusai/consensus/internal/config"
	"github.com/consensusai/consensus/internal/observability/logger"
	"github.com/consensusai/consensus/internal/observability/metrics"
	"github.com/consensusai/consensus/internal/observability/tracing"
)

const defaultServiceName = "consensus"

// Config is the observability view of the service configuration, split into
// per-signal configs by the methods below.
type Config struct {
	ServiceName  string
	Environment  string
	Version      string
	OTLPEndpoint string
	config.ObservabilityConfig
}

func LoadConfig(cfg config.Config) Config {
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = defaultServiceName
	}
	return Config{
		ServiceName:         name,
		Environment:         strings.TrimSpace(cfg.Environment),
		Version:             strings.TrimSpace(cfg.AppVersion),
		OTLPEndpoint:        strings.TrimSpace(cfg.OTLPEndpoint),
		ObservabilityConfig: cfg.Observability,
	}
}

// Debug turns on stack traces in logs. It follows LOG_LEVEL=debug or a
// non-production environment.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func (c Config) Logger() logger.Config {
	return logger.Config{
		ServiceName:         c.ServiceName,
		Environment:         c.Environment,
		Version:             c.Version,
		Level:               c.LogLevel,
		Format:              c.LogFormat,
		Debug:               c.Debug(),
		IncludeCaller:       true,
		IncludeStackOnError: c.Debug(),
	}
}

// Tracing exports spans only when OTEL_ENABLED is set and an endpoint exists.
func (c Config) Tracing() tracing.Config {
	return tracing.Config{
		Enabled:          c.OtelEnabled && c.OTLPEndpoint != "",
		ServiceName:      c.ServiceName,
		ServiceVersion:   c.Version,
		Environment:      c.Environment,
		ExporterEndpoint: c.OTLPEndpoint,
		SamplingRatio:    c.OtelSamplingRatio,
	}
}

func (c Config) Metrics() metrics.Config {
	return metrics.Config{
		Enabled:           c.OtelEnabled && c.OTLPEndpoint != "",
		ExporterEndpoint:  c.OTLPEndpoint,
		ExporterProtocol:  c.OtelProtocol,
		ServiceName:       c.ServiceName,
		Environment:       c.Environment,
		PrometheusEnabled: c.PrometheusEnabled,
	}
}
