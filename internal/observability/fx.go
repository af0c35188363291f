// Package observability wires structured logging, tracing and the
// accounting metrics into the fx graph.
package observability

import (
	"github.com/consensusai/consensus/internal/observability/logger"
	"github.com/consensusai/consensus/internal/observability/metrics"
	"github.com/consensusai/consensus/internal/observability/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		Config.Logger,
		Config.Tracing,
		Config.Metrics,
		func() prometheus.Registerer { return prometheus.DefaultRegisterer },
	),
	fx.Provide(
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
		metrics.NewAccountingMetrics,
	),
	// the tracer provider installs the global propagator; force it to build
	fx.Invoke(func(trace.TracerProvider) {}),
)
