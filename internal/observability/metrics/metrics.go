package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled           bool
	ExporterEndpoint  string
	ExporterProtocol  string
	ServiceName       string
	Environment       string
	PrometheusEnabled bool
}

// Metrics exposes the accounting instruments exported over OTLP.
type Metrics struct {
	usageEvents        metric.Int64Counter
	usageCost          metric.Float64Counter
	quotaDecisions     metric.Int64Counter
	subscriptionEvents metric.Int64Counter
	rateLimitAllowed   metric.Int64Counter
	rateLimitDenied    metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

// New creates the accounting instruments on provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "consensus"
	}
	meter := provider.Meter(name)

	m := &Metrics{}
	var err error
	if m.usageEvents, err = meter.Int64Counter("consensus_usage_events_total",
		metric.WithDescription("Usage events appended to the log.")); err != nil {
		return nil, err
	}
	if m.usageCost, err = meter.Float64Counter("consensus_usage_cost_usd_total",
		metric.WithDescription("Actual cost of recorded usage in USD."), metric.WithUnit("USD")); err != nil {
		return nil, err
	}
	if m.quotaDecisions, err = meter.Int64Counter("consensus_quota_decisions_total"); err != nil {
		return nil, err
	}
	if m.subscriptionEvents, err = meter.Int64Counter("consensus_subscription_transitions_total"); err != nil {
		return nil, err
	}
	if m.rateLimitAllowed, err = meter.Int64Counter("consensus_rate_limit_allowed_total"); err != nil {
		return nil, err
	}
	if m.rateLimitDenied, err = meter.Int64Counter("consensus_rate_limit_denied_total"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordUsageEvent counts an appended event and its cost.
func (m *Metrics) RecordUsageEvent(ctx context.Context, eventType, model string, cost float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(
		attribute.String("event_type", eventType),
		attribute.String("model", model),
	)...)
	m.usageEvents.Add(ctx, 1, attrs)
	if cost > 0 {
		m.usageCost.Add(ctx, cost, attrs)
	}
}

// RecordQuotaDecision counts CheckQuota outcomes per tier.
func (m *Metrics) RecordQuotaDecision(ctx context.Context, tier string, allowed bool) {
	if m == nil {
		return
	}
	m.quotaDecisions.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("tier", tier),
		attribute.Bool("allowed", allowed),
	)...))
}

// RecordSubscriptionTransition counts subscription status changes.
func (m *Metrics) RecordSubscriptionTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	m.subscriptionEvents.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	)...))
}

func (m *Metrics) RecordRateLimitAllowed(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	m.rateLimitAllowed.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
	)...))
}

func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

// user_id is deliberately absent: it is unbounded.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"tier":        {},
	"model":       {},
	"event_type":  {},
	"allowed":     {},
	"from":        {},
	"to":          {},
	"endpoint":    {},
	"status_code": {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
