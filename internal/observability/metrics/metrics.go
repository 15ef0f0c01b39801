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
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes lifecycle instruments.
type Metrics struct {
	transitions      metric.Int64Counter
	connectorCalls   metric.Int64Counter
	connectorLatency metric.Float64Histogram
	compensations    metric.Int64Counter
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

// New configures the lifecycle instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "pricesync"
	}
	meter := provider.Meter(name)

	transitions, err := meter.Int64Counter("pricesync_transitions_total")
	if err != nil {
		return nil, err
	}
	connectorCalls, err := meter.Int64Counter("pricesync_connector_calls_total")
	if err != nil {
		return nil, err
	}
	connectorLatency, err := meter.Float64Histogram("pricesync_connector_duration_seconds")
	if err != nil {
		return nil, err
	}
	compensations, err := meter.Int64Counter("pricesync_compensations_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		transitions:      transitions,
		connectorCalls:   connectorCalls,
		connectorLatency: connectorLatency,
		compensations:    compensations,
	}, nil
}

// RecordTransition counts a lifecycle call by action and outcome kind.
func (m *Metrics) RecordTransition(ctx context.Context, action, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("action", strings.TrimSpace(action)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.transitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordConnectorCall counts one UpdatePrice dispatch.
func (m *Metrics) RecordConnectorCall(ctx context.Context, target, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("target", strings.TrimSpace(target)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.connectorCalls.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.connectorLatency.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

// RecordCompensation counts one best-effort revert.
func (m *Metrics) RecordCompensation(ctx context.Context, target, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("target", strings.TrimSpace(target)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.compensations.Add(ctx, 1, metric.WithAttributes(attrs...))
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

// Project and price change ids are deliberately absent: they are unbounded.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"action":  {},
	"outcome": {},
	"target":  {},
	"route":   {},
	"method":  {},
	"status":  {},
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
