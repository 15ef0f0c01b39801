package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/pricesync/internal/config"
	"github.com/smallbiznis/pricesync/internal/observability/logger"
	"github.com/smallbiznis/pricesync/internal/observability/metrics"
	"github.com/smallbiznis/pricesync/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		func(cfg config.Config) logger.Config {
			return logger.Config{
				Service:     cfg.AppName,
				Environment: cfg.Environment,
				Version:     cfg.AppVersion,
				Level:       cfg.LogLevel,
				Format:      cfg.LogFormat,
				Stacktrace:  cfg.Debug(),
			}
		},
		logger.New,
		func(cfg config.Config) tracing.Config {
			return tracing.Config{
				Enabled:          cfg.OtelEnabled,
				ServiceName:      cfg.AppName,
				ServiceVersion:   cfg.AppVersion,
				Environment:      cfg.Environment,
				ExporterEndpoint: cfg.OTLPEndpoint,
				ExporterProtocol: cfg.OTLPProtocol,
				SamplingRatio:    cfg.OtelSamplingRatio,
			}
		},
		tracing.NewProvider,
		func(cfg config.Config) metrics.Config {
			return metrics.Config{
				Enabled:          cfg.OtelEnabled,
				ExporterEndpoint: cfg.OTLPEndpoint,
				ExporterProtocol: cfg.OTLPProtocol,
				ServiceName:      cfg.AppName,
				Environment:      cfg.Environment,
			}
		},
		metrics.NewProvider,
		metrics.New,
		func() prometheus.Registerer { return prometheus.DefaultRegisterer },
		metrics.NewHTTPMetrics,
	),
	// Nothing else depends on the tracer provider; force it so the global
	// propagator and exporter are installed.
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)
