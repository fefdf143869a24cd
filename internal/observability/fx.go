package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/billingledger/internal/observability/logger"
	"github.com/smallbiznis/billingledger/internal/observability/metrics"
	"github.com/smallbiznis/billingledger/internal/observability/tracing"
	"github.com/smallbiznis/billingledger/pkg/telemetry"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		provideLoggerConfig,
		logger.New,
		provideTracingConfig,
		tracing.NewProvider,
		provideMetricsConfig,
		metrics.NewProvider,
		metrics.New,
		metrics.LedgerWithConfig,
		provideHTTPMetrics,
	),
	fx.Invoke(ensureTracingProvider),
)

func ensureTracingProvider(_ *sdktrace.TracerProvider) {}

func provideLoggerConfig(cfg Config) logger.Config {
	return logger.Config{
		ServiceName:         cfg.ServiceName,
		Environment:         cfg.Environment,
		Version:             cfg.Version,
		Level:               cfg.LogLevel,
		Format:              cfg.LogFormat,
		Debug:               cfg.Debug(),
		IncludeCaller:       true,
		IncludeStackOnError: cfg.Debug(),
	}
}

func provideTracingConfig(cfg Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.Otel.Enabled,
		ServiceName:      cfg.ServiceName,
		ServiceVersion:   cfg.Version,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.Otel.Endpoint,
		ExporterProtocol: cfg.Otel.Protocol,
		SamplingRatio:    cfg.Otel.SamplingRatio,
	}
}

func provideMetricsConfig(cfg Config) metrics.Config {
	return metrics.Config{
		Enabled:          cfg.Otel.Enabled,
		ExporterEndpoint: cfg.Otel.Endpoint,
		ExporterProtocol: cfg.Otel.Protocol,
		ServiceName:      cfg.ServiceName,
		Environment:      cfg.Environment,
	}
}

func provideHTTPMetrics() *telemetry.Metrics {
	return telemetry.NewMetrics(prometheus.DefaultRegisterer)
}
