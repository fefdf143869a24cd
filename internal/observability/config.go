package observability

import (
	"strings"
	"time"

	"github.com/smallbiznis/billingledger/internal/config"
	"github.com/smallbiznis/billingledger/internal/observability/logger"
	gormlogger "gorm.io/gorm/logger"
)

const defaultServiceName = "billingledger"

// Config is the observability view of the service configuration.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	Otel    OtelConfig
	Queries QueryLogConfig
}

// OtelConfig selects the OTLP exporter shared by traces and metrics.
type OtelConfig struct {
	Enabled       bool
	Endpoint      string
	Protocol      string
	SamplingRatio float64
}

// QueryLogConfig controls logging of the per-source ledger queries.
type QueryLogConfig struct {
	// SlowThreshold marks a source fetch or pivot lookup as slow (WARN).
	SlowThreshold time.Duration
	// LogAll logs every query at DEBUG.
	LogAll bool
}

func LoadConfig(cfg config.Config) Config {
	obs := cfg.Observability

	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	slow := time.Duration(obs.SlowQueryMS) * time.Millisecond
	if slow < 0 {
		slow = 0
	}

	return Config{
		ServiceName: serviceName,
		Environment: strings.TrimSpace(cfg.Environment),
		Version:     strings.TrimSpace(cfg.AppVersion),
		LogLevel:    normalize(obs.LogLevel, "info"),
		LogFormat:   normalize(obs.LogFormat, "json"),
		Otel: OtelConfig{
			Enabled:       obs.OtelEnabled,
			Endpoint:      strings.TrimSpace(cfg.OTLPEndpoint),
			Protocol:      normalize(obs.OtelProtocol, "grpc"),
			SamplingRatio: clampRatio(obs.OtelSamplingRatio),
		},
		Queries: QueryLogConfig{
			SlowThreshold: slow,
			LogAll:        obs.LogQueries,
		},
	}
}

// Debug is true for debug logging or a development environment.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// GormLogger builds the query logger settings. Missing records are expected
// on pivot lookups for deleted rows, so they are never logged as errors.
func (c Config) GormLogger() logger.GormLoggerConfig {
	level := gormlogger.Warn
	if c.Queries.LogAll {
		level = gormlogger.Info
	}
	return logger.GormLoggerConfig{
		Level:                level,
		SlowThreshold:        c.Queries.SlowThreshold,
		IgnoreRecordNotFound: true,
	}
}

func normalize(value, def string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return def
	}
	return value
}

func clampRatio(ratio float64) float64 {
	switch {
	case ratio < 0:
		return 0
	case ratio > 1:
		return 1
	default:
		return ratio
	}
}
