package observability

import (
	"testing"
	"time"

	"github.com/smallbiznis/billingledger/internal/config"
	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig(config.Config{
		Environment:  "production",
		AppVersion:   "1.2.3",
		OTLPEndpoint: " collector:4317 ",
	})

	assert.Equal(t, "billingledger", cfg.ServiceName)
	assert.Equal(t, "1.2.3", cfg.Version)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "collector:4317", cfg.Otel.Endpoint)
	assert.Equal(t, "grpc", cfg.Otel.Protocol)
	assert.Zero(t, cfg.Queries.SlowThreshold)
	assert.False(t, cfg.Debug())
}

func TestLoadConfigNormalizesObservabilitySettings(t *testing.T) {
	cfg := LoadConfig(config.Config{
		AppName: "ledger-api",
		Observability: config.ObservabilityConfig{
			LogLevel:          " DEBUG ",
			LogFormat:         "Console",
			OtelEnabled:       true,
			OtelProtocol:      "HTTP",
			OtelSamplingRatio: 4,
			SlowQueryMS:       150,
			LogQueries:        true,
		},
	})

	assert.Equal(t, "ledger-api", cfg.ServiceName)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.True(t, cfg.Otel.Enabled)
	assert.Equal(t, "http", cfg.Otel.Protocol)
	assert.Equal(t, 1.0, cfg.Otel.SamplingRatio)
	assert.Equal(t, 150*time.Millisecond, cfg.Queries.SlowThreshold)
	assert.True(t, cfg.Debug())

	negative := LoadConfig(config.Config{Observability: config.ObservabilityConfig{OtelSamplingRatio: -1, SlowQueryMS: -5}})
	assert.Zero(t, negative.Otel.SamplingRatio)
	assert.Zero(t, negative.Queries.SlowThreshold)
}

func TestGormLoggerConfig(t *testing.T) {
	cfg := Config{Queries: QueryLogConfig{SlowThreshold: 250 * time.Millisecond}}
	gormCfg := cfg.GormLogger()
	assert.Equal(t, gormlogger.Warn, gormCfg.Level)
	assert.Equal(t, 250*time.Millisecond, gormCfg.SlowThreshold)
	assert.True(t, gormCfg.IgnoreRecordNotFound)

	cfg.Queries.LogAll = true
	assert.Equal(t, gormlogger.Info, cfg.GormLogger().Level)
}

func TestDebugInDevEnvironments(t *testing.T) {
	for _, env := range []string{"dev", "Local", "test"} {
		assert.True(t, Config{Environment: env}.Debug(), env)
	}
	assert.False(t, Config{Environment: "staging"}.Debug())
}
