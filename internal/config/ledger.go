package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// LedgerConfig tunes transaction listing. It is read from ledger.yml and
// reloaded when the file changes.
type LedgerConfig struct {
	DefaultPageSize    int           `mapstructure:"defaultPageSize"`
	SourceFetchTimeout time.Duration `mapstructure:"sourceFetchTimeout"`
	PivotLookupTimeout time.Duration `mapstructure:"pivotLookupTimeout"`
}

func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		DefaultPageSize:    50,
		SourceFetchTimeout: 5 * time.Second,
		PivotLookupTimeout: 2 * time.Second,
	}
}

type LedgerConfigHolder struct {
	current atomic.Value // holds LedgerConfig
}

func NewLedgerConfigHolder(log *zap.Logger) (*LedgerConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("ledger")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/billingledger")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BILLINGLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultLedgerConfig()
	v.SetDefault("ledger.defaultPageSize", defaults.DefaultPageSize)
	v.SetDefault("ledger.sourceFetchTimeout", defaults.SourceFetchTimeout)
	v.SetDefault("ledger.pivotLookupTimeout", defaults.PivotLookupTimeout)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := decodeLedgerConfig(v)
	if err != nil {
		return nil, err
	}
	if err := ValidateLedgerConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticLedgerConfigHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeLedgerConfig(v)
		if err != nil {
			log.Warn("ledger config reload failed", zap.Error(err))
			return
		}
		if err := ValidateLedgerConfig(updated); err != nil {
			log.Warn("invalid ledger config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("ledger config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// decodeLedgerConfig overlays the ledger section of the file on the defaults,
// so keys the file omits keep their default values.
func decodeLedgerConfig(v *viper.Viper) (LedgerConfig, error) {
	cfg := DefaultLedgerConfig()
	if err := v.UnmarshalKey("ledger", &cfg); err != nil {
		return LedgerConfig{}, err
	}
	return cfg, nil
}

// NewStaticLedgerConfigHolder holds cfg without watching any file.
func NewStaticLedgerConfigHolder(cfg LedgerConfig) *LedgerConfigHolder {
	holder := &LedgerConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *LedgerConfigHolder) Get() LedgerConfig {
	return h.current.Load().(LedgerConfig)
}

// ValidateLedgerConfig rejects page sizes outside [1, 200] and non-positive timeouts.
func ValidateLedgerConfig(cfg LedgerConfig) error {
	if cfg.DefaultPageSize < 1 || cfg.DefaultPageSize > 200 {
		return fmt.Errorf("ledger.defaultPageSize must be within [1, 200], got %d", cfg.DefaultPageSize)
	}
	if cfg.SourceFetchTimeout <= 0 {
		return errors.New("ledger.sourceFetchTimeout must be positive")
	}
	if cfg.PivotLookupTimeout <= 0 {
		return errors.New("ledger.pivotLookupTimeout must be positive")
	}
	return nil
}
