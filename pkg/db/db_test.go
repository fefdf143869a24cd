package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/smallbiznis/billingledger/internal/config"
	obslogger "github.com/smallbiznis/billingledger/internal/observability/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestConfigFromNormalizesType(t *testing.T) {
	cfg := ConfigFrom(config.Config{DBType: " Postgres ", DBName: "ledger", DBMaxOpenConn: 8})
	assert.Equal(t, "postgres", cfg.Type)
	assert.Equal(t, "ledger", cfg.Name)
	assert.Equal(t, 8, cfg.MaxOpenConn)
	assert.Equal(t, obslogger.DefaultGormLoggerConfig(), cfg.QueryLog)
}

func TestDialect(t *testing.T) {
	for _, typ := range []string{"postgres", "mysql", "sqlite"} {
		d, err := Dialect(Config{Type: typ, Host: "localhost", Port: "5432", Name: "ledger"})
		require.NoError(t, err, typ)
		assert.Equal(t, typ, d.Name())
	}

	_, err := Dialect(Config{Type: "oracle"})
	assert.Error(t, err)
}

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.False(t, IsDuplicateKeyErr(errors.New("connection refused")))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: ledger_subscriptions.id")))
	assert.True(t, IsDuplicateKeyErr(errors.New("Error 1062: Duplicate entry")))
}
