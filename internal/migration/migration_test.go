package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/billingledger/internal/transaction/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// openMySQLWithoutServer builds a mysql handle that never dials, which is
// enough to inspect the DDL types and session options AutoMigrate would use.
func openMySQLWithoutServer(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "ledger:secret@tcp(127.0.0.1:3306)/ledger?charset=utf8mb4&parseTime=True&loc=UTC",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)
	return conn
}

func productColumnType(t *testing.T, conn *gorm.DB, model any) string {
	t.Helper()
	stmt := &gorm.Statement{DB: conn}
	require.NoError(t, stmt.Parse(model))
	field := stmt.Schema.LookUpField("Product")
	require.NotNil(t, field)
	return conn.Migrator().FullDataTypeOf(field).SQL
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)

	ups, downs := 0, 0
	for _, entry := range entries {
		switch {
		case strings.HasSuffix(entry.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(entry.Name(), ".down.sql"):
			downs++
		}
	}
	assert.Positive(t, ups)
	assert.Equal(t, ups, downs)
}

func TestEmbeddedMigrationsCreateEveryTable(t *testing.T) {
	raw, err := fs.ReadFile(embeddedMigrations, migrationsDir+"/000001_create_ledger_tables.up.sql")
	require.NoError(t, err)
	sql := string(raw)

	for _, table := range []string{
		"ledger_subscriptions",
		"ledger_one_time_purchases",
		"ledger_item_quantity_changes",
		"ledger_subscription_invoices",
	} {
		assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS "+table)
		assert.Contains(t, sql, "ON "+table+" (tenant_id, created_at DESC, id DESC)")
	}
}

func TestRunAutoMigratesSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migration_run?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, Run(conn))
	for _, table := range []string{
		"ledger_subscriptions",
		"ledger_one_time_purchases",
		"ledger_item_quantity_changes",
		"ledger_subscription_invoices",
	} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
	require.NoError(t, Run(conn))
}

func TestAutoMigrateSQLiteSession(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migration_session?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	_, ok := autoMigrateSession(conn).Get("gorm:table_options")
	assert.False(t, ok)
	assert.Equal(t, "JSON", productColumnType(t, conn, &domain.Subscription{}))
	assert.Equal(t, "JSON", productColumnType(t, conn, &domain.OneTimePurchase{}))
}

func TestAutoMigrateMySQLSession(t *testing.T) {
	conn := openMySQLWithoutServer(t)

	opts, ok := autoMigrateSession(conn).Get("gorm:table_options")
	require.True(t, ok)
	assert.Equal(t, mysqlTableOptions, opts)
	assert.Contains(t, mysqlTableOptions, "COLLATE=utf8mb4_bin")

	assert.Equal(t, "JSON", productColumnType(t, conn, &domain.Subscription{}))
	assert.Equal(t, "JSON", productColumnType(t, conn, &domain.OneTimePurchase{}))
}

func TestRunRequiresHandle(t *testing.T) {
	assert.Error(t, Run(nil))
	assert.Error(t, RunMigrations(nil))
}
