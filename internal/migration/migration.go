package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/smallbiznis/billingledger/internal/transaction/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

// mysqlTableOptions gives every string column a binary collation so id
// comparisons in SQL agree with byte-wise ordering in Go.
const mysqlTableOptions = "ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Run brings the ledger tables up to date. Postgres uses the versioned SQL
// migrations; other dialects are created from the models.
func Run(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}

	if conn.Dialector.Name() != "postgres" {
		return AutoMigrate(conn)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// migrator.Close would close the shared *sql.DB.

	return nil
}

// AutoMigrate creates the ledger tables from the gorm models.
func AutoMigrate(conn *gorm.DB) error {
	if err := autoMigrateSession(conn).AutoMigrate(
		&domain.Subscription{},
		&domain.OneTimePurchase{},
		&domain.ItemQuantityChange{},
		&domain.SubscriptionInvoice{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func autoMigrateSession(conn *gorm.DB) *gorm.DB {
	if conn.Dialector.Name() == "mysql" {
		return conn.Set("gorm:table_options", mysqlTableOptions)
	}
	return conn
}
