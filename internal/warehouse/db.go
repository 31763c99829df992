// Package warehouse provides the MySQL warehouse connection, its embedded
// schema migrations, and the idempotent-append writer for normalized
// messages and extracted transactions.
package warehouse

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"tradewatch/internal/config"
	"tradewatch/migrations"

	_ "github.com/go-sql-driver/mysql" //revive:disable:blank-imports
)

// Open initializes, applies migrations, and returns a new warehouse
// connection pool.
func Open(cfg config.WarehouseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to warehouse: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := ApplyMigrations(db.DB); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("Error closing warehouse after migration failure", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to apply warehouse migrations: %w", err)
	}

	slog.Info("Warehouse connected and migrations applied successfully")
	return db, nil
}

// CloseDB closes the warehouse connection pool.
func CloseDB(db *sqlx.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		slog.Error("Error closing warehouse connection", "error", err)
	} else {
		slog.Info("Warehouse connection closed.")
	}
}

// ApplyMigrations runs the embedded warehouse migrations.
func ApplyMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("warehouse connection is nil, cannot apply migrations")
	}

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create embed source driver instance: %w", err)
	}

	dbDriver, err := migratemysql.WithInstance(db, &migratemysql.Config{})
	if err != nil {
		return fmt.Errorf("failed to create mysql database driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, "mysql", dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("No warehouse migrations to apply.")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	slog.Info("Warehouse migrations applied successfully.")
	return nil
}
