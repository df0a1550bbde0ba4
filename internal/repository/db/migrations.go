package db

import (
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func MigrateUp(db *sql.DB, migrationsURL string) error {
	return runMigrations(db, migrationsURL, (*migrate.Migrate).Up)
}

func MigrateDown(db *sql.DB, migrationsURL string) error {
	return runMigrations(db, migrationsURL, (*migrate.Migrate).Down)
}

// runMigrations applies the given step, treating an already current schema
// as success.
func runMigrations(db *sql.DB, migrationsURL string, step func(*migrate.Migrate) error) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("db.runMigrations: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(migrationsURL, "postgres", driver)
	if err != nil {
		return fmt.Errorf("db.runMigrations: %w", err)
	}

	if err := step(m); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("db.runMigrations: %w", err)
	}
	return nil
}
