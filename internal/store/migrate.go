package store

import (
	"embed"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mongodb"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed all:migrations
var migrations embed.FS

// Bootstrap runs all pending index migrations against the Mongo database,
// using a dedicated migrate.Migrate instance so golang-migrate's lifecycle
// management never touches the application's long-lived client (adapted
// from the teacher's runMigrations/newMigrator split in internal/db).
func Bootstrap(uri, database string) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("store: open migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, migrateDSN(uri, database))
	if err != nil {
		return fmt.Errorf("store: create migrator: %w", err)
	}
	defer func() {
		_, _ = m.Close()
	}()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("store: run migrations: %w", err)
	}
	return nil
}

// migrateDSN builds the mongodb:// DSN golang-migrate's mongodb driver
// expects: the target database as the URL path. MONGODB_URI is not
// expected to carry a path component of its own.
func migrateDSN(uri, database string) string {
	return strings.TrimRight(uri, "/") + "/" + database
}
