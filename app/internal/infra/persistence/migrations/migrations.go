package migrations

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const (
	DialectSQLite   = "sqlite"
	DialectMySQL    = "mysql"
	DialectPostgres = "postgres"
)

//go:embed sqlite/*.sql mysql/*.sql postgres/*.sql
var files embed.FS

// Up applies the embedded schema for dialect through driver. It does not
// close driver; some drivers close the *sql.DB they were built from.
func Up(driver database.Driver, dialect string) error {
	src, err := iofs.New(files, dialect)
	if err != nil {
		return fmt.Errorf("could not load %s migrations: %w", dialect, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dialect, driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}
