package sqlite

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"

	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations applies the database migrations from the specified path to the
// sqlite database at dbPath. Already-applied migrations are skipped, so calling
// it at every startup is safe.
func RunMigrations(path string, dbPath string) error {
	const op = "sqlite.RunMigrations"

	m, err := migrate.New(path, fmt.Sprintf("sqlite3://%s", dbPath))
	if err != nil {
		return fmt.Errorf("%s: failed to initialize migrations: %w", op, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	return nil
}
