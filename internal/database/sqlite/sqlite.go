package sqlite

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

func isUniqueViolationError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
