// Package sqlite opens relmodel databases on the pure Go modernc.org/sqlite
// driver.
package sqlite

import (
	"errors"
	"strings"

	"github.com/coregx/relmodel"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DriverName is the database/sql driver and dialect name.
const DriverName = "sqlite"

// Open opens the database file at dsn. Foreign key enforcement is enabled
// on every connection.
func Open(dsn string, opts ...relmodel.Option) (*relmodel.DB, error) {
	return relmodel.Open(DriverName, withPragma(dsn, "foreign_keys(1)"), opts...)
}

// OpenMemory opens a private in-memory database. The pool is limited to one
// connection since every connection to ":memory:" is a separate database.
func OpenMemory(opts ...relmodel.Option) (*relmodel.DB, error) {
	return Open(":memory:", append([]relmodel.Option{relmodel.WithMaxOpenConns(1)}, opts...)...)
}

// IsConstraint reports whether err is a constraint violation (unique,
// foreign key, not null or check).
func IsConstraint(err error) bool {
	var e *sqlite.Error
	return errors.As(err, &e) && e.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

func withPragma(dsn, pragma string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=" + pragma
}
