// Package sqlite3 opens relmodel databases on the cgo driver
// github.com/mattn/go-sqlite3. Binaries built without cgo can import it but
// fail to connect; use package sqlite there.
package sqlite3

import (
	"strings"

	"github.com/coregx/relmodel"
	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
)

// DriverName is the database/sql driver and dialect name.
const DriverName = "sqlite3"

// Open opens the database file at dsn with foreign key enforcement enabled.
func Open(dsn string, opts ...relmodel.Option) (*relmodel.DB, error) {
	return relmodel.Open(DriverName, withForeignKeys(dsn), opts...)
}

// OpenMemory opens a private in-memory database on a single connection.
func OpenMemory(opts ...relmodel.Option) (*relmodel.DB, error) {
	return Open(":memory:", append([]relmodel.Option{relmodel.WithMaxOpenConns(1)}, opts...)...)
}

func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=1"
	}
	return dsn + "?_foreign_keys=1"
}
