// Package postgres opens relmodel databases on github.com/lib/pq.
package postgres

import (
	"errors"
	"fmt"

	"github.com/coregx/relmodel"
	"github.com/lib/pq"
)

// DriverName is the dialect name used for databases opened by this package.
const DriverName = "postgres"

// uniqueViolation is the SQLSTATE of unique_violation.
const uniqueViolation = "23505"

// Open parses dsn, either key=value pairs or a postgres:// URL, and opens a
// database on it. No connection is made until the first statement.
func Open(dsn string, opts ...relmodel.Option) (*relmodel.DB, error) {
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	return relmodel.OpenConnector(connector, DriverName, opts...)
}

// IsUniqueViolation reports whether err carries a unique_violation error
// from the server.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
