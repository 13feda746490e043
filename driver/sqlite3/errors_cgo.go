//go:build cgo

package sqlite3

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// IsConstraint reports whether err is a constraint violation.
func IsConstraint(err error) bool {
	var e sqlite3.Error
	return errors.As(err, &e) && e.Code == sqlite3.ErrConstraint
}
