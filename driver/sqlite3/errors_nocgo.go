//go:build !cgo

package sqlite3

// IsConstraint always reports false; without cgo no statement can run.
func IsConstraint(error) bool { return false }
