// Package dialects provides database-specific SQL dialect implementations for
// PostgreSQL, MySQL, and SQLite, handling identifier quoting, placeholders,
// column introspection, DELETE limits and UPSERT suffixes.
package dialects

import (
	"strconv"
	"strings"
	"sync"
)

// Dialect defines database-specific behaviors.
type Dialect interface {
	// Name returns the canonical dialect name (postgres, mysql, sqlite).
	Name() string
	QuoteIdentifier(string) string
	Placeholder(int) string
	// UpsertSQL returns the conflict clause appended to an INSERT statement.
	// A nil updateCols slice means "do nothing" on conflict.
	UpsertSQL(conflictCols, updateCols []string) string
	// ColumnsSQL returns a query listing the columns of table in declaration
	// order. The result set exposes a single "name" column.
	ColumnsSQL(table string) (string, []interface{})
	// DeleteLimitSQL renders a DELETE restricted to limit rows. where is either
	// empty or starts with " WHERE ".
	DeleteLimitSQL(quotedTable, where string, limit int) string
	// ReturningSQL returns the suffix needed to read back a generated key from
	// an INSERT, or "" when the driver reports it through LastInsertId.
	ReturningSQL(pk string) string
	// LimitSQL renders the LIMIT/OFFSET suffix. A negative limit means no
	// limit; a non-positive offset is omitted.
	LimitSQL(limit, offset int) string
	// OrderInDistinct reports whether the ORDER BY columns of a SELECT
	// DISTINCT must also appear in its select list.
	OrderInDistinct() bool
}

var (
	mu       sync.RWMutex
	dialects = make(map[string]Dialect)
)

// RegisterDialect registers a database dialect by driver name.
func RegisterDialect(name string, d Dialect) {
	mu.Lock()
	defer mu.Unlock()
	dialects[name] = d
}

// LookupDialect retrieves a registered dialect by driver name.
func LookupDialect(name string) (Dialect, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := dialects[name]
	return d, ok
}

// GetDialect retrieves a registered dialect by driver name, panics if not found.
func GetDialect(name string) Dialect {
	if d, ok := LookupDialect(name); ok {
		return d
	}
	panic("unsupported dialect: " + name)
}

// QuoteQualified quotes every dot-separated part of a column reference, so
// "u.name" becomes "u"."name" for PostgreSQL. A "*" part is left bare.
// Expressions (anything containing parentheses or spaces) are returned as-is.
func QuoteQualified(d Dialect, ident string) string {
	if ident == "" || strings.ContainsAny(ident, "( ") {
		return ident
	}
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		if p == "*" {
			continue
		}
		parts[i] = d.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// limitOffset renders LIMIT/OFFSET, using noLimit as the LIMIT value when
// only an offset is requested.
func limitOffset(limit, offset int, noLimit string) string {
	var sb strings.Builder
	switch {
	case limit >= 0:
		sb.WriteString(" LIMIT " + strconv.Itoa(limit))
	case offset > 0 && noLimit != "":
		sb.WriteString(" LIMIT " + noLimit)
	}
	if offset > 0 {
		sb.WriteString(" OFFSET " + strconv.Itoa(offset))
	}
	return sb.String()
}

// quoteAll quotes each column name with the dialect.
func quoteAll(d Dialect, cols []string) []string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdentifier(c)
	}
	return quoted
}
