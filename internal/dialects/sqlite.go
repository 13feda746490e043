package dialects

import (
	"fmt"
	"strings"
)

// SQLiteDialect implements SQLite-specific SQL dialect.
type SQLiteDialect struct{}

func init() {
	RegisterDialect("sqlite", &SQLiteDialect{})
	RegisterDialect("sqlite3", &SQLiteDialect{})
}

// Name returns "sqlite".
func (d *SQLiteDialect) Name() string { return "sqlite" }

// QuoteIdentifier quotes a SQLite identifier using double quotes.
func (d *SQLiteDialect) QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Placeholder returns SQLite placeholder format (always "?").
func (d *SQLiteDialect) Placeholder(_ int) string {
	return "?"
}

// UpsertSQL generates SQLite UPSERT syntax using ON CONFLICT.
func (d *SQLiteDialect) UpsertSQL(conflictCols, updateCols []string) string {
	return onConflict(d, conflictCols, updateCols, "excluded")
}

// ColumnsSQL lists columns through the table_info pragma function.
func (d *SQLiteDialect) ColumnsSQL(table string) (string, []interface{}) {
	return "SELECT name FROM pragma_table_info(?) ORDER BY cid", []interface{}{table}
}

// DeleteLimitSQL restricts the DELETE through rowid; DELETE ... LIMIT is only
// available in SQLite builds compiled with SQLITE_ENABLE_UPDATE_DELETE_LIMIT.
func (d *SQLiteDialect) DeleteLimitSQL(quotedTable, where string, limit int) string {
	return fmt.Sprintf("DELETE FROM %s WHERE rowid IN (SELECT rowid FROM %s%s LIMIT %d)",
		quotedTable, quotedTable, where, limit)
}

// ReturningSQL returns "": SQLite drivers report LastInsertId.
func (d *SQLiteDialect) ReturningSQL(_ string) string {
	return ""
}

// LimitSQL renders LIMIT/OFFSET; SQLite reads a negative LIMIT as unbounded.
func (d *SQLiteDialect) LimitSQL(limit, offset int) string {
	return limitOffset(limit, offset, "-1")
}

// OrderInDistinct returns false.
func (d *SQLiteDialect) OrderInDistinct() bool {
	return false
}
