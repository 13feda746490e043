package dialects

import (
	"fmt"
	"strings"
)

// MySQLDialect implements MySQL-specific SQL dialect.
type MySQLDialect struct{}

func init() {
	RegisterDialect("mysql", &MySQLDialect{})
}

// Name returns "mysql".
func (d *MySQLDialect) Name() string { return "mysql" }

// QuoteIdentifier quotes a MySQL identifier using backticks.
func (d *MySQLDialect) QuoteIdentifier(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

// Placeholder returns MySQL placeholder format (always "?").
func (d *MySQLDialect) Placeholder(_ int) string {
	return "?"
}

// UpsertSQL generates MySQL UPSERT syntax using ON DUPLICATE KEY UPDATE.
// MySQL infers the conflicting key from the table's unique indexes, so the
// conflict columns are ignored. "Do nothing" is rendered as a self-assignment
// of the first conflict column.
func (d *MySQLDialect) UpsertSQL(conflictCols, updateCols []string) string {
	if updateCols == nil {
		if len(conflictCols) == 0 {
			return ""
		}
		q := d.QuoteIdentifier(conflictCols[0])
		return fmt.Sprintf(" ON DUPLICATE KEY UPDATE %s = %s", q, q)
	}

	updates := make([]string, len(updateCols))
	for i, col := range updateCols {
		q := d.QuoteIdentifier(col)
		updates[i] = fmt.Sprintf("%s = VALUES(%s)", q, q)
	}
	return " ON DUPLICATE KEY UPDATE " + strings.Join(updates, ", ")
}

// ColumnsSQL lists columns of a table in the connected database.
func (d *MySQLDialect) ColumnsSQL(table string) (string, []interface{}) {
	return "SELECT column_name AS name FROM information_schema.columns " +
		"WHERE table_schema = DATABASE() AND table_name = ? " +
		"ORDER BY ordinal_position", []interface{}{table}
}

// DeleteLimitSQL uses the native DELETE ... LIMIT.
func (d *MySQLDialect) DeleteLimitSQL(quotedTable, where string, limit int) string {
	return fmt.Sprintf("DELETE FROM %s%s LIMIT %d", quotedTable, where, limit)
}

// ReturningSQL returns "": go-sql-driver/mysql reports LastInsertId.
func (d *MySQLDialect) ReturningSQL(_ string) string {
	return ""
}

// LimitSQL renders LIMIT/OFFSET. MySQL requires a LIMIT before OFFSET, so
// the largest unsigned BIGINT stands in for "no limit".
func (d *MySQLDialect) LimitSQL(limit, offset int) string {
	return limitOffset(limit, offset, "18446744073709551615")
}

// OrderInDistinct returns true; MySQL 5.7+ fails with error 3065 otherwise.
func (d *MySQLDialect) OrderInDistinct() bool {
	return true
}
