package dialects

import (
	"fmt"
	"strings"
)

// PostgresDialect implements PostgreSQL-specific SQL dialect.
type PostgresDialect struct{}

func init() {
	RegisterDialect("postgres", &PostgresDialect{})
	RegisterDialect("postgresql", &PostgresDialect{})
	RegisterDialect("pgx", &PostgresDialect{})
}

// Name returns "postgres".
func (d *PostgresDialect) Name() string { return "postgres" }

// QuoteIdentifier quotes a PostgreSQL identifier using double quotes.
func (d *PostgresDialect) QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Placeholder returns PostgreSQL placeholder format ($1, $2, etc.).
func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

// UpsertSQL generates PostgreSQL UPSERT syntax using ON CONFLICT.
func (d *PostgresDialect) UpsertSQL(conflictCols, updateCols []string) string {
	return onConflict(d, conflictCols, updateCols, "EXCLUDED")
}

// ColumnsSQL lists columns of a table in the current schema.
func (d *PostgresDialect) ColumnsSQL(table string) (string, []interface{}) {
	return "SELECT column_name AS name FROM information_schema.columns " +
		"WHERE table_schema = current_schema() AND table_name = ? " +
		"ORDER BY ordinal_position", []interface{}{table}
}

// DeleteLimitSQL restricts the DELETE through the physical row id, since
// PostgreSQL has no DELETE ... LIMIT.
func (d *PostgresDialect) DeleteLimitSQL(quotedTable, where string, limit int) string {
	return fmt.Sprintf("DELETE FROM %s WHERE ctid IN (SELECT ctid FROM %s%s LIMIT %d)",
		quotedTable, quotedTable, where, limit)
}

// ReturningSQL reads the generated key back with RETURNING; lib/pq does not
// implement LastInsertId.
func (d *PostgresDialect) ReturningSQL(pk string) string {
	if pk == "" {
		return ""
	}
	return " RETURNING " + d.QuoteIdentifier(pk)
}

// onConflict renders the ON CONFLICT clause shared by PostgreSQL and SQLite.
func onConflict(d Dialect, conflictCols, updateCols []string, excluded string) string {
	target := ""
	if len(conflictCols) > 0 {
		target = " (" + strings.Join(quoteAll(d, conflictCols), ", ") + ")"
	}

	if updateCols == nil {
		return " ON CONFLICT" + target + " DO NOTHING"
	}

	updates := make([]string, len(updateCols))
	for i, col := range updateCols {
		q := d.QuoteIdentifier(col)
		updates[i] = fmt.Sprintf("%s = %s.%s", q, excluded, q)
	}
	return " ON CONFLICT" + target + " DO UPDATE SET " + strings.Join(updates, ", ")
}

// LimitSQL renders LIMIT/OFFSET; OFFSET may stand alone.
func (d *PostgresDialect) LimitSQL(limit, offset int) string {
	return limitOffset(limit, offset, "")
}

// OrderInDistinct returns true: PostgreSQL rejects ORDER BY expressions that
// are missing from a SELECT DISTINCT list.
func (d *PostgresDialect) OrderInDistinct() bool {
	return true
}
