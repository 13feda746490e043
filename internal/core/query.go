package core

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/coregx/relmodel/internal/tracer"
)

// statement is a fully rendered SQL statement.
type statement struct {
	sql   string
	args  []interface{}
	table string
	// columns names the leading args bound to data columns, for log masking.
	columns []string
}

// errStmtClosed is what database/sql returns for a statement that was closed
// after being evicted from the cache.
const errStmtClosed = "sql: statement is closed"

func (db *DB) prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	if stmt, ok := db.stmtCache.Get(query); ok {
		return stmt, nil
	}
	stmt, err := db.sqlDB.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return db.stmtCache.Put(query, stmt), nil
}

// withStmt runs fn on the cached statement for query. A statement evicted
// between lookup and use is prepared again once.
func (db *DB) withStmt(ctx context.Context, query string, fn func(*sql.Stmt) error) error {
	for attempt := 0; ; attempt++ {
		stmt, err := db.prepare(ctx, query)
		if err != nil {
			return err
		}
		err = fn(stmt)
		if err != nil && attempt == 0 && err.Error() == errStmtClosed {
			continue
		}
		return err
	}
}

func (db *DB) query(ctx context.Context, st statement) ([]map[string]interface{}, error) {
	var result []map[string]interface{}
	err := db.instrument(ctx, st, func(ctx context.Context) (int64, error) {
		err := db.withStmt(ctx, st.sql, func(stmt *sql.Stmt) error {
			rows, err := stmt.QueryContext(ctx, st.args...)
			if err != nil {
				return err
			}
			defer func() { _ = rows.Close() }()
			result, err = scanMaps(rows)
			return err
		})
		return int64(len(result)), err
	})
	return result, err
}

func (db *DB) exec(ctx context.Context, st statement) (sql.Result, error) {
	var res sql.Result
	err := db.instrument(ctx, st, func(ctx context.Context) (int64, error) {
		err := db.withStmt(ctx, st.sql, func(stmt *sql.Stmt) error {
			var err error
			res, err = stmt.ExecContext(ctx, st.args...)
			return err
		})
		if err != nil {
			return 0, err
		}
		n, _ := res.RowsAffected()
		return n, nil
	})
	return res, err
}

// instrument runs a statement inside a span, then logs it and calls the hook.
// Errors are wrapped with the operation and table.
func (db *DB) instrument(ctx context.Context, st statement, run func(context.Context) (int64, error)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	op := tracer.DetectOperation(st.sql)

	ctx, span := tracer.StartQuery(ctx, db.tracer, st.sql, st.table)
	defer span.End()

	start := time.Now()
	rows, err := run(ctx)
	elapsed := time.Since(start)

	tracer.AddQueryAttributes(span, &tracer.QueryMetadata{
		SQL:       st.sql,
		Database:  db.dialect.Name(),
		Operation: op,
		Table:     st.table,
		Duration:  elapsed,
		Rows:      rows,
		Error:     err,
	})

	masked := db.sanitizer.Mask(st.sql, st.columns, st.args)
	if err != nil {
		db.logger.Error("query failed",
			"sql", st.sql,
			"params", db.sanitizer.FormatParams(masked),
			"duration_ms", elapsed.Milliseconds(),
			"database", db.driverName,
			"error", err,
		)
	} else {
		db.logger.Info("query executed",
			"sql", st.sql,
			"params", db.sanitizer.FormatParams(masked),
			"duration_ms", elapsed.Milliseconds(),
			"rows", rows,
			"database", db.driverName,
		)
	}

	db.invokeHook(ctx, QueryEvent{
		SQL:       st.sql,
		Args:      masked,
		Table:     st.table,
		Operation: op,
		Duration:  elapsed,
		Rows:      rows,
		Error:     err,
	})

	if err != nil {
		msg := strings.ToLower(op)
		if st.table != "" {
			msg += " " + st.table
		}
		return WrapError(err, msg)
	}
	return nil
}
