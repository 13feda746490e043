package model

import "context"

// Driver accumulates clause fragments and executes them. Clause methods
// add to the statement under construction; execution methods run it and
// clear the accumulated clauses. *core.ActiveRecord implements Driver.
type Driver interface {
	From(table, alias string)
	Select(expr string, escape bool)
	Where(column string, value interface{}, escape bool)
	WhereIn(column string, values []interface{}, escape bool)
	WhereRaw(expr string, args ...interface{})
	Join(table, alias, on, joinType string)
	Distinct(distinct bool)
	Limit(limit, offset int)
	OrderBy(column, direction string)
	Reset()

	Get(ctx context.Context) ([]map[string]interface{}, error)
	CountAllResults(ctx context.Context) (int64, error)
	CountAll(ctx context.Context, table string) (int64, error)
	Insert(ctx context.Context, table string, data map[string]interface{}, pk string) (int64, error)
	InsertBatch(ctx context.Context, table string, rows []map[string]interface{}) (int64, error)
	Upsert(ctx context.Context, table string, data map[string]interface{}, conflict []string) (int64, error)
	Update(ctx context.Context, table string, data map[string]interface{}) (int64, error)
	Delete(ctx context.Context, table string, limit int) (int64, error)
	ListFields(ctx context.Context, table string) ([]string, error)
}
