package model

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeDriver records clause calls. Every execution snapshots the pending
// clauses plus a line describing the execution, then clears them.
type fakeDriver struct {
	clauses  []string
	executed [][]string

	rows     []map[string]interface{}
	err      error
	insertID int64
	affected int64
	count    int64

	columns   map[string][]string
	listCalls int
}

func (f *fakeDriver) record(format string, args ...interface{}) {
	f.clauses = append(f.clauses, fmt.Sprintf(format, args...))
}

func (f *fakeDriver) execute(format string, args ...interface{}) {
	f.record(format, args...)
	f.executed = append(f.executed, f.clauses)
	f.clauses = nil
}

// last returns the statement of the most recent execution.
func (f *fakeDriver) last() []string {
	if len(f.executed) == 0 {
		return nil
	}
	return f.executed[len(f.executed)-1]
}

func (f *fakeDriver) From(table, alias string) { f.record("From %s %s", table, alias) }
func (f *fakeDriver) Select(expr string, escape bool) {
	f.record("Select %s %v", expr, escape)
}
func (f *fakeDriver) Where(column string, value interface{}, escape bool) {
	f.record("Where %s %v %v", column, value, escape)
}
func (f *fakeDriver) WhereIn(column string, values []interface{}, escape bool) {
	f.record("WhereIn %s %v %v", column, values, escape)
}
func (f *fakeDriver) WhereRaw(expr string, args ...interface{}) {
	f.record("WhereRaw %s %v", expr, args)
}
func (f *fakeDriver) Join(table, alias, on, joinType string) {
	f.record("Join %s %s ON %s %s", table, alias, on, joinType)
}
func (f *fakeDriver) Distinct(distinct bool) { f.record("Distinct %v", distinct) }
func (f *fakeDriver) Limit(limit, offset int) { f.record("Limit %d %d", limit, offset) }
func (f *fakeDriver) OrderBy(column, direction string) { f.record("OrderBy %s %s", column, direction) }
func (f *fakeDriver) Reset() { f.clauses = nil }

func (f *fakeDriver) Get(context.Context) ([]map[string]interface{}, error) {
	f.execute("Get")
	return f.rows, f.err
}

func (f *fakeDriver) CountAllResults(context.Context) (int64, error) {
	f.execute("CountAllResults")
	return f.count, f.err
}

func (f *fakeDriver) CountAll(_ context.Context, table string) (int64, error) {
	f.execute("CountAll %s", table)
	return f.count, f.err
}

func (f *fakeDriver) Insert(_ context.Context, table string, data map[string]interface{}, pk string) (int64, error) {
	f.execute("Insert %s %v %s", table, data, pk)
	return f.insertID, f.err
}

func (f *fakeDriver) InsertBatch(_ context.Context, table string, rows []map[string]interface{}) (int64, error) {
	f.execute("InsertBatch %s %v", table, rows)
	return f.affected, f.err
}

func (f *fakeDriver) Upsert(_ context.Context, table string, data map[string]interface{}, conflict []string) (int64, error) {
	f.execute("Upsert %s %v %v", table, data, conflict)
	return f.affected, f.err
}

func (f *fakeDriver) Update(_ context.Context, table string, data map[string]interface{}) (int64, error) {
	f.execute("Update %s %v", table, data)
	return f.affected, f.err
}

func (f *fakeDriver) Delete(_ context.Context, table string, limit int) (int64, error) {
	f.execute("Delete %s %d", table, limit)
	return f.affected, f.err
}

func (f *fakeDriver) ListFields(_ context.Context, table string) ([]string, error) {
	f.listCalls++
	cols, ok := f.columns[table]
	if !ok {
		return nil, fmt.Errorf("list fields %s: no such table", table)
	}
	return cols, nil
}

// newOfficeModel declares offices (o) related to countries (c) by
// convention and to regions (r) by explicit keys, plus an unrelated users
// table.
func newOfficeModel(t *testing.T, opts ...Option) (*Model, *fakeDriver) {
	t.Helper()
	d := &fakeDriver{}
	m := New(d, opts...)
	ctx := context.Background()

	_, err := m.Declare(ctx, "offices", "o", []string{"id", "name", "country_iso", "region_id"}, "")
	require.NoError(t, err)
	_, err = m.Declare(ctx, "countries", "c", []string{"iso", "name", "continent"}, "iso")
	require.NoError(t, err)
	_, err = m.Declare(ctx, "regions", "r", []string{"id", "code"}, "")
	require.NoError(t, err)
	_, err = m.Declare(ctx, "users", "", []string{"id", "name"}, "")
	require.NoError(t, err)

	require.NoError(t, m.Relate("o", "c", "", ""))
	require.NoError(t, m.Relate("o", "r", "region_id", "id"))
	return m, d
}
