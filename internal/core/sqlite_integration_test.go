package core

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openSQLite(t *testing.T, opts ...Option) *DB {
	t.Helper()
	// one connection: every :memory: connection is a separate database
	db, err := Open("sqlite", ":memory:", append([]Option{WithMaxOpenConns(1)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	for _, ddl := range []string{
		`CREATE TABLE countries (iso TEXT PRIMARY KEY, name TEXT NOT NULL)`,
		`CREATE TABLE offices (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, country_iso TEXT REFERENCES countries(iso))`,
	} {
		_, err := db.SQLDB().Exec(ddl)
		require.NoError(t, err)
	}
	return db
}

func TestSQLite_CRUD(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	ar := db.Builder()

	n, err := ar.InsertBatch(ctx, "countries", []map[string]interface{}{
		{"iso": "GB", "name": "United Kingdom"},
		{"iso": "US", "name": "United States"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for i, office := range []map[string]interface{}{
		{"name": "London", "country_iso": "GB"},
		{"name": "Leeds", "country_iso": "GB"},
		{"name": "New York", "country_iso": "US"},
	} {
		id, err := ar.Insert(ctx, "offices", office, "id")
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), id)
	}

	ar.From("offices", "o")
	ar.Select("o.name, c.name AS country", true)
	ar.Join("countries", "c", "o.country_iso = c.iso", "left")
	ar.OrderBy("o.id", "asc")
	rows, err := ar.Get(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "London", rows[0]["name"])
	assert.Equal(t, "United Kingdom", rows[0]["country"])
	assert.Equal(t, "United States", rows[2]["country"])

	ar.Where("offices.id", 2, true)
	n, err = ar.Update(ctx, "offices", map[string]interface{}{"name": "Manchester"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = ar.Upsert(ctx, "countries", map[string]interface{}{"iso": "GB", "name": "Great Britain"}, []string{"iso"})
	require.NoError(t, err)
	ar.From("countries", "")
	ar.Where("iso", "GB", true)
	rows, err = ar.Get(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Great Britain", rows[0]["name"])

	ar.From("offices", "")
	ar.Where("offices.country_iso", "US", true)
	n, err = ar.CountAllResults(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ar.Where("offices.country_iso", "GB", true)
	n, err = ar.Delete(ctx, "offices", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = ar.CountAll(ctx, "offices")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	fields, err := ar.ListFields(ctx, "offices")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "country_iso"}, fields)
}

func TestSQLite_LimitOffset(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	ar := db.Builder()

	_, err := ar.InsertBatch(ctx, "countries", []map[string]interface{}{
		{"iso": "DE", "name": "Germany"},
		{"iso": "FR", "name": "France"},
		{"iso": "IT", "name": "Italy"},
	})
	require.NoError(t, err)

	ar.From("countries", "")
	ar.Select("iso", true)
	ar.OrderBy("iso", "asc")
	ar.Limit(-1, 1)
	rows, err := ar.Get(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "FR", rows[0]["iso"])
}

func TestSQLite_HealthCheck(t *testing.T) {
	db := openSQLite(t, WithHealthCheck(time.Hour))

	healthy, at := db.Healthy(context.Background())
	assert.True(t, healthy)
	assert.False(t, at.IsZero())

	require.NoError(t, db.Close())
	require.NoError(t, db.Close())
}

func TestSQLite_HealthyWithoutChecker(t *testing.T) {
	db := openSQLite(t)
	healthy, _ := db.Healthy(context.Background())
	assert.True(t, healthy)
}

type dsnConnector struct {
	drv driver.Driver
	dsn string
}

func (c dsnConnector) Connect(context.Context) (driver.Conn, error) { return c.drv.Open(c.dsn) }
func (c dsnConnector) Driver() driver.Driver                        { return c.drv }

func TestOpenConnector(t *testing.T) {
	probe, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	drv := probe.Driver()
	require.NoError(t, probe.Close())

	_, err = OpenConnector(dsnConnector{drv, ":memory:"}, "oracle")
	assert.ErrorIs(t, err, ErrUnsupportedDialect)

	db, err := OpenConnector(dsnConnector{drv, ":memory:"}, "sqlite", WithMaxOpenConns(1))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", db.DriverName())

	n, err := db.Builder().CountAll(context.Background(), "sqlite_master")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	require.NoError(t, db.Close())
	assert.Error(t, db.SQLDB().Ping())
}
