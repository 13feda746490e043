package relmodel_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/coregx/relmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openOffices(t *testing.T, opts ...relmodel.Option) *relmodel.DB {
	t.Helper()
	db, err := relmodel.Open("sqlite", ":memory:", append([]relmodel.Option{relmodel.WithMaxOpenConns(1)}, opts...)...)
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

func newOffices(t *testing.T, db *relmodel.DB, opts ...relmodel.ModelOption) *relmodel.Model {
	t.Helper()
	ctx := context.Background()
	m := relmodel.ModelFor(db, opts...)

	_, err := m.Declare(ctx, "offices", "o", nil, "")
	require.NoError(t, err)
	_, err = m.Declare(ctx, "countries", "c", nil, "iso")
	require.NoError(t, err)
	require.NoError(t, m.Relate("o", "c", "", ""))
	return m
}

func TestModel_EndToEnd(t *testing.T) {
	db := openOffices(t)
	m := newOffices(t, db, relmodel.WithMetadataCache(relmodel.NewMemoryCache(8), "offices"))

	o, ok := m.Table("o")
	require.True(t, ok)
	assert.Equal(t, []string{"id", "name", "country_iso"}, o.Fields)
	assert.Equal(t, "id", o.PrimaryKey)

	require.NoError(t, m.Insert(relmodel.Data{"iso": "GB", "name": "United Kingdom"}, "c"))
	require.NoError(t, m.Insert(relmodel.Data{"iso": "US", "name": "United States"}, "c"))

	for i, name := range []string{"London", "Leeds", "New York"} {
		iso := "GB"
		if name == "New York" {
			iso = "US"
		}
		require.NoError(t, m.Insert(relmodel.Data{"name": name, "country_iso": iso, "unknown": 1}, "o"))
		id, ok := m.InsertID()
		require.True(t, ok)
		assert.Equal(t, int64(i+1), id)
	}

	t.Run("Get joins related tables", func(t *testing.T) {
		rows, err := m.Get(relmodel.Options{
			"fields":      []string{"id", "name", "c.name AS country"},
			"country_iso": "GB",
		}, "o")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "London", rows[0]["name"])
		assert.Equal(t, "United Kingdom", rows[0]["country"])
		assert.Equal(t, "Leeds", rows[1]["name"])

		n, ok := m.NumRows()
		assert.True(t, ok)
		assert.Equal(t, int64(2), n)
	})

	t.Run("GetList and GetColumn", func(t *testing.T) {
		list, err := m.GetList("id", "name", relmodel.Options{"sort": "desc"}, "o")
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"1": "London", "2": "Leeds", "3": "New York"}, list)

		names, err := m.GetColumn("name", relmodel.Options{"sort": "desc"}, "o")
		require.NoError(t, err)
		assert.Equal(t, []interface{}{"New York", "Leeds", "London"}, names)
	})

	t.Run("Count through a related field", func(t *testing.T) {
		n, err := m.Count(relmodel.Conditions{"c.name": "United States"}, "o")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = m.Count(relmodel.Conditions{"id >=": 2}, "o")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("Update and Delete", func(t *testing.T) {
		require.NoError(t, m.Update(relmodel.Data{"name": "Manchester"}, 2, "o"))
		affected, ok := m.AffectedRows()
		assert.True(t, ok)
		assert.Equal(t, int64(1), affected)

		name, err := m.GetField("name", relmodel.Options{"id": 2}, "o")
		require.NoError(t, err)
		assert.Equal(t, "Manchester", name)

		require.NoError(t, m.Delete(relmodel.Conditions{"country_iso": "US"}, "o", 0))
		n, err := m.CountAll("o")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		_, err = m.GetOne(relmodel.Options{"id": 3}, "o")
		assert.ErrorIs(t, err, relmodel.ErrNoResults)
	})

	t.Run("Upsert", func(t *testing.T) {
		require.NoError(t, m.Upsert(relmodel.Data{"iso": "GB", "name": "Great Britain"}, "c"))
		name, err := m.GetField("name", relmodel.Options{"iso": "GB"}, "c")
		require.NoError(t, err)
		assert.Equal(t, "Great Britain", name)
	})
}

func TestModel_ConditionsStayScoped(t *testing.T) {
	db := openOffices(t)
	m := newOffices(t, db)
	require.NoError(t, m.Insert(relmodel.Data{"iso": "GB", "name": "United Kingdom"}, "c"))
	require.NoError(t, m.Insert(relmodel.Data{"iso": "US", "name": "United States"}, "c"))
	require.NoError(t, m.Insert(relmodel.Data{"iso": "FR", "name": "France"}, "c"))

	t.Run("raw OR condition combined with a field condition", func(t *testing.T) {
		m.BeginQuery("c")
		m.WhereRaw("c.name = ? OR c.name = ?", "United Kingdom", "United States")
		rows, err := m.Get(relmodel.Options{"fields": []string{"iso"}, "iso": "US"}, "c", relmodel.KeepSession())
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "US", rows[0]["iso"])
	})

	t.Run("qualified keys must name a field", func(t *testing.T) {
		_, err := m.Get(relmodel.Options{"fields": []string{"iso"}, "c.iso": "nope", "0=0 OR c.name": "x"}, "c")
		assert.ErrorIs(t, err, relmodel.ErrNoResults)
	})

	t.Run("order_by must name a field", func(t *testing.T) {
		_, err := m.Get(relmodel.Options{"order_by": "c.iso /* x */"}, "c")
		assert.ErrorIs(t, err, relmodel.ErrInvalidInput)
	})
}

func TestModel_Structs(t *testing.T) {
	type office struct {
		ID         int64  `db:"id"`
		Name       string `db:"name"`
		CountryISO string `db:"country_iso"`
	}

	db := openOffices(t)
	m := newOffices(t, db)
	require.NoError(t, m.Insert(relmodel.Data{"iso": "FR", "name": "France"}, "c"))

	paris := &office{Name: "Paris", CountryISO: "FR"}
	require.NoError(t, m.InsertStruct(paris, "o"))
	assert.Equal(t, int64(1), paris.ID)

	paris.Name = "Lyon"
	require.NoError(t, m.UpdateStruct(paris, "o"))
	name, err := m.GetField("name", relmodel.Options{"id": paris.ID}, "o")
	require.NoError(t, err)
	assert.Equal(t, "Lyon", name)
}

func TestModel_WrapDBAndDefinitions(t *testing.T) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()

	_, err = sqlDB.Exec(`CREATE TABLE regions (id INTEGER PRIMARY KEY, code TEXT)`)
	require.NoError(t, err)

	db, err := relmodel.WrapDB(sqlDB, "sqlite")
	require.NoError(t, err)
	defer db.Close()

	defs, err := relmodel.LoadDefinitionsFile("testdata/regions.yaml")
	require.NoError(t, err)

	m := relmodel.ModelFor(db, relmodel.WithStrict(true))
	require.NoError(t, m.DeclareAll(context.Background(), defs))

	r, ok := m.Table("r")
	require.True(t, ok)
	assert.Equal(t, []string{"id", "code"}, r.Fields)

	err = m.Insert(relmodel.Data{"code": "EU", "colour": "blue"}, "r")
	assert.ErrorIs(t, err, relmodel.ErrUnknownField)

	require.NoError(t, m.Insert(relmodel.Data{"code": "EU"}, "r"))
	code, err := m.GetField("code", nil, "r")
	require.NoError(t, err)
	assert.Equal(t, "EU", code)
}

func TestOpen_UnsupportedDialect(t *testing.T) {
	_, err := relmodel.Open("oracle", "")
	assert.ErrorIs(t, err, relmodel.ErrUnsupportedDialect)
}
