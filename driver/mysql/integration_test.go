//go:build integration

package mysql

import (
	"context"
	"os"
	"testing"

	"github.com/coregx/relmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_Model(t *testing.T) {
	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MYSQL_TEST_DSN not set")
	}
	ctx := context.Background()
	db, err := OpenDSN(dsn)
	require.NoError(t, err)
	defer db.Close()

	for _, ddl := range []string{
		`DROP TABLE IF EXISTS rm_offices`,
		`DROP TABLE IF EXISTS rm_countries`,
		`CREATE TABLE rm_countries (iso VARCHAR(2) PRIMARY KEY, name VARCHAR(64) NOT NULL)`,
		`CREATE TABLE rm_offices (id INT AUTO_INCREMENT PRIMARY KEY, name VARCHAR(64) NOT NULL, rm_country_iso VARCHAR(2))`,
	} {
		_, err := db.SQLDB().ExecContext(ctx, ddl)
		require.NoError(t, err)
	}

	m := relmodel.ModelFor(db)
	require.NoError(t, m.DeclareAll(ctx, []relmodel.Definition{
		{Name: "rm_offices", Alias: "o"},
		{Name: "rm_countries", Alias: "c", PrimaryKey: "iso"},
	}))
	require.NoError(t, m.Relate("o", "c", "", ""))

	require.NoError(t, m.Insert(relmodel.Data{"iso": "US", "name": "United States"}, "c"))
	err = m.Insert(relmodel.Data{"iso": "US", "name": "Again"}, "c")
	assert.True(t, IsDuplicateEntry(err))

	require.NoError(t, m.Insert(relmodel.Data{"name": "Boston", "rm_country_iso": "US"}, "o"))
	require.NoError(t, m.Insert(relmodel.Data{"name": "Denver", "rm_country_iso": "US"}, "o"))

	require.NoError(t, m.Delete(relmodel.Conditions{"rm_country_iso": "US"}, "o", 1))
	affected, _ := m.AffectedRows()
	assert.Equal(t, int64(1), affected)

	n, err := m.Count(relmodel.Conditions{"c.iso": "US"}, "o")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
