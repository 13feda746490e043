package cache

import (
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// setupTestDB opens an in-memory database; literal SELECTs prepare on any
// connection without a schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func createTestStmt(t *testing.T, db *sql.DB, query string) *sql.Stmt {
	t.Helper()
	stmt, err := db.Prepare(query)
	require.NoError(t, err)
	return stmt
}

func TestStmtCache_GetPut(t *testing.T) {
	db := setupTestDB(t)
	cache := NewStmtCache(10)

	stmt, found := cache.Get("SELECT 1")
	assert.Nil(t, stmt)
	assert.False(t, found)

	prepared := createTestStmt(t, db, "SELECT 1")
	assert.Same(t, prepared, cache.Put("SELECT 1", prepared))

	stmt, found = cache.Get("SELECT 1")
	require.True(t, found)
	assert.Same(t, prepared, stmt)

	stats := cache.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, 10, stats.Capacity)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestStmtCache_PutKeepsFirst(t *testing.T) {
	db := setupTestDB(t)
	cache := NewStmtCache(10)

	first := createTestStmt(t, db, "SELECT 1")
	second := createTestStmt(t, db, "SELECT 1")

	cache.Put("SELECT 1", first)
	got := cache.Put("SELECT 1", second)

	assert.Same(t, first, got)
	_, err := second.Exec()
	assert.EqualError(t, err, "sql: statement is closed", "losing statement must be closed")
}

func TestStmtCache_EvictionClosesStatement(t *testing.T) {
	db := setupTestDB(t)
	cache := NewStmtCache(2)

	stmt1 := createTestStmt(t, db, "SELECT 1")
	cache.Put("q1", stmt1)
	cache.Put("q2", createTestStmt(t, db, "SELECT 2"))
	cache.Put("q3", createTestStmt(t, db, "SELECT 3"))

	_, found := cache.Get("q1")
	assert.False(t, found)
	assert.Equal(t, uint64(1), cache.Stats().Evictions)

	_, err := stmt1.Exec()
	assert.EqualError(t, err, "sql: statement is closed")
}

func TestStmtCache_InvalidateAndClear(t *testing.T) {
	db := setupTestDB(t)
	cache := NewStmtCache(0)
	assert.Equal(t, DefaultCapacity, cache.Stats().Capacity)

	for i := 1; i <= 5; i++ {
		cache.Put(fmt.Sprintf("q%d", i), createTestStmt(t, db, fmt.Sprintf("SELECT %d", i)))
	}

	cache.Invalidate("q1")
	assert.Equal(t, 4, cache.Stats().Size)

	cache.Clear()
	assert.Equal(t, 0, cache.Stats().Size)
	for i := 1; i <= 5; i++ {
		_, found := cache.Get(fmt.Sprintf("q%d", i))
		assert.False(t, found)
	}
}

func TestStmtCache_Concurrent(t *testing.T) {
	db := setupTestDB(t)
	cache := NewStmtCache(8)

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				query := fmt.Sprintf("SELECT %d", (g+i)%16)
				if _, ok := cache.Get(query); ok {
					continue
				}
				stmt, err := db.Prepare(query)
				if err != nil {
					t.Error(err)
					return
				}
				cache.Put(query, stmt)
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, cache.Stats().Size, 8)
}
