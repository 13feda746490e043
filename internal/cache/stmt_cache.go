package cache

import "database/sql"

// StmtCache keeps prepared statements keyed by their SQL text. Evicted
// statements are closed; database/sql waits for in-flight executions before
// the close takes effect.
type StmtCache struct {
	lru *LRU[*sql.Stmt]
}

// NewStmtCache returns a statement cache holding at most capacity statements.
func NewStmtCache(capacity int) *StmtCache {
	return &StmtCache{
		lru: NewLRU(capacity, func(_ string, stmt *sql.Stmt) {
			_ = stmt.Close()
		}),
	}
}

// Get returns the prepared statement for query.
func (sc *StmtCache) Get(query string) (*sql.Stmt, bool) {
	return sc.lru.Get(query)
}

// Put caches stmt under query and returns the statement callers should use.
// If another goroutine cached the same query first, stmt is closed and the
// cached statement is returned instead.
func (sc *StmtCache) Put(query string, stmt *sql.Stmt) *sql.Stmt {
	actual, loaded := sc.lru.Add(query, stmt)
	if loaded {
		_ = stmt.Close()
	}
	return actual
}

// Invalidate closes and forgets the statement for query.
func (sc *StmtCache) Invalidate(query string) {
	sc.lru.Remove(query)
}

// Clear closes every cached statement.
func (sc *StmtCache) Clear() {
	sc.lru.Clear()
}

// Stats returns cache metrics.
func (sc *StmtCache) Stats() Stats {
	return sc.lru.Stats()
}
