// Package core is the SQL database driver behind the model layer: a shared
// DB handle with statement caching, logging, tracing and hooks, and the
// ActiveRecord clause accumulator that models drive.
package core

import (
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/coregx/relmodel/internal/cache"
	"github.com/coregx/relmodel/internal/dialects"
	"github.com/coregx/relmodel/internal/logger"
	"github.com/coregx/relmodel/internal/security"
	"github.com/coregx/relmodel/internal/tracer"
)

// DefaultStmtCacheCapacity is the number of prepared statements kept per DB.
const DefaultStmtCacheCapacity = 1000

// DB is a database handle shared by every model. It is safe for concurrent
// use; the ActiveRecord builders it hands out are not.
type DB struct {
	sqlDB      *sql.DB
	driverName string
	dialect    dialects.Dialect
	stmtCache  *cache.StmtCache
	logger     logger.Logger
	sanitizer  *logger.Sanitizer
	tracer     tracer.Tracer
	validator  *security.Validator
	queryHook  QueryHook
	health     *healthChecker
	ownsConn   bool
}

// Option is a functional option for configuring DB.
type Option func(*DB)

// WithMaxOpenConns sets the maximum number of open connections.
func WithMaxOpenConns(n int) Option {
	return func(db *DB) {
		db.sqlDB.SetMaxOpenConns(n)
	}
}

// WithMaxIdleConns sets the maximum number of idle connections.
func WithMaxIdleConns(n int) Option {
	return func(db *DB) {
		db.sqlDB.SetMaxIdleConns(n)
	}
}

// WithStmtCacheCapacity sets the prepared statement cache capacity.
func WithStmtCacheCapacity(capacity int) Option {
	return func(db *DB) {
		db.stmtCache = cache.NewStmtCache(capacity)
	}
}

// WithLogger logs every executed statement with masked parameters.
func WithLogger(l logger.Logger) Option {
	return func(db *DB) {
		if l != nil {
			db.logger = l
		}
	}
}

// WithSensitiveFields replaces the default list of column names whose values
// are masked in logs.
func WithSensitiveFields(fields ...string) Option {
	return func(db *DB) {
		db.sanitizer = logger.NewSanitizer(fields)
	}
}

// WithTracer wraps every executed statement in a span.
func WithTracer(t tracer.Tracer) Option {
	return func(db *DB) {
		if t != nil {
			db.tracer = t
		}
	}
}

// WithQueryHook registers a callback invoked after each statement.
func WithQueryHook(hook QueryHook) Option {
	return func(db *DB) {
		db.queryHook = hook
	}
}

// WithValidator checks raw SELECT and WHERE fragments before they are used.
func WithValidator(v *security.Validator) Option {
	return func(db *DB) {
		db.validator = v
	}
}

// Open opens a database with a registered driver and wraps it.
func Open(driverName, dsn string, opts ...Option) (*DB, error) {
	if _, ok := dialects.LookupDialect(driverName); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDialect, driverName)
	}
	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, WrapError(err, "open "+driverName)
	}
	db, err := WrapDB(sqlDB, driverName, opts...)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	db.ownsConn = true
	return db, nil
}

// OpenConnector opens a database on connector and wraps it. driverName
// selects the dialect. The returned DB owns the connection pool.
func OpenConnector(connector driver.Connector, driverName string, opts ...Option) (*DB, error) {
	if _, ok := dialects.LookupDialect(driverName); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDialect, driverName)
	}
	sqlDB := sql.OpenDB(connector)
	db, err := WrapDB(sqlDB, driverName, opts...)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	db.ownsConn = true
	return db, nil
}

// WrapDB wraps an existing connection pool. Close on the returned DB releases
// cached statements but leaves sqlDB open.
func WrapDB(sqlDB *sql.DB, driverName string, opts ...Option) (*DB, error) {
	dialect, ok := dialects.LookupDialect(driverName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDialect, driverName)
	}
	db := &DB{
		sqlDB:      sqlDB,
		driverName: driverName,
		dialect:    dialect,
		stmtCache:  cache.NewStmtCache(DefaultStmtCacheCapacity),
		logger:     &logger.NoopLogger{},
		sanitizer:  logger.NewSanitizer(nil),
		tracer:     tracer.NoopTracer{},
	}
	for _, opt := range opts {
		opt(db)
	}
	if db.health != nil {
		db.health.ping()
		db.health.start()
	}
	return db, nil
}

// Close releases cached statements and, for databases created by Open, the
// connection pool.
func (db *DB) Close() error {
	if db.health != nil {
		db.health.shutdown()
	}
	db.stmtCache.Clear()
	if !db.ownsConn {
		return nil
	}
	return db.sqlDB.Close()
}

// Builder returns a fresh clause accumulator bound to db.
func (db *DB) Builder() *ActiveRecord {
	return &ActiveRecord{db: db}
}

// Dialect returns the SQL dialect of the connection.
func (db *DB) Dialect() dialects.Dialect {
	return db.dialect
}

// DriverName returns the database/sql driver name.
func (db *DB) DriverName() string {
	return db.driverName
}

// SQLDB returns the underlying connection pool.
func (db *DB) SQLDB() *sql.DB {
	return db.sqlDB
}

// CacheStats returns prepared statement cache metrics.
func (db *DB) CacheStats() cache.Stats {
	return db.stmtCache.Stats()
}
