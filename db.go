// Package relmodel provides a table-model layer for Go on top of database/sql.
// Models declare tables and their relationships once, then read and write
// them through declarative options while joins and column qualification are
// derived automatically. PostgreSQL, MySQL and SQLite are supported.
package relmodel

import (
	"log/slog"

	"github.com/coregx/relmodel/internal/cache"
	"github.com/coregx/relmodel/internal/core"
	"github.com/coregx/relmodel/internal/logger"
	"github.com/coregx/relmodel/internal/model"
	"github.com/coregx/relmodel/internal/schema"
	"github.com/coregx/relmodel/internal/security"
	"github.com/coregx/relmodel/internal/tracer"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type (
	// DB represents the database connection with statement caching and tracing.
	DB = core.DB
	// Option is a functional option for configuring DB.
	Option = core.Option
	// ActiveRecord accumulates clauses for one statement.
	ActiveRecord = core.ActiveRecord
	// Expression represents a raw condition for ActiveRecord.WhereExp.
	Expression = core.Expression
	// QueryEvent describes an executed statement.
	QueryEvent = core.QueryEvent
	// QueryHook is called after every executed statement.
	QueryHook = core.QueryHook

	// Model is the table-model façade.
	Model = model.Model
	// ModelOption configures a Model.
	ModelOption = model.Option
	// CallOption adjusts a single Model call.
	CallOption = model.CallOption
	// Session is the per-query state of a Model.
	Session = model.Session
	// Driver is the clause-level database interface a Model runs on.
	Driver = model.Driver
	// Conditions maps condition keys to values.
	Conditions = model.Conditions
	// Options holds the declarative options of a read.
	Options = model.Options
	// Data holds column values for writes.
	Data = model.Data
	// Row is one result row.
	Row = model.Row
	// Rows is a result set.
	Rows = model.Rows

	// Table describes a declared table.
	Table = schema.Table
	// Keys holds the join columns of a relationship.
	Keys = schema.Keys
	// Definition is a declarative table definition.
	Definition = schema.Definition
	// Inflector turns a table name into its singular form.
	Inflector = schema.Inflector

	// Logger is the logging interface used by DB and Model.
	Logger = logger.Logger
	// Tracer starts query spans.
	Tracer = tracer.Tracer
	// Validator checks raw SQL fragments.
	Validator = security.Validator
	// MemoryCache is an in-memory metadata cache.
	MemoryCache = cache.MemoryCache
)

// Re-export core functions.
var (
	Open                  = core.Open
	OpenConnector         = core.OpenConnector
	WrapDB                = core.WrapDB
	WithMaxOpenConns      = core.WithMaxOpenConns
	WithMaxIdleConns      = core.WithMaxIdleConns
	WithStmtCacheCapacity = core.WithStmtCacheCapacity
	WithLogger            = core.WithLogger
	WithSensitiveFields   = core.WithSensitiveFields
	WithTracer            = core.WithTracer
	WithQueryHook         = core.WithQueryHook
	WithValidator         = core.WithValidator
	WithHealthCheck       = core.WithHealthCheck

	// Expression builders
	NewExp = core.NewExp
	Eq     = core.Eq
	NotEq  = core.NotEq
	In     = core.In
	NotIn  = core.NotIn
)

// Re-export model functions.
var (
	NewModel          = model.New
	WithStrict        = model.WithStrict
	WithModelLogger   = model.WithLogger
	WithMetadataCache = model.WithMetadataCache
	WithCacheKey      = model.WithCacheKey
	WithInflector     = model.WithInflector
	KeepSession       = model.KeepSession

	LoadDefinitions     = schema.LoadDefinitions
	LoadDefinitionsFile = schema.LoadDefinitionsFile

	NewMemoryCache = cache.NewMemoryCache
	NewValidator   = security.NewValidator
)

// Errors returned by Model.
var (
	ErrInvalidInput   = model.ErrInvalidInput
	ErrNoRelationship = model.ErrNoRelationship
	ErrNothingToJoin  = model.ErrNothingToJoin
	ErrNoResults      = model.ErrNoResults
	ErrUnknownTable   = model.ErrUnknownTable
	ErrUnknownField   = model.ErrUnknownField
)

// Errors returned by DB.
var (
	ErrUnsupportedDialect = core.ErrUnsupportedDialect
	ErrNoTable            = core.ErrNoTable
	ErrEmptyData          = core.ErrEmptyData
	ErrNoColumns          = core.ErrNoColumns
)

// ModelFor returns a Model running on a fresh clause builder of db.
func ModelFor(db *DB, opts ...ModelOption) *Model {
	return model.New(db.Builder(), opts...)
}

// SlogLogger adapts a slog.Logger.
func SlogLogger(l *slog.Logger) Logger {
	return logger.NewSlogAdapter(l)
}

// ZapLogger adapts a zap.Logger.
func ZapLogger(l *zap.Logger) Logger {
	return logger.NewZapAdapter(l)
}

// OtelTracer adapts an OpenTelemetry tracer.
func OtelTracer(t trace.Tracer) Tracer {
	return tracer.NewOtelTracer(t)
}
