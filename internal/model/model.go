// Package model implements a table-oriented data model on top of a clause
// accumulating Driver. Tables are declared once with their columns and
// relationships; reads, counts and writes then resolve field names to the
// right table, emit the joins those fields need and execute the statement.
package model

import (
	"context"
	"fmt"

	"github.com/coregx/relmodel/internal/logger"
	"github.com/coregx/relmodel/internal/schema"
)

// DefaultCacheKey identifies the metadata cache entry when no key is given.
const DefaultCacheKey = "relmodel"

// Model is the query session and CRUD entry point for a set of declared
// tables. A Model is not safe for concurrent use.
type Model struct {
	driver Driver
	ctx    context.Context

	tables   map[string]*schema.Table
	fallback string // first declared table

	cache    schema.Cache
	cacheKey string
	loader   *schema.Loader
	singular schema.Inflector

	logger logger.Logger
	strict bool

	session Session
	counts  map[string]int64
}

// Option configures a Model.
type Option func(*Model)

// WithStrict makes unresolvable fields and skipped joins fail the next
// executing call with ErrUnknownField or the join error, instead of being
// dropped silently.
func WithStrict(strict bool) Option {
	return func(m *Model) {
		m.strict = strict
	}
}

// WithLogger sets the logger receiving dropped fields and skipped joins.
func WithLogger(l logger.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMetadataCache caches table columns read from the database under
// "table_structure/<key>".
func WithMetadataCache(c schema.Cache, key string) Option {
	return func(m *Model) {
		m.cache = c
		if key != "" {
			m.cacheKey = key
		}
	}
}

// WithCacheKey sets the metadata cache identifier.
func WithCacheKey(key string) Option {
	return func(m *Model) {
		if key != "" {
			m.cacheKey = key
		}
	}
}

// WithInflector replaces the singularizer used to infer foreign keys.
func WithInflector(fn schema.Inflector) Option {
	return func(m *Model) {
		if fn != nil {
			m.singular = fn
		}
	}
}

// New returns a Model executing through driver.
func New(driver Driver, opts ...Option) *Model {
	m := &Model{
		driver:   driver,
		ctx:      context.Background(),
		tables:   make(map[string]*schema.Table),
		cacheKey: DefaultCacheKey,
		singular: schema.Singular,
		logger:   &logger.NoopLogger{},
		counts:   make(map[string]int64),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.loader = schema.NewLoader(m.cache, driver.ListFields)
	return m
}

// WithContext sets the context used by subsequent executions and returns
// the model for chaining.
func (m *Model) WithContext(ctx context.Context) *Model {
	if ctx != nil {
		m.ctx = ctx
	}
	return m
}

// Context returns the context used for executions.
func (m *Model) Context() context.Context {
	return m.ctx
}

// Session returns the current query session.
func (m *Model) Session() *Session {
	return &m.session
}

// Declare registers a table under its alias (or name when alias is empty).
// With nil fields the columns are read from the database through the
// metadata cache. The first declared table becomes the primary table.
func (m *Model) Declare(ctx context.Context, name, alias string, fields []string, pk string) (*schema.Table, error) {
	if len(fields) == 0 {
		loaded, err := m.loader.Fields(ctx, m.cacheKey, name)
		if err != nil {
			return nil, err
		}
		fields = loaded[name]
	}
	return m.register(name, alias, fields, pk)
}

// DeclareAll registers every definition, reading all missing column lists
// in one cached batch, then records the relationships.
func (m *Model) DeclareAll(ctx context.Context, defs []schema.Definition) error {
	var missing []string
	for _, d := range defs {
		if len(d.Fields) == 0 {
			missing = append(missing, d.Name)
		}
	}

	var loaded map[string][]string
	if len(missing) > 0 {
		var err error
		if loaded, err = m.loader.Fields(ctx, m.cacheKey, missing...); err != nil {
			return err
		}
	}

	declared := make([]*schema.Table, len(defs))
	for i, d := range defs {
		fields := []string(d.Fields)
		if len(fields) == 0 {
			fields = loaded[d.Name]
		}
		t, err := m.register(d.Name, d.Alias, fields, d.PrimaryKey)
		if err != nil {
			return err
		}
		declared[i] = t
	}

	for i, d := range defs {
		for _, r := range d.Relations {
			declared[i].Relate(r.Table, r.Keys())
		}
	}
	return nil
}

func (m *Model) register(name, alias string, fields []string, pk string) (*schema.Table, error) {
	t, err := schema.NewTable(name, alias, fields, pk)
	if err != nil {
		return nil, fmt.Errorf("declare: %w", err)
	}
	m.tables[t.Alias] = t
	if m.fallback == "" {
		m.fallback = t.Alias
	}
	if m.session.Primary == "" {
		m.session.Primary = t.Alias
	}
	return t, nil
}

// Table returns the descriptor declared under key.
func (m *Model) Table(key string) (*schema.Table, bool) {
	t, ok := m.tables[key]
	return t, ok
}

// Relate records a relationship from the table keyed by table (the primary
// table when empty) to related. Empty keys are inferred when joining.
func (m *Model) Relate(table, related, foreign, primary string) error {
	if table == "" {
		table = m.session.Primary
	}
	t, ok := m.tables[table]
	if !ok {
		return fmt.Errorf("relate %q: %w", table, ErrUnknownTable)
	}
	t.Relate(related, schema.Keys{Foreign: foreign, Primary: primary})
	return nil
}

// BeginQuery starts a new query centered on table (the current primary table
// when empty): the session is cleared, pending driver clauses are dropped and
// the counters are unset. Named counts survive.
func (m *Model) BeginQuery(table string) *Session {
	m.driver.Reset()
	primary := m.session.Primary
	m.session = Session{Primary: primary}
	m.setPrimary(table)
	return &m.session
}

func (m *Model) setPrimary(table string) {
	if table != "" {
		m.session.Primary = table
	}
	if m.session.Primary == "" {
		m.session.Primary = m.fallback
	}
}

// begin starts a public operation on table, honoring KeepSession.
func (m *Model) begin(table string, opts []CallOption) (*schema.Table, error) {
	var cfg callConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if _, ok := m.tables[table]; table != "" && !ok {
		return nil, fmt.Errorf("table %q: %w", table, ErrUnknownTable)
	}
	if cfg.keep {
		m.setPrimary(table)
	} else {
		m.BeginQuery(table)
	}
	return m.primary()
}

func (m *Model) primary() (*schema.Table, error) {
	t, ok := m.tables[m.session.Primary]
	if !ok {
		return nil, fmt.Errorf("table %q: %w", m.session.Primary, ErrUnknownTable)
	}
	return t, nil
}

// drop handles a field that could not be resolved.
func (m *Model) drop(field, clause string) {
	m.logger.Debug("field dropped", "field", field, "clause", clause, "table", m.session.Primary)
	if m.strict {
		m.session.fail(fmt.Errorf("%s %q: %w", clause, field, ErrUnknownField))
	}
}

// CallOption adjusts a single read or count call.
type CallOption func(*callConfig)

type callConfig struct {
	keep bool
}

// KeepSession continues the current session instead of starting a new one,
// so clauses built beforehand (joins, conditions) apply to the call.
func KeepSession() CallOption {
	return func(c *callConfig) {
		c.keep = true
	}
}
