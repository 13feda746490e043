package model

import (
	"fmt"
	"regexp"
	"strings"
)

// Option keys controlling Get. Every other key of Options is a condition.
const (
	OptFields   = "fields"
	OptWhere    = "where"
	OptLimit    = "limit"
	OptOffset   = "offset"
	OptOrderBy  = "order_by"
	OptSort     = "sort"
	OptDistinct = "distinct"
	OptJoin     = "join"
)

// DefaultCountKey labels counts stored without a key.
const DefaultCountKey = "_default"

// Row is one result row keyed by column name.
type Row = map[string]interface{}

// Rows is a result set.
type Rows = []Row

// Options describes a read. Control keys:
//
//	fields    []string of fields, "*" for every field of the table, or any
//	          other string as a raw select expression (default: primary key)
//	where     Conditions, merged with the non-control keys
//	limit     int, applied only when present
//	offset    int (default 0)
//	order_by  string (default "<alias>.<primary key>")
//	sort      "asc" or "desc" (default "asc")
//	distinct  bool (default true)
//	join      join type for referenced tables, true for "left", or false
//	          to disable automatic joins (default "left")
type Options map[string]interface{}

func (o Options) with(key string, value interface{}) Options {
	out := make(Options, len(o)+1)
	for k, v := range o {
		out[k] = v
	}
	out[key] = value
	return out
}

// Get reads rows of table (the primary table when empty) as described by
// opts. It returns ErrNoResults when nothing matches.
func (m *Model) Get(opts Options, table string, callOpts ...CallOption) (Rows, error) {
	t, err := m.begin(table, callOpts)
	if err != nil {
		return nil, err
	}
	tables := append(t.RelatedTables(), m.session.Joined()...)

	conds := Conditions{}
	var fields interface{} = []string{t.PrimaryKey}
	orderBy, sortDir := t.Alias+"."+t.PrimaryKey, "asc"
	offset, limit, hasLimit := 0, 0, false
	distinct := true
	joinType := "left"

	for key, value := range opts {
		switch key {
		case OptFields:
			if value != nil {
				fields = value
			}
		case OptWhere:
			switch w := value.(type) {
			case nil:
			case Conditions:
				for k, v := range w {
					conds[k] = v
				}
			case map[string]interface{}:
				for k, v := range w {
					conds[k] = v
				}
			default:
				return nil, m.invalid("where", value)
			}
		case OptLimit:
			if value == nil {
				continue
			}
			n, ok := intValue(value)
			if !ok {
				return nil, m.invalid(key, value)
			}
			limit, hasLimit = n, true
		case OptOffset:
			n, ok := intValue(value)
			if !ok {
				return nil, m.invalid(key, value)
			}
			offset = n
		case OptOrderBy:
			s, ok := value.(string)
			if !ok {
				return nil, m.invalid(key, value)
			}
			if s != "" && !fieldRefRe.MatchString(strings.TrimSpace(s)) {
				return nil, fmt.Errorf("get: %w: option %s %q is not a field", ErrInvalidInput, key, s)
			}
			orderBy = s
		case OptSort:
			s, ok := value.(string)
			if !ok {
				return nil, m.invalid(key, value)
			}
			sortDir = s
		case OptDistinct:
			b, ok := value.(bool)
			if !ok {
				return nil, m.invalid(key, value)
			}
			distinct = b
		case OptJoin:
			switch j := value.(type) {
			case bool:
				joinType = ""
				if j {
					joinType = "left"
				}
			case string:
				joinType = j
			case nil:
				joinType = ""
			default:
				return nil, m.invalid(key, value)
			}
		default:
			conds[key] = value
		}
	}

	m.From("")
	if distinct {
		m.driver.Distinct(true)
	}
	m.where(conds, tables, true)

	switch f := fields.(type) {
	case string:
		if f == "*" {
			m.Select(t.Fields, true, tables...)
		} else {
			m.SelectRaw(f)
		}
	default:
		list, ok := stringList(fields)
		if !ok {
			m.driver.Reset()
			return nil, m.invalid(OptFields, fields)
		}
		m.Select(list, true, tables...)
	}

	if joinType != "" {
		if err := m.JoinReferenced(joinType); err != nil && !isNothingToJoin(err) {
			m.driver.Reset()
			return nil, err
		}
	}
	if hasLimit {
		m.driver.Limit(limit, offset)
	}
	m.driver.OrderBy(orderBy, sortDir)

	return m.Run()
}

// Run executes the clauses built so far and records the number of rows
// returned. It returns ErrNoResults when nothing matches.
func (m *Model) Run() (Rows, error) {
	if err := m.session.err; err != nil {
		m.driver.Reset()
		return nil, err
	}
	rows, err := m.driver.Get(m.ctx)
	if err != nil {
		return nil, err
	}
	m.session.rowsReturned = int64Ptr(int64(len(rows)))
	if len(rows) == 0 {
		return nil, ErrNoResults
	}
	return rows, nil
}

// GetOne returns the first row matching opts.
func (m *Model) GetOne(opts Options, table string, callOpts ...CallOption) (Row, error) {
	rows, err := m.Get(opts.with(OptLimit, 1), table, callOpts...)
	if err != nil {
		return nil, err
	}
	return rows[0], nil
}

// GetField returns field of the first row matching opts.
func (m *Model) GetField(field string, opts Options, table string, callOpts ...CallOption) (interface{}, error) {
	row, err := m.GetOne(opts.with(OptFields, []string{field}), table, callOpts...)
	if err != nil {
		return nil, err
	}
	return column(row, field), nil
}

// GetList maps key to value over the rows matching opts. Keys are
// formatted with fmt.Sprint.
func (m *Model) GetList(key, value string, opts Options, table string, callOpts ...CallOption) (map[string]interface{}, error) {
	rows, err := m.Get(opts.with(OptFields, []string{key, value}), table, callOpts...)
	if err != nil {
		return nil, err
	}
	list := make(map[string]interface{}, len(rows))
	for _, row := range rows {
		list[fmt.Sprint(column(row, key))] = column(row, value)
	}
	return list, nil
}

// GetColumn returns field name of every row matching opts, in order.
func (m *Model) GetColumn(name string, opts Options, table string, callOpts ...CallOption) ([]interface{}, error) {
	rows, err := m.Get(opts.with(OptFields, []string{name}), table, callOpts...)
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, len(rows))
	for i, row := range rows {
		out[i] = column(row, name)
	}
	return out, nil
}

// InsertID returns the id generated by the last insert.
func (m *Model) InsertID() (int64, bool) {
	return deref(m.session.insertID)
}

// NumRows returns the number of rows returned by the last read.
func (m *Model) NumRows() (int64, bool) {
	return deref(m.session.rowsReturned)
}

// AffectedRows returns the number of rows changed by the last write.
func (m *Model) AffectedRows() (int64, bool) {
	return deref(m.session.affectedRows)
}

// SetCount stores count under key (DefaultCountKey when empty). Stored
// counts survive session resets.
func (m *Model) SetCount(count int64, key string) {
	if key == "" {
		key = DefaultCountKey
	}
	m.counts[key] = count
}

// StashCount stores the number of rows returned by the last read under key.
// It reports false when no read has run in the current session.
func (m *Model) StashCount(key string) bool {
	n, ok := m.NumRows()
	if !ok {
		return false
	}
	m.SetCount(n, key)
	return true
}

// GetCount returns the count stored under key (DefaultCountKey when empty).
func (m *Model) GetCount(key string) (int64, bool) {
	if key == "" {
		key = DefaultCountKey
	}
	n, ok := m.counts[key]
	return n, ok
}

func (m *Model) invalid(key string, value interface{}) error {
	return fmt.Errorf("get: %w: option %s has type %T", ErrInvalidInput, key, value)
}

// aliasRe captures the alias of a select item ("c.name AS country").
var aliasRe = regexp.MustCompile(`(?i)^\s*\S+\s+(?:AS\s+)?(\w+)\s*$`)

// column returns field of row. Drivers report an aliased field under its
// alias and a qualified field ("c.name") under its column name.
func column(row Row, field string) interface{} {
	if v, ok := row[field]; ok {
		return v
	}
	if m := aliasRe.FindStringSubmatch(field); m != nil {
		return row[m[1]]
	}
	if i := strings.LastIndex(field, "."); i >= 0 {
		return row[field[i+1:]]
	}
	return nil
}

func deref(p *int64) (int64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}
