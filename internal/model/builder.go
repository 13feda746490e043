package model

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/coregx/relmodel/internal/schema"
	"github.com/coregx/relmodel/internal/util"
)

// operatorRe splits a condition key such as "id >=" or "name NOT LIKE".
var operatorRe = regexp.MustCompile(`(?i)^\s*(.*?)\s*(<=|>=|<>|!=|=|<|>|\s(?:NOT\s+)?LIKE|\sIS(?:\s+NOT)?|\s(?:NOT\s+)?IN)\s*$`)

// fieldRefRe matches a field name, optionally qualified ("c.name").
var fieldRefRe = regexp.MustCompile(`^[A-Za-z_]\w*(?:\.[A-Za-z_]\w*)?$`)

// Conditions maps condition keys to values. A key is a field name, a
// qualified "table.field" or either followed by an operator ("id >=").
// Keys are applied in sorted order.
type Conditions map[string]interface{}

// From adds table (the primary table when empty) to the FROM clause unless
// it is already joined.
func (m *Model) From(table string) *Model {
	if table == "" {
		table = m.session.Primary
	}
	if m.session.IsJoined(table) {
		return m
	}
	t, ok := m.tables[table]
	if !ok {
		m.session.fail(fmt.Errorf("from %q: %w", table, ErrUnknownTable))
		return m
	}
	m.driver.From(t.Name, t.Alias)
	m.session.joined.add(table)
	m.session.referenced.add(table)
	return m
}

// Select adds fields to the SELECT list. Qualified fields ("c.name") are
// passed through as written and mark their table as referenced; other
// fields are looked up in tables (the joined tables when empty, the
// primary table always first) and qualified with the first match. Fields
// that match no table are dropped.
func (m *Model) Select(fields []string, escape bool, tables ...string) *Model {
	candidates := m.candidates(tables)
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if prefix, ok := qualifier(f); ok {
			m.driver.Select(f, false)
			m.session.referenced.add(prefix)
			continue
		}
		t, key := m.resolve(f, candidates)
		if t == nil {
			m.drop(f, "select")
			continue
		}
		m.driver.Select(t.Alias+"."+f, escape)
		m.session.referenced.add(key)
	}
	return m
}

// SelectRaw adds a verbatim select expression.
func (m *Model) SelectRaw(expr string) *Model {
	m.driver.Select(expr, false)
	return m
}

// Where adds conditions qualified with table aliases. A value that is a
// non-empty slice becomes an IN condition unless the key carries its own
// operator; nil compares with NULL.
func (m *Model) Where(conds Conditions, tables ...string) *Model {
	m.where(conds, tables, true)
	return m
}

// WhereByName is Where qualifying fields with real table names, for
// statements that cannot use aliases.
func (m *Model) WhereByName(conds Conditions, tables ...string) *Model {
	m.where(conds, tables, false)
	return m
}

// WhereRaw adds a verbatim condition with "?" placeholders.
func (m *Model) WhereRaw(expr string, args ...interface{}) *Model {
	m.driver.WhereRaw(expr, args...)
	return m
}

// where emits conds and returns how many conditions were applied.
func (m *Model) where(conds Conditions, tables []string, useAlias bool) int {
	if len(conds) == 0 {
		return 0
	}
	candidates := m.candidates(tables)

	keys := make([]string, 0, len(conds))
	for k := range conds {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	applied := 0
	for _, key := range keys {
		value := conds[key]
		field, op := splitKey(key)
		if field == "" {
			m.drop(key, "where")
			continue
		}

		var ref string
		if prefix, ok := qualifier(field); ok {
			if !fieldRefRe.MatchString(field) {
				m.drop(key, "where")
				continue
			}
			ref = field
			m.session.referenced.add(prefix)
		} else {
			token := util.SanitizeToken(field)
			t, tkey := m.resolve(token, candidates)
			if t == nil {
				m.drop(key, "where")
				continue
			}
			name := t.Alias
			if !useAlias {
				name = t.Name
			}
			ref = name + "." + token
			m.session.referenced.add(tkey)
		}

		if op != "" {
			m.driver.Where(ref+" "+op, value, true)
		} else if list, ok := listValue(value); ok {
			m.driver.WhereIn(ref, list, true)
		} else {
			m.driver.Where(ref, value, true)
		}
		applied++
	}
	return applied
}

// Join joins table to the primary table through their relationship. Joining
// a table twice is a no-op. With setAsPrimary the joined table becomes the
// primary table while the session continues.
func (m *Model) Join(table, joinType string, setAsPrimary bool) error {
	if m.session.IsJoined(table) {
		return nil
	}
	primary, err := m.primary()
	if err != nil {
		return err
	}
	keys, ok := primary.Relation(table)
	if !ok {
		return fmt.Errorf("join %s to %s: %w", table, primary.Alias, ErrNoRelationship)
	}
	related, ok := m.tables[table]
	if !ok {
		return fmt.Errorf("join %q: %w", table, ErrUnknownTable)
	}

	keys = schema.ResolveKeys(keys, related, m.singular)
	on := primary.Alias + "." + keys.Foreign + " = " + related.Alias + "." + keys.Primary
	m.driver.Join(related.Name, related.Alias, on, joinType)
	m.session.joined.add(table)

	if setAsPrimary {
		m.session.Primary = table
	}
	return nil
}

// JoinReferenced joins every referenced table that is not joined yet and
// clears the referenced set. Tables that cannot be joined are skipped; in
// strict mode the first failure is returned by the next execution.
func (m *Model) JoinReferenced(joinType string) error {
	if m.session.referenced.len() == 0 {
		return ErrNothingToJoin
	}
	for _, table := range m.session.Referenced() {
		if err := m.Join(table, joinType, false); err != nil {
			m.logger.Debug("join skipped", "table", table, "primary", m.session.Primary, "error", err)
			if m.strict {
				m.session.fail(err)
			}
		}
	}
	m.session.referenced.clear()
	return nil
}

// Distinct makes the query SELECT DISTINCT.
func (m *Model) Distinct() *Model {
	m.driver.Distinct(true)
	return m
}

// Limit sets LIMIT and OFFSET.
func (m *Model) Limit(limit, offset int) *Model {
	m.driver.Limit(limit, offset)
	return m
}

// OrderBy appends an ORDER BY term.
func (m *Model) OrderBy(column, direction string) *Model {
	m.driver.OrderBy(column, direction)
	return m
}

// candidates returns the tables searched for unqualified fields.
func (m *Model) candidates(tables []string) []string {
	if len(tables) == 0 {
		tables = m.session.Joined()
	}
	out := make([]string, 0, len(tables)+1)
	seen := make(map[string]bool, len(tables)+1)
	if !containsKey(tables, m.session.Primary) {
		out = append(out, m.session.Primary)
		seen[m.session.Primary] = true
	}
	for _, t := range tables {
		if !seen[t] {
			out = append(out, t)
			seen[t] = true
		}
	}
	return out
}

// resolve returns the first candidate table holding field.
func (m *Model) resolve(field string, candidates []string) (*schema.Table, string) {
	for _, key := range candidates {
		t, ok := m.tables[key]
		if !ok {
			continue
		}
		if t.HasField(field) {
			return t, key
		}
	}
	return nil, ""
}

// splitKey separates a trailing operator from a condition key.
func splitKey(key string) (field, op string) {
	if mm := operatorRe.FindStringSubmatch(key); mm != nil {
		return mm[1], strings.ToUpper(strings.Join(strings.Fields(mm[2]), " "))
	}
	return strings.TrimSpace(key), ""
}

// qualifier returns the table part of a "table.field" token.
func qualifier(field string) (string, bool) {
	i := strings.Index(field, ".")
	if i <= 0 {
		return "", false
	}
	return strings.TrimSpace(field[:i]), true
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

func isNothingToJoin(err error) bool {
	return errors.Is(err, ErrNothingToJoin)
}
