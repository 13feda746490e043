// Package schema describes the tables a model works with: their columns,
// primary key, alias and the relationships used to join them.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-openapi/inflect"
)

var (
	// ErrNoFields is returned when a table is declared without columns.
	ErrNoFields = errors.New("table has no fields")
	// ErrDuplicateField is returned when a column name is declared twice.
	ErrDuplicateField = errors.New("duplicate field")
	// ErrBadPrimaryKey is returned when the primary key is not a declared column.
	ErrBadPrimaryKey = errors.New("primary key is not a table field")
)

// Keys holds the columns linking a table to a related table. Foreign is the
// column on the owning table, Primary the column on the related table. An
// empty value is inferred at join time, see ResolveKeys.
type Keys struct {
	Foreign string
	Primary string
}

// Inflector turns a plural table name into its singular form.
type Inflector func(string) string

// Singular is the default Inflector.
func Singular(word string) string {
	return inflect.Singularize(word)
}

// Table describes one database table.
type Table struct {
	// Name is the real table name.
	Name string
	// Alias is used in query text; it defaults to Name.
	Alias string
	// Fields lists the columns in declaration order.
	Fields     []string
	PrimaryKey string

	fieldSet  map[string]struct{}
	relations map[string]Keys
	order     []string
}

// NewTable builds a table descriptor. An empty alias defaults to name and an
// empty pk defaults to the first field.
func NewTable(name, alias string, fields []string, pk string) (*Table, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("table name is empty")
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoFields)
	}

	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, ok := set[f]; ok {
			return nil, fmt.Errorf("%s.%s: %w", name, f, ErrDuplicateField)
		}
		set[f] = struct{}{}
	}

	if alias == "" {
		alias = name
	}
	if pk == "" {
		pk = fields[0]
	}
	if _, ok := set[pk]; !ok {
		return nil, fmt.Errorf("%s.%s: %w", name, pk, ErrBadPrimaryKey)
	}

	return &Table{
		Name:       name,
		Alias:      alias,
		Fields:     append([]string(nil), fields...),
		PrimaryKey: pk,
		fieldSet:   set,
		relations:  make(map[string]Keys),
	}, nil
}

// String returns the alias, which is how the table is referenced in SQL.
func (t *Table) String() string {
	return t.Alias
}

// HasField reports whether column is one of the table's fields.
func (t *Table) HasField(column string) bool {
	_, ok := t.fieldSet[column]
	return ok
}

// Relate registers (or replaces) the relationship to the table keyed by
// related. Registration order is preserved on first insert.
func (t *Table) Relate(related string, keys Keys) {
	if _, ok := t.relations[related]; !ok {
		t.order = append(t.order, related)
	}
	t.relations[related] = keys
}

// Related returns a copy of the relationship registry.
func (t *Table) Related() map[string]Keys {
	out := make(map[string]Keys, len(t.relations))
	for k, v := range t.relations {
		out[k] = v
	}
	return out
}

// RelatedTables returns the related table keys in registration order.
func (t *Table) RelatedTables() []string {
	return append([]string(nil), t.order...)
}

// Relation returns the keys registered for related.
func (t *Table) Relation(related string) (Keys, bool) {
	k, ok := t.relations[related]
	return k, ok
}

// ResolveKeys fills in missing relationship keys. The foreign key defaults to
// the singular of the related table's name, an underscore and the related
// primary key (offices -> countries gives country_iso); the primary key
// defaults to the related table's primary key.
func ResolveKeys(keys Keys, related *Table, singular Inflector) Keys {
	if singular == nil {
		singular = Singular
	}
	if keys.Foreign == "" {
		keys.Foreign = singular(related.Name) + "_" + related.PrimaryKey
	}
	if keys.Primary == "" {
		keys.Primary = related.PrimaryKey
	}
	return keys
}
