package model

import (
	"fmt"
	"reflect"

	"github.com/coregx/relmodel/internal/schema"
	"github.com/coregx/relmodel/internal/util"
)

// InsertStruct inserts the db-tagged fields of v into table. When v is a
// pointer and its primary key field holds a zero number, the key is left to
// the database and the generated id is written back to the field.
func (m *Model) InsertStruct(v interface{}, table string) error {
	data, err := util.StructToMap(v)
	if err != nil {
		return fmt.Errorf("insert: %w: %v", ErrInvalidInput, err)
	}
	t, err := m.tableOrPrimary(table)
	if err != nil {
		return err
	}

	pk, settable := idField(v, t.PrimaryKey)
	if settable && util.IsZeroID(pk) {
		delete(data, t.PrimaryKey)
	} else {
		settable = false
	}

	if err := m.Insert(data, t.Alias); err != nil {
		return err
	}
	if id, ok := m.InsertID(); ok && id != 0 && settable {
		return util.SetID(pk, id)
	}
	return nil
}

// UpdateStruct writes the db-tagged fields of v to the row of table whose
// primary key equals the struct's primary key field.
func (m *Model) UpdateStruct(v interface{}, table string) error {
	data, err := util.StructToMap(v)
	if err != nil {
		return fmt.Errorf("update: %w: %v", ErrInvalidInput, err)
	}
	t, err := m.tableOrPrimary(table)
	if err != nil {
		return err
	}
	id, ok := data[t.PrimaryKey]
	if !ok {
		return fmt.Errorf("update: %w: struct has no %s field", ErrInvalidInput, t.PrimaryKey)
	}
	delete(data, t.PrimaryKey)
	return m.Update(data, Conditions{t.PrimaryKey: id}, t.Alias)
}

func (m *Model) tableOrPrimary(table string) (*schema.Table, error) {
	if table == "" {
		table = m.session.Primary
	}
	t, ok := m.tables[table]
	if !ok {
		return nil, fmt.Errorf("table %q: %w", table, ErrUnknownTable)
	}
	return t, nil
}

// idField returns the field of v mapped to column when v is a pointer to a
// struct holding one.
func idField(v interface{}, column string) (reflect.Value, bool) {
	f, err := util.FieldByColumn(v, column)
	if err != nil {
		return reflect.Value{}, false
	}
	return f, true
}
