// Package util provides struct reflection and identifier helpers used by
// the model layer.
package util

import (
	"errors"
	"reflect"
	"strings"
)

// parseDBTag splits a db tag into the column name and its options.
//
// Supported formats:
//   - "column"            -> column
//   - "column,pk"         -> column, marked as primary key
//   - "column,omitempty"  -> column, skipped when zero
//   - "-"                 -> field skipped
func parseDBTag(tag string) (column string, opts map[string]bool) {
	parts := strings.Split(tag, ",")
	opts = make(map[string]bool, len(parts)-1)
	for _, p := range parts[1:] {
		opts[strings.TrimSpace(p)] = true
	}
	return strings.TrimSpace(parts[0]), opts
}

func structValue(v interface{}, caller string) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return reflect.Value{}, errors.New(caller + ": nil pointer")
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, errors.New(caller + ": expected struct, got " + rv.Kind().String())
	}
	return rv, nil
}

// columnOf returns the column a struct field maps to, or "" when the field
// is skipped.
func columnOf(field reflect.StructField) (string, map[string]bool) {
	if !field.IsExported() {
		return "", nil
	}
	tag, ok := field.Tag.Lookup("db")
	if !ok {
		return field.Name, nil
	}
	column, opts := parseDBTag(tag)
	if column == "-" {
		return "", nil
	}
	if column == "" {
		column = field.Name
	}
	return column, opts
}

// StructToMap converts a struct to a column map using db tags.
//
// Rules:
//   - Unexported fields and db:"-" fields are skipped.
//   - Fields without a db tag use the field name.
//   - omitempty fields are skipped when they hold their zero value.
func StructToMap(data interface{}) (map[string]interface{}, error) {
	v, err := structValue(data, "StructToMap")
	if err != nil {
		return nil, err
	}

	t := v.Type()
	result := make(map[string]interface{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		column, opts := columnOf(t.Field(i))
		if column == "" {
			continue
		}
		fv := v.Field(i)
		if opts["omitempty"] && fv.IsZero() {
			continue
		}
		result[column] = fv.Interface()
	}
	return result, nil
}

// FieldByColumn returns the settable struct field mapped to column. data
// must be a non-nil pointer to a struct.
func FieldByColumn(data interface{}, column string) (reflect.Value, error) {
	if rv := reflect.ValueOf(data); rv.Kind() != reflect.Ptr {
		return reflect.Value{}, errors.New("FieldByColumn: expected pointer to struct")
	}
	v, err := structValue(data, "FieldByColumn")
	if err != nil {
		return reflect.Value{}, err
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if c, _ := columnOf(t.Field(i)); c == column {
			return v.Field(i), nil
		}
	}
	return reflect.Value{}, errors.New("FieldByColumn: no field for column " + column)
}

// IsZeroID reports whether v holds a zero numeric id (nil pointers
// included). Non-numeric ids are never considered zero.
func IsZeroID(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Ptr:
		return v.IsNil() || IsZeroID(v.Elem())
	}
	return false
}

// SetID stores a generated id in a numeric field, allocating nil pointers.
func SetID(field reflect.Value, id int64) error {
	if !field.IsValid() || !field.CanSet() {
		return errors.New("SetID: field is not settable")
	}
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return SetID(field.Elem(), id)
	}

	switch field.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.OverflowInt(id) {
			return errors.New("SetID: " + field.Kind().String() + " overflow")
		}
		field.SetInt(id)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if id < 0 || field.OverflowUint(uint64(id)) {
			return errors.New("SetID: " + field.Kind().String() + " overflow")
		}
		field.SetUint(uint64(id))
	default:
		return errors.New("SetID: unsupported type " + field.Kind().String())
	}
	return nil
}
