package model

import (
	"fmt"
)

// Data maps column names to values for writes. Keys that are not fields of
// the target table are dropped.
type Data map[string]interface{}

// Insert writes data into table (the primary table when empty) and records
// the generated id.
func (m *Model) Insert(data Data, table string) error {
	if len(data) == 0 {
		return fmt.Errorf("insert: %w: empty data", ErrInvalidInput)
	}
	t, err := m.begin(table, nil)
	if err != nil {
		return err
	}
	row, err := m.filter(data, "insert")
	if err != nil {
		return err
	}

	id, err := m.driver.Insert(m.ctx, t.Name, row, t.PrimaryKey)
	if err != nil {
		return err
	}
	m.session.insertID = int64Ptr(id)
	return nil
}

// InsertBatch writes several rows in one statement and records the number
// of affected rows.
func (m *Model) InsertBatch(rows []Data, table string) (int64, error) {
	if len(rows) == 0 {
		return 0, fmt.Errorf("insert batch: %w: no rows", ErrInvalidInput)
	}
	t, err := m.begin(table, nil)
	if err != nil {
		return 0, err
	}

	filtered := make([]map[string]interface{}, 0, len(rows))
	for _, data := range rows {
		row, err := m.filter(data, "insert batch")
		if err != nil {
			return 0, err
		}
		filtered = append(filtered, row)
	}

	n, err := m.driver.InsertBatch(m.ctx, t.Name, filtered)
	if err != nil {
		return 0, err
	}
	m.session.affectedRows = int64Ptr(n)
	return n, nil
}

// Upsert inserts data or, when a row with the same primary key exists,
// updates it. It records the number of affected rows.
func (m *Model) Upsert(data Data, table string) error {
	if len(data) == 0 {
		return fmt.Errorf("upsert: %w: empty data", ErrInvalidInput)
	}
	t, err := m.begin(table, nil)
	if err != nil {
		return err
	}
	row, err := m.filter(data, "upsert")
	if err != nil {
		return err
	}

	n, err := m.driver.Upsert(m.ctx, t.Name, row, []string{t.PrimaryKey})
	if err != nil {
		return err
	}
	m.session.affectedRows = int64Ptr(n)
	return nil
}

// Update writes data to the rows of table matching where and records the
// number of affected rows. where is either Conditions or a primary key
// value. Conditions use the real table name.
func (m *Model) Update(data Data, where interface{}, table string) error {
	if len(data) == 0 || isEmpty(where) {
		return fmt.Errorf("update: %w: data and conditions are required", ErrInvalidInput)
	}
	t, err := m.begin(table, nil)
	if err != nil {
		return err
	}
	if err := m.whereForWrite(where, "update"); err != nil {
		return err
	}
	row, err := m.filter(data, "update")
	if err != nil {
		return err
	}

	n, err := m.driver.Update(m.ctx, t.Name, row)
	if err != nil {
		return err
	}
	m.session.affectedRows = int64Ptr(n)
	return nil
}

// Delete removes the rows of table matching where, at most limit rows when
// limit is positive, and records the number of affected rows.
func (m *Model) Delete(where interface{}, table string, limit int) error {
	if isEmpty(where) {
		return fmt.Errorf("delete: %w: conditions are required", ErrInvalidInput)
	}
	t, err := m.begin(table, nil)
	if err != nil {
		return err
	}
	if err := m.whereForWrite(where, "delete"); err != nil {
		return err
	}
	if err := m.session.err; err != nil {
		m.driver.Reset()
		return err
	}

	n, err := m.driver.Delete(m.ctx, t.Name, limit)
	if err != nil {
		return err
	}
	m.session.affectedRows = int64Ptr(n)
	return nil
}

// Count returns the number of rows of table matching where. Fields of
// related tables may be used; the tables are joined as needed.
func (m *Model) Count(where Conditions, table string, opts ...CallOption) (int64, error) {
	if len(where) == 0 {
		return 0, fmt.Errorf("count: %w: conditions are required", ErrInvalidInput)
	}
	t, err := m.begin(table, opts)
	if err != nil {
		return 0, err
	}

	tables := append(t.RelatedTables(), m.session.Joined()...)
	m.From("")
	m.where(where, tables, true)
	if err := m.JoinReferenced("left"); err != nil && !isNothingToJoin(err) {
		return 0, err
	}
	if err := m.session.err; err != nil {
		m.driver.Reset()
		return 0, err
	}
	return m.driver.CountAllResults(m.ctx)
}

// CountAll returns the number of rows in table.
func (m *Model) CountAll(table string) (int64, error) {
	t, err := m.begin(table, nil)
	if err != nil {
		return 0, err
	}
	return m.driver.CountAll(m.ctx, t.Name)
}

// whereForWrite applies the conditions of an update or delete. A write that
// would end up without any condition is refused.
func (m *Model) whereForWrite(where interface{}, op string) error {
	conds, ok := where.(Conditions)
	if !ok {
		if raw, isMap := where.(map[string]interface{}); isMap {
			conds = raw
		} else {
			conds = Conditions{m.tables[m.session.Primary].PrimaryKey: where}
		}
	}
	if m.where(conds, []string{m.session.Primary}, false) == 0 {
		m.driver.Reset()
		return fmt.Errorf("%s: %w: no condition matches a field of %s", op, ErrInvalidInput, m.session.Primary)
	}
	return nil
}

// filter keeps the keys of data that are fields of the primary table.
func (m *Model) filter(data Data, op string) (map[string]interface{}, error) {
	t := m.tables[m.session.Primary]
	row := make(map[string]interface{}, len(data))
	for k, v := range data {
		if t.HasField(k) {
			row[k] = v
			continue
		}
		m.drop(k, op)
	}
	if err := m.session.err; err != nil {
		m.driver.Reset()
		return nil, err
	}
	if len(row) == 0 {
		m.driver.Reset()
		return nil, fmt.Errorf("%s: %w: no known fields for %s", op, ErrInvalidInput, t.Alias)
	}
	return row, nil
}

func isEmpty(v interface{}) bool {
	switch vv := v.(type) {
	case nil:
		return true
	case string:
		return vv == ""
	case Conditions:
		return len(vv) == 0
	case map[string]interface{}:
		return len(vv) == 0
	}
	return false
}
