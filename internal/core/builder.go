package core

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/coregx/relmodel/internal/dialects"
)

// ActiveRecord accumulates clauses across calls and executes them as one
// statement. Clause state is cleared after every execution, whether it
// succeeds or fails. An ActiveRecord is not safe for concurrent use.
type ActiveRecord struct {
	db *DB

	tables    []string
	froms     []string
	selects   []string
	distinct  bool
	joins     []string
	wheres    []Expression
	orders    []string
	orderCols []string
	limit     int
	offset    int
	hasLimit  bool

	// err holds the first rejected raw fragment and fails the next execution.
	err error
}

var (
	columnRe     = regexp.MustCompile(`^[A-Za-z_]\w*(?:\.(?:[A-Za-z_]\w*|\*))*$`)
	whereKeyRe   = regexp.MustCompile(`(?i)^\s*(.+?)\s*(<=|>=|<>|!=|=|<|>|\bNOT\s+LIKE|\bLIKE|\bIS\s+NOT|\bIS|\bNOT\s+IN|\bIN)\s*$`)
	selectAsRe   = regexp.MustCompile(`(?i)^([\w.]+)\s+(?:AS\s+)?(\w+)$`)
	joinTermRe   = regexp.MustCompile(`^\s*([A-Za-z_]\w*(?:\.[A-Za-z_]\w*)?)\s*(=|<>|!=|<=|>=|<|>)\s*([A-Za-z_]\w*(?:\.[A-Za-z_]\w*)?)\s*$`)
	joinAndRe    = regexp.MustCompile(`(?i)\s+AND\s+`)
	spaceRunRe   = regexp.MustCompile(`\s+`)
	validJoinOps = map[string]bool{
		"LEFT": true, "RIGHT": true, "OUTER": true, "INNER": true,
		"LEFT OUTER": true, "RIGHT OUTER": true,
	}
)

// Dialect returns the dialect statements are rendered for.
func (ar *ActiveRecord) Dialect() dialects.Dialect {
	return ar.db.dialect
}

// From adds a table to the FROM clause. alias is rendered only when it
// differs from table. Adding the same reference twice has no effect.
func (ar *ActiveRecord) From(table, alias string) {
	ref := ar.tableRef(table, alias)
	for _, f := range ar.froms {
		if f == ref {
			return
		}
	}
	ar.froms = append(ar.froms, ref)
	ar.tables = append(ar.tables, table)
}

// Select adds a select expression. With escape, comma-separated column
// references are quoted ("o.name AS office" included); without it the
// expression is used verbatim.
func (ar *ActiveRecord) Select(expr string, escape bool) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return
	}
	if !escape {
		ar.checkFragment(expr)
		ar.selects = append(ar.selects, expr)
		return
	}

	items := []string{expr}
	if !strings.Contains(expr, "(") {
		items = strings.Split(expr, ",")
	}
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			ar.selects = append(ar.selects, ar.quoteSelectItem(item))
		}
	}
}

// Where adds an AND condition. column may end with an operator ("id >=",
// "name LIKE", "deleted_at IS NOT"); the default is equality. A nil value
// compares with NULL, and IN/NOT IN accept a slice.
func (ar *ActiveRecord) Where(column string, value interface{}, escape bool) {
	col, op := splitOperator(column)
	ar.checkColumn(col)

	if op == "IN" || op == "NOT IN" {
		values, ok := listValues(value)
		if !ok {
			values = []interface{}{value}
		}
		ar.wheres = append(ar.wheres, &InExp{Col: col, Values: values, Not: op == "NOT IN", Raw: !escape})
		return
	}
	ar.wheres = append(ar.wheres, &CompareExp{Col: col, Operator: op, Value: value, Raw: !escape})
}

// WhereIn adds column IN (values...). An empty list matches nothing.
func (ar *ActiveRecord) WhereIn(column string, values []interface{}, escape bool) {
	column = strings.TrimSpace(column)
	ar.checkColumn(column)
	ar.wheres = append(ar.wheres, &InExp{Col: column, Values: values, Raw: !escape})
}

// WhereRaw adds a verbatim condition with "?" placeholders.
func (ar *ActiveRecord) WhereRaw(expr string, args ...interface{}) {
	ar.checkFragment(expr, args...)
	ar.wheres = append(ar.wheres, NewExp(expr, args...))
}

// WhereExp adds an arbitrary expression.
func (ar *ActiveRecord) WhereExp(exp Expression) {
	ar.wheres = append(ar.wheres, exp)
}

// Join adds a JOIN. joinType is one of LEFT, RIGHT, OUTER, INNER, LEFT OUTER
// and RIGHT OUTER (case-insensitive); anything else renders a plain JOIN.
// Column comparisons in on ("o.country_iso = c.iso", possibly joined with
// AND) are quoted; any other condition is used verbatim.
func (ar *ActiveRecord) Join(table, alias, on, joinType string) {
	jt := strings.ToUpper(spaceRunRe.ReplaceAllString(strings.TrimSpace(joinType), " "))
	prefix := ""
	if validJoinOps[jt] {
		prefix = jt + " "
	}
	ar.joins = append(ar.joins, prefix+"JOIN "+ar.tableRef(table, alias)+" ON "+ar.joinCondition(on))
}

// Distinct toggles SELECT DISTINCT.
func (ar *ActiveRecord) Distinct(distinct bool) {
	ar.distinct = distinct
}

// Limit sets LIMIT and OFFSET. A negative limit keeps only the offset.
func (ar *ActiveRecord) Limit(limit, offset int) {
	ar.limit, ar.offset, ar.hasLimit = limit, offset, limit >= 0
}

// OrderBy appends an ORDER BY term. direction is ASC unless it is "desc"
// (case-insensitive).
func (ar *ActiveRecord) OrderBy(column, direction string) {
	column = strings.TrimSpace(column)
	if column == "" {
		return
	}
	ar.checkColumn(column)
	dir := "ASC"
	if strings.EqualFold(strings.TrimSpace(direction), "desc") {
		dir = "DESC"
	}
	quoted := dialects.QuoteQualified(ar.db.dialect, column)
	ar.orders = append(ar.orders, quoted+" "+dir)
	ar.orderCols = append(ar.orderCols, quoted)
}

// Reset clears every accumulated clause.
func (ar *ActiveRecord) Reset() {
	*ar = ActiveRecord{db: ar.db}
}

// Get runs the accumulated SELECT and returns one map per row.
func (ar *ActiveRecord) Get(ctx context.Context) ([]map[string]interface{}, error) {
	defer ar.Reset()

	query, args, err := ar.compileSelect()
	if err != nil {
		return nil, err
	}
	return ar.db.query(ctx, statement{sql: ar.rebind(query), args: args, table: ar.mainTable()})
}

// CountAllResults counts the rows the accumulated SELECT would return,
// ignoring ORDER BY and LIMIT.
func (ar *ActiveRecord) CountAllResults(ctx context.Context) (int64, error) {
	defer ar.Reset()

	if ar.err != nil {
		return 0, ar.err
	}
	if len(ar.froms) == 0 {
		return 0, ErrNoTable
	}

	where, args := ar.compileWhere()
	var query string
	if ar.distinct && len(ar.selects) > 0 {
		query = "SELECT COUNT(*) AS numrows FROM (SELECT DISTINCT " + strings.Join(ar.selects, ", ") +
			ar.compileFrom() + where + ") relmodel_count"
	} else {
		query = "SELECT COUNT(*) AS numrows" + ar.compileFrom() + where
	}

	rows, err := ar.db.query(ctx, statement{sql: ar.rebind(query), args: args, table: ar.mainTable()})
	if err != nil {
		return 0, err
	}
	return numRows(rows), nil
}

// CountAll counts every row of table. Accumulated clauses are discarded.
func (ar *ActiveRecord) CountAll(ctx context.Context, table string) (int64, error) {
	defer ar.Reset()

	if table == "" {
		return 0, ErrNoTable
	}
	query := "SELECT COUNT(*) AS numrows FROM " + ar.db.dialect.QuoteIdentifier(table)
	rows, err := ar.db.query(ctx, statement{sql: query, table: table})
	if err != nil {
		return 0, err
	}
	return numRows(rows), nil
}

// Insert writes one row and returns the generated key, or 0 when the
// database did not report one.
func (ar *ActiveRecord) Insert(ctx context.Context, table string, data map[string]interface{}, pk string) (int64, error) {
	defer ar.Reset()

	cols, args, err := ar.prepareWrite(table, data)
	if err != nil {
		return 0, err
	}
	query := ar.insertSQL(table, cols, 1)

	if returning := ar.db.dialect.ReturningSQL(pk); returning != "" {
		st := statement{sql: ar.rebind(query + returning), args: args, table: table, columns: cols}
		rows, err := ar.db.query(ctx, st)
		if err != nil || len(rows) == 0 {
			return 0, err
		}
		id, _ := toInt64(rows[0][pk])
		return id, nil
	}

	res, err := ar.db.exec(ctx, statement{sql: ar.rebind(query), args: args, table: table, columns: cols})
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, nil //nolint:nilerr // driver does not report generated keys
	}
	return id, nil
}

// InsertBatch writes several rows in one statement. The column list is the
// union of every row's keys; missing values are written as NULL.
func (ar *ActiveRecord) InsertBatch(ctx context.Context, table string, rows []map[string]interface{}) (int64, error) {
	defer ar.Reset()

	if ar.err != nil {
		return 0, ar.err
	}
	if table == "" {
		return 0, ErrNoTable
	}
	seen := make(map[string]struct{})
	for _, row := range rows {
		for k := range row {
			seen[k] = struct{}{}
		}
	}
	if len(rows) == 0 || len(seen) == 0 {
		return 0, ErrEmptyData
	}

	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	cols = sortedStrings(cols)

	args := make([]interface{}, 0, len(cols)*len(rows))
	masked := make([]string, 0, len(cols)*len(rows))
	for _, row := range rows {
		for _, c := range cols {
			args = append(args, row[c])
		}
		masked = append(masked, cols...)
	}

	query := ar.insertSQL(table, cols, len(rows))
	res, err := ar.db.exec(ctx, statement{sql: ar.rebind(query), args: args, table: table, columns: masked})
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Upsert inserts data or, when a row with the same conflict columns exists,
// updates its remaining columns. With nothing left to update the conflict is
// ignored.
func (ar *ActiveRecord) Upsert(ctx context.Context, table string, data map[string]interface{}, conflict []string) (int64, error) {
	defer ar.Reset()

	cols, args, err := ar.prepareWrite(table, data)
	if err != nil {
		return 0, err
	}

	var update []string
	for _, c := range cols {
		if !containsString(conflict, c) {
			update = append(update, c)
		}
	}

	query := ar.insertSQL(table, cols, 1) + ar.db.dialect.UpsertSQL(conflict, update)
	res, err := ar.db.exec(ctx, statement{sql: ar.rebind(query), args: args, table: table, columns: cols})
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Update sets data on the rows matched by the accumulated WHERE clause.
func (ar *ActiveRecord) Update(ctx context.Context, table string, data map[string]interface{}) (int64, error) {
	defer ar.Reset()

	cols, args, err := ar.prepareWrite(table, data)
	if err != nil {
		return 0, err
	}

	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = ar.db.dialect.QuoteIdentifier(c) + " = ?"
	}
	where, whereArgs := ar.compileWhere()
	query := "UPDATE " + ar.db.dialect.QuoteIdentifier(table) + " SET " + strings.Join(sets, ", ") + where

	res, err := ar.db.exec(ctx, statement{
		sql:     ar.rebind(query),
		args:    append(args, whereArgs...),
		table:   table,
		columns: cols,
	})
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes the rows matched by the accumulated WHERE clause, at most
// limit rows when limit is positive.
func (ar *ActiveRecord) Delete(ctx context.Context, table string, limit int) (int64, error) {
	defer ar.Reset()

	if ar.err != nil {
		return 0, ar.err
	}
	if table == "" {
		return 0, ErrNoTable
	}

	quoted := ar.db.dialect.QuoteIdentifier(table)
	where, args := ar.compileWhere()
	query := "DELETE FROM " + quoted + where
	if limit > 0 {
		query = ar.db.dialect.DeleteLimitSQL(quoted, where, limit)
	}

	res, err := ar.db.exec(ctx, statement{sql: ar.rebind(query), args: args, table: table})
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListFields returns the column names of table in declaration order. It does
// not touch accumulated clauses.
func (ar *ActiveRecord) ListFields(ctx context.Context, table string) ([]string, error) {
	query, args := ar.db.dialect.ColumnsSQL(table)
	rows, err := ar.db.query(ctx, statement{sql: ar.rebind(query), args: args, table: table})
	if err != nil {
		return nil, err
	}
	fields := make([]string, 0, len(rows))
	for _, row := range rows {
		if name, ok := row["name"].(string); ok {
			fields = append(fields, name)
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoColumns, table)
	}
	return fields, nil
}

// SQL renders the accumulated SELECT without executing or clearing it.
func (ar *ActiveRecord) SQL() (string, []interface{}, error) {
	query, args, err := ar.compileSelect()
	if err != nil {
		return "", nil, err
	}
	return ar.rebind(query), args, nil
}

func (ar *ActiveRecord) compileSelect() (string, []interface{}, error) {
	if ar.err != nil {
		return "", nil, ar.err
	}
	if len(ar.froms) == 0 {
		return "", nil, ErrNoTable
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if ar.distinct {
		sb.WriteString("DISTINCT ")
	}
	switch {
	case len(ar.selects) == 0:
		sb.WriteString("*")
	case ar.distinct && ar.db.dialect.OrderInDistinct():
		sb.WriteString(strings.Join(ar.distinctSelects(), ", "))
	default:
		sb.WriteString(strings.Join(ar.selects, ", "))
	}
	sb.WriteString(ar.compileFrom())

	where, args := ar.compileWhere()
	sb.WriteString(where)

	if len(ar.orders) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(ar.orders, ", "))
	}

	limit := -1
	if ar.hasLimit {
		limit = ar.limit
	}
	sb.WriteString(ar.db.dialect.LimitSQL(limit, ar.offset))

	return sb.String(), args, nil
}

// distinctSelects returns the select list extended with every ORDER BY
// column it does not already produce.
func (ar *ActiveRecord) distinctSelects() []string {
	selected := make(map[string]bool, len(ar.selects))
	for _, s := range ar.selects {
		if i := strings.Index(s, " AS "); i >= 0 {
			selected[s[:i]] = true
		}
		selected[s] = true
	}
	out := ar.selects
	for _, col := range ar.orderCols {
		if selected[col] {
			continue
		}
		selected[col] = true
		out = append(out[:len(out):len(out)], col)
	}
	return out
}

func (ar *ActiveRecord) compileFrom() string {
	s := " FROM " + strings.Join(ar.froms, ", ")
	for _, j := range ar.joins {
		s += " " + j
	}
	return s
}

func (ar *ActiveRecord) compileWhere() (string, []interface{}) {
	sql, args := buildConjunction(ar.db.dialect, ar.wheres)
	if sql == "" {
		return "", nil
	}
	return " WHERE " + sql, args
}

// prepareWrite validates a single-row write and returns its sorted columns
// with the matching values.
func (ar *ActiveRecord) prepareWrite(table string, data map[string]interface{}) ([]string, []interface{}, error) {
	if ar.err != nil {
		return nil, nil, ar.err
	}
	if table == "" {
		return nil, nil, ErrNoTable
	}
	if len(data) == 0 {
		return nil, nil, ErrEmptyData
	}
	cols := sortedKeys(data)
	args := make([]interface{}, len(cols))
	for i, c := range cols {
		args[i] = data[c]
	}
	return cols, args, nil
}

func (ar *ActiveRecord) insertSQL(table string, cols []string, rows int) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = ar.db.dialect.QuoteIdentifier(c)
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	tuples := make([]string, rows)
	for i := range tuples {
		tuples[i] = tuple
	}
	return "INSERT INTO " + ar.db.dialect.QuoteIdentifier(table) +
		" (" + strings.Join(quoted, ", ") + ") VALUES " + strings.Join(tuples, ", ")
}

func (ar *ActiveRecord) tableRef(table, alias string) string {
	ref := ar.db.dialect.QuoteIdentifier(table)
	if alias != "" && alias != table {
		ref += " AS " + ar.db.dialect.QuoteIdentifier(alias)
	}
	return ref
}

func (ar *ActiveRecord) quoteSelectItem(item string) string {
	if m := selectAsRe.FindStringSubmatch(item); m != nil {
		return dialects.QuoteQualified(ar.db.dialect, m[1]) + " AS " + ar.db.dialect.QuoteIdentifier(m[2])
	}
	return dialects.QuoteQualified(ar.db.dialect, item)
}

func (ar *ActiveRecord) joinCondition(on string) string {
	terms := joinAndRe.Split(strings.TrimSpace(on), -1)
	for i, term := range terms {
		m := joinTermRe.FindStringSubmatch(term)
		if m == nil {
			ar.checkFragment(on)
			return on
		}
		terms[i] = dialects.QuoteQualified(ar.db.dialect, m[1]) + " " + m[2] + " " +
			dialects.QuoteQualified(ar.db.dialect, m[3])
	}
	return strings.Join(terms, " AND ")
}

// checkColumn validates column as a raw fragment unless it is a plain
// (possibly qualified) column reference.
func (ar *ActiveRecord) checkColumn(column string) {
	if !columnRe.MatchString(column) {
		ar.checkFragment(column)
	}
}

// checkFragment records the first raw fragment rejected by the validator.
func (ar *ActiveRecord) checkFragment(fragment string, args ...interface{}) {
	v := ar.db.validator
	if v == nil || ar.err != nil {
		return
	}
	if err := v.ValidateFragment(fragment); err != nil {
		ar.err = err
		return
	}
	if err := v.ValidateParams(args); err != nil {
		ar.err = err
	}
}

func (ar *ActiveRecord) mainTable() string {
	if len(ar.tables) == 0 {
		return ""
	}
	return ar.tables[0]
}

// rebind replaces "?" placeholders outside quoted text with the dialect's
// numbered placeholders.
func (ar *ActiveRecord) rebind(query string) string {
	d := ar.db.dialect
	if d.Placeholder(1) == "?" || !strings.Contains(query, "?") {
		return query
	}

	var sb strings.Builder
	sb.Grow(len(query) + 8)
	var quote rune
	n := 0
	for _, r := range query {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '?':
			n++
			sb.WriteString(d.Placeholder(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// splitOperator separates a trailing comparison operator from a WHERE key.
func splitOperator(key string) (col, op string) {
	m := whereKeyRe.FindStringSubmatch(key)
	if m == nil {
		return strings.TrimSpace(key), "="
	}
	return m[1], strings.ToUpper(spaceRunRe.ReplaceAllString(m[2], " "))
}

func numRows(rows []map[string]interface{}) int64 {
	if len(rows) == 0 {
		return 0
	}
	n, _ := toInt64(rows[0]["numrows"])
	return n
}
