// Copyright (c) 2025 COREGX. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package core

import (
	"strings"

	"github.com/coregx/relmodel/internal/dialects"
)

// Expression is a WHERE fragment. Build returns SQL with "?" placeholders;
// renumbering for the dialect happens once the whole statement is assembled.
type Expression interface {
	Build(dialect dialects.Dialect) (sql string, args []interface{})
}

// RawExp is a SQL fragment used verbatim.
//
// Example:
//
//	core.NewExp("o.opened BETWEEN ? AND ?", from, to)
type RawExp struct {
	SQL  string
	Args []interface{}
}

// NewExp creates a raw SQL expression with optional parameter bindings.
func NewExp(sql string, args ...interface{}) Expression {
	return &RawExp{SQL: sql, Args: args}
}

// Build returns the fragment unchanged.
func (e *RawExp) Build(_ dialects.Dialect) (string, []interface{}) {
	return e.SQL, e.Args
}

// CompareExp compares a column with a value. A nil value turns equality into
// IS NULL and inequality into IS NOT NULL.
type CompareExp struct {
	Col      string
	Operator string
	Value    interface{}
	// Raw leaves Col unquoted.
	Raw bool
}

// Eq generates an equality expression (column = value).
func Eq(col string, value interface{}) Expression {
	return &CompareExp{Col: col, Operator: "=", Value: value}
}

// NotEq generates an inequality expression (column <> value).
func NotEq(col string, value interface{}) Expression {
	return &CompareExp{Col: col, Operator: "<>", Value: value}
}

// Build converts a comparison into a SQL fragment.
func (e *CompareExp) Build(dialect dialects.Dialect) (string, []interface{}) {
	col := e.Col
	if !e.Raw {
		col = dialects.QuoteQualified(dialect, col)
	}
	op := e.Operator
	if op == "" {
		op = "="
	}

	if e.Value == nil {
		switch op {
		case "=", "IS":
			return col + " IS NULL", nil
		case "<>", "!=", "IS NOT":
			return col + " IS NOT NULL", nil
		}
	}

	if expr, ok := e.Value.(Expression); ok {
		sql, args := expr.Build(dialect)
		return col + " " + op + " (" + sql + ")", args
	}

	return col + " " + op + " ?", []interface{}{e.Value}
}

// InExp represents an IN or NOT IN expression.
type InExp struct {
	Col    string
	Values []interface{}
	Not    bool
	Raw    bool
}

// In generates column IN (values...). An empty list never matches.
func In(col string, values ...interface{}) Expression {
	return &InExp{Col: col, Values: values}
}

// NotIn generates column NOT IN (values...). An empty list always matches.
func NotIn(col string, values ...interface{}) Expression {
	return &InExp{Col: col, Values: values, Not: true}
}

// Build converts an IN expression into a SQL fragment. Nil values are
// rendered as NULL literals.
func (e *InExp) Build(dialect dialects.Dialect) (string, []interface{}) {
	if len(e.Values) == 0 {
		if e.Not {
			return "", nil
		}
		return "0=1", nil
	}

	col := e.Col
	if !e.Raw {
		col = dialects.QuoteQualified(dialect, col)
	}

	placeholders := make([]string, len(e.Values))
	args := make([]interface{}, 0, len(e.Values))
	for i, v := range e.Values {
		if v == nil {
			placeholders[i] = "NULL"
			continue
		}
		placeholders[i] = "?"
		args = append(args, v)
	}

	op := " IN ("
	if e.Not {
		op = " NOT IN ("
	}
	return col + op + strings.Join(placeholders, ", ") + ")", args
}

// buildConjunction joins non-empty fragments with AND. When there is more
// than one, every fragment other than a plain column comparison is
// parenthesized so an OR inside it stays local.
func buildConjunction(dialect dialects.Dialect, exps []Expression) (string, []interface{}) {
	type part struct {
		sql    string
		simple bool
	}
	parts := make([]part, 0, len(exps))
	var args []interface{}
	for _, exp := range exps {
		if exp == nil {
			continue
		}
		sql, a := exp.Build(dialect)
		if sql == "" {
			continue
		}
		parts = append(parts, part{sql: sql, simple: isComparison(exp)})
		args = append(args, a...)
	}

	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = p.sql
		if len(parts) > 1 && !p.simple {
			out[i] = "(" + p.sql + ")"
		}
	}
	return strings.Join(out, " AND "), args
}

// isComparison reports whether exp compares a single column reference.
func isComparison(exp Expression) bool {
	switch e := exp.(type) {
	case *CompareExp:
		return columnRe.MatchString(e.Col)
	case *InExp:
		return columnRe.MatchString(e.Col)
	}
	return false
}
