package model

import "errors"

var (
	// ErrInvalidInput is returned when a required argument is missing or
	// empty. No statement is executed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoRelationship is returned when joining a table that has no
	// relationship with the primary table.
	ErrNoRelationship = errors.New("no relationship")
	// ErrNothingToJoin is returned by JoinReferenced when no table was
	// referenced in the current query.
	ErrNothingToJoin = errors.New("no referenced tables to join")
	// ErrNoResults is returned when a read matches no rows.
	ErrNoResults = errors.New("no results")
	// ErrUnknownTable is returned for a table key that was never declared.
	ErrUnknownTable = errors.New("unknown table")
	// ErrUnknownField is recorded in strict mode when a field cannot be
	// resolved against any candidate table.
	ErrUnknownField = errors.New("unknown field")
)
