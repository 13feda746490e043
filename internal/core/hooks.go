package core

import (
	"context"
	"time"
)

// QueryEvent describes an executed statement. Args are masked the same way
// as in logs.
type QueryEvent struct {
	SQL       string
	Args      []interface{}
	Table     string
	Operation string // SELECT, INSERT, UPDATE, DELETE, UNKNOWN
	Duration  time.Duration
	// Rows is the number of rows returned by a SELECT or affected by a write.
	Rows  int64
	Error error
}

// QueryHook is invoked after each statement, successful or not.
//
// Example:
//
//	db, _ := relmodel.Open("sqlite", ":memory:",
//	    relmodel.WithQueryHook(func(ctx context.Context, e relmodel.QueryEvent) {
//	        metrics.Observe(e.Operation, e.Duration)
//	    }))
type QueryHook func(ctx context.Context, event QueryEvent)

func (db *DB) invokeHook(ctx context.Context, event QueryEvent) {
	if db.queryHook != nil {
		db.queryHook(ctx, event)
	}
}
