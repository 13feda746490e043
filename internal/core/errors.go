package core

import "errors"

// Errors returned by the driver.
var (
	// ErrUnsupportedDialect is returned when no dialect is registered for a driver name.
	ErrUnsupportedDialect = errors.New("unsupported database dialect")
	// ErrNoTable is returned when a statement is executed before any table was set.
	ErrNoTable = errors.New("no table specified")
	// ErrEmptyData is returned by writes that carry no column values.
	ErrEmptyData = errors.New("no data to write")
	// ErrNoColumns is returned by ListFields for a table without columns.
	ErrNoColumns = errors.New("table has no columns")
)

// WrapError wraps an error with additional context message.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg: message,
		err: err,
	}
}

type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *wrappedError) Unwrap() error {
	return e.err
}
