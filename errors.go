package sqlmap

import (
	"errors"
	"fmt"
)

// Registration failures. They abort factory construction.
var (
	// ErrNoStatement is returned when an operation sets none of Insert,
	// Update, Delete and Query.
	ErrNoStatement = errors.New("sqlmap: cannot proxy operation: no statement declared")

	// ErrMultipleStatements is returned when an operation sets more than one
	// statement marker.
	ErrMultipleStatements = errors.New("sqlmap: cannot proxy operation: more than one statement declared")

	// ErrDuplicateParam is returned when two parameters resolve to the same
	// bound name.
	ErrDuplicateParam = errors.New("sqlmap: duplicate parameter name")

	// ErrUnresolvedTag is returned when a placeholder names a parameter (or a
	// field of one) that the operation does not declare.
	ErrUnresolvedTag = errors.New("sqlmap: unresolved placeholder")

	// ErrBadTemplate is returned for malformed SQL templates.
	ErrBadTemplate = errors.New("sqlmap: malformed template")

	// ErrDuplicateOperation is returned when the same Interface.Method is
	// registered twice.
	ErrDuplicateOperation = errors.New("sqlmap: duplicate operation")

	// ErrGeneratedKey is returned when GeneratedKey is set on a non-insert.
	ErrGeneratedKey = errors.New("sqlmap: generated key requested on non-insert")
)

// Call-time failures.
var (
	ErrUnknownOperation = errors.New("sqlmap: unknown operation")
	ErrUnknownMapper    = errors.New("sqlmap: unknown mapper")
	ErrArgCount         = errors.New("sqlmap: wrong number of arguments")
	ErrNoField          = errors.New("sqlmap: no such field")
	ErrPoolClosed       = errors.New("sqlmap: pool closed")
)

// RegistrationError reports which operation failed to register.
type RegistrationError struct {
	Op  string
	Err error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register %s: %v", e.Op, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// ConversionError reports a result that could not be shaped into the declared
// return type, such as a column with no matching field. It is always returned
// to the caller.
type ConversionError struct {
	Op     string
	Column string
	Err    error
}

func (e *ConversionError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("sqlmap: %s: convert column %q: %v", e.Op, e.Column, e.Err)
	}
	return fmt.Sprintf("sqlmap: %s: convert result: %v", e.Op, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }
