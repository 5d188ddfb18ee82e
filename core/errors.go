package core

import "github.com/pkg/errors"

var (
	// ErrPermissionDenied is returned when the acting identity lacks the capability for an operation,
	// or when the targeted record belongs to someone else.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrConflict is matched by every *ConflictError.
	ErrConflict = errors.New("conflicting record")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

// NewFieldError is a shortcut for a ValidationError on a single field.
func NewFieldError(field, msg string) error {
	return &ValidationError{Err: errors.New(msg), Fields: []FieldError{{Field: field, Error: msg}}}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// ConflictError reports a unique constraint violation. Constraint carries the constraint name so
// callers can tell which natural key collided.
type ConflictError struct {
	Constraint string
}

func (err *ConflictError) Error() string {
	return "unique constraint violated: " + err.Constraint
}

func (err *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// IsConflictOn reports whether err is a ConflictError on one of the given constraints.
func IsConflictOn(err error, constraints ...string) bool {
	var cErr *ConflictError
	if !errors.As(err, &cErr) {
		return false
	}
	for _, c := range constraints {
		if cErr.Constraint == c {
			return true
		}
	}
	return false
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
