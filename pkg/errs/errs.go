// Package errs defines the error kinds shared by every pipeline stage.
//
// Kinds are string codes so they read well in logs and in JSON. An *Error
// matches any other *Error of the same kind under errors.Is, which lets
// callers test for a kind through arbitrary fmt.Errorf wrapping:
//
//	if errors.Is(err, errs.ErrTableNotFound) { ... }
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies a class of failure.
type Kind string

const (
	// InvalidConfiguration marks bad generation or training parameters.
	InvalidConfiguration Kind = "INVALID_CONFIGURATION"

	// StoreUnavailable marks a feature store location that cannot be opened.
	StoreUnavailable Kind = "STORE_UNAVAILABLE"

	// SchemaError marks a table layout the store cannot accept or reproduce.
	SchemaError Kind = "SCHEMA_ERROR"

	// TableNotFound marks a read of a table that does not exist.
	TableNotFound Kind = "TABLE_NOT_FOUND"

	// InsufficientData marks a split that leaves a partition empty.
	InsufficientData Kind = "INSUFFICIENT_DATA"

	// SerializationError marks a model that could not be encoded.
	SerializationError Kind = "SERIALIZATION_ERROR"

	// IOError marks an artifact file that could not be written or read.
	IOError Kind = "IO_ERROR"

	// Unknown is reported by KindOf for errors that carry no kind.
	Unknown Kind = "UNKNOWN"
)

// Sentinels for errors.Is checks.
var (
	ErrInvalidConfiguration = &Error{Kind: InvalidConfiguration}
	ErrStoreUnavailable     = &Error{Kind: StoreUnavailable}
	ErrSchema               = &Error{Kind: SchemaError}
	ErrTableNotFound        = &Error{Kind: TableNotFound}
	ErrInsufficientData     = &Error{Kind: InsufficientData}
	ErrSerialization        = &Error{Kind: SerializationError}
	ErrIO                   = &Error{Kind: IOError}
)

// Error is a kinded error. Op names the operation that failed, e.g.
// "store.Read".
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// New returns an *Error with a formatted message.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches a kind to err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return errors.Is(err, &Error{Kind: kind})
}
