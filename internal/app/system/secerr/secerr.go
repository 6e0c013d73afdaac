// Package secerr defines the error kinds shared by the telemetry engines and
// their HTTP surface. Callers test kinds with errors.Is; causes stay wrapped.
package secerr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation marks malformed or out-of-range client input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a lookup with no matching record.
	ErrNotFound = errors.New("not found")
	// ErrStorageUnavailable marks a read or aggregation the event store could not serve.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// InvalidDateFormat reports a date parameter that is not YYYY-MM-DD.
type InvalidDateFormat struct {
	Field string
	Value string
}

func (e *InvalidDateFormat) Error() string {
	return fmt.Sprintf("Invalid %s format. Use YYYY-MM-DD", e.Field)
}

func (e *InvalidDateFormat) Unwrap() error { return ErrValidation }

// ValidationError is a client input problem with a message safe to return.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

type storageError struct {
	cause error
}

func (e *storageError) Error() string {
	return "storage unavailable: " + e.cause.Error()
}

func (e *storageError) Unwrap() []error {
	return []error{ErrStorageUnavailable, e.cause}
}

// Storage marks err as ErrStorageUnavailable, keeping it as the cause.
// nil stays nil, and already-marked errors are returned unchanged.
func Storage(err error) error {
	if err == nil || errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return &storageError{cause: err}
}

// HTTPStatus maps an error to the status code the facade reports.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text a client may see for err. Validation
// messages are returned as-is; everything else is reduced to its kind.
func PublicMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return err.Error()
	case errors.Is(err, ErrNotFound):
		return "not found"
	case errors.Is(err, ErrStorageUnavailable):
		return "event store unavailable"
	default:
		return "internal error"
	}
}
