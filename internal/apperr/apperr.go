package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a failure class so gateway handlers can map domain
// errors to precise HTTP responses instead of a generic 500.
type Kind string

const (
	KindNotFound           Kind = "NOT_FOUND"
	KindForbidden          Kind = "FORBIDDEN"
	KindInvalidState       Kind = "INVALID_STATE"
	KindAlreadyFinalized   Kind = "ALREADY_FINALIZED"
	KindAlreadyAccepted    Kind = "ALREADY_ACCEPTED"
	KindAlreadyRefused     Kind = "ALREADY_REFUSED"
	KindEmptyQuote         Kind = "EMPTY_QUOTE"
	KindNoMechanicAssigned Kind = "NO_MECHANIC_ASSIGNED"
	KindPastDate           Kind = "PAST_DATE"
	KindMechanicBusy       Kind = "MECHANIC_UNAVAILABLE"
	KindConflict           Kind = "CONFLICT"
	KindValidation         Kind = "VALIDATION_ERROR"
	KindInternal           Kind = "INTERNAL"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind carried by err, or KindInternal for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error kind to the transport status the gateway
// should respond with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict, KindAlreadyFinalized, KindAlreadyAccepted, KindAlreadyRefused:
		return http.StatusConflict
	case KindInvalidState, KindEmptyQuote, KindNoMechanicAssigned, KindPastDate, KindMechanicBusy, KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
