package service

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a failure the client can act on. Anything else returned by the
// service is an internal error.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

var ErrInvalidSession = errors.New("invalid session")

func newError(status int, format string, args ...any) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

func badRequest(format string, args ...any) *Error {
	return newError(http.StatusBadRequest, format, args...)
}

func unauthorized(format string, args ...any) *Error {
	return newError(http.StatusUnauthorized, format, args...)
}

func forbidden(format string, args ...any) *Error {
	return newError(http.StatusForbidden, format, args...)
}

func notFound(format string, args ...any) *Error {
	return newError(http.StatusNotFound, format, args...)
}

func conflict(format string, args ...any) *Error {
	return newError(http.StatusConflict, format, args...)
}

func tooManyRequests(format string, args ...any) *Error {
	return newError(http.StatusTooManyRequests, format, args...)
}

func notImplemented(format string, args ...any) *Error {
	return newError(http.StatusNotImplemented, format, args...)
}

// AsError extracts a client-facing error, if err is one.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
