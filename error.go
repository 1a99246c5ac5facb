package bserve

import (
	"fmt"
	"net/http"

	"github.com/advdv/bserve/internal/pathpattern"
	"github.com/cockroachdb/errors"
)

// Code is an error code that mirrors the http status codes. Dispatching and request assembly signal their outcomes
// with it, and the [ErrorRenderer] turns it into a response.
type Code int

const (
	CodeUnknown                     Code = 0
	CodeBadRequest                  Code = http.StatusBadRequest                  // RFC 9110, 15.5.1
	CodeForbidden                   Code = http.StatusForbidden                   // RFC 9110, 15.5.4
	CodeNotFound                    Code = http.StatusNotFound                    // RFC 9110, 15.5.5
	CodeMethodNotAllowed            Code = http.StatusMethodNotAllowed            // RFC 9110, 15.5.6
	CodeRequestTimeout              Code = http.StatusRequestTimeout              // RFC 9110, 15.5.9
	CodeLengthRequired              Code = http.StatusLengthRequired              // RFC 9110, 15.5.12
	CodeRequestEntityTooLarge       Code = http.StatusRequestEntityTooLarge       // RFC 9110, 15.5.14
	CodeRequestURITooLong           Code = http.StatusRequestURITooLong           // RFC 9110, 15.5.15
	CodeRequestHeaderFieldsTooLarge Code = http.StatusRequestHeaderFieldsTooLarge // RFC 6585, 5

	CodeInternalServerError     Code = http.StatusInternalServerError     // RFC 9110, 15.6.1
	CodeNotImplemented          Code = http.StatusNotImplemented          // RFC 9110, 15.6.2
	CodeServiceUnavailable      Code = http.StatusServiceUnavailable      // RFC 9110, 15.6.4
	CodeHTTPVersionNotSupported Code = http.StatusHTTPVersionNotSupported // RFC 9110, 15.6.6
)

// Error describes an http error.
type Error struct {
	code Code
	err  error
}

// NewError inits a new error given the error code.
func NewError(c Code, underlying error) *Error {
	return &Error{c, underlying}
}

func (e *Error) Code() Code    { return e.code }
func (e *Error) Unwrap() error { return e.err }
func (e *Error) Error() string {
	status := http.StatusText(int(e.Code()))
	if status == "" {
		status = "Unknown"
	}

	if e.err == nil {
		return status
	}

	return fmt.Sprintf("%s: %s", status, e.err.Error())
}

// CodeOf returns the error's status code if it is or wraps an [*Error] and
// [CodeUnknown] otherwise.
func CodeOf(err error) Code {
	if herr, ok := asError(err); ok {
		return herr.Code()
	}
	return CodeUnknown
}

// asError uses errors.As to unwrap any error and look for an *Error.
func asError(err error) (*Error, bool) {
	var herr *Error
	ok := errors.As(err, &herr)
	return herr, ok
}

// InvalidPathError is returned when registering a handler with a malformed pattern.
type InvalidPathError = pathpattern.Error

// ErrInvalidPath matches every [InvalidPathError] with errors.Is.
var ErrInvalidPath = pathpattern.ErrInvalid
