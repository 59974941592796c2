package pipeline

import (
	"errors"
	"net/http"
)

// Error is a request-level failure. It ends the request with Status before any
// event is dispatched.
type Error struct {
	Status int
	Code   string
	Text   string
}

func (e *Error) Error() string {
	return e.Text
}

var (
	ErrUnauthorized     = &Error{Status: http.StatusUnauthorized, Code: "unauthorized", Text: "Unauthorized"}
	ErrBadEncoding      = &Error{Status: http.StatusBadRequest, Code: "bad_encoding", Text: "Invalid content encoding"}
	ErrMalformedBody    = &Error{Status: http.StatusBadRequest, Code: "malformed_body", Text: "Invalid data format"}
	ErrBodyTooLarge     = &Error{Status: http.StatusRequestEntityTooLarge, Code: "body_too_large", Text: "Request body too large"}
	ErrMethodNotAllowed = &Error{Status: http.StatusMethodNotAllowed, Code: "method_not_allowed", Text: "Method not allowed"}
)

// AsError returns the *Error carried by err. Errors from outside the pipeline
// are reported as malformed bodies.
func AsError(err error) *Error {
	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}
	return ErrMalformedBody
}
