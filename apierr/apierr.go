// Package apierr is the single sum error type the request-authorization
// pipeline propagates internally; the listener's one boundary point
// converts it to an HTTP response (spec §7, design notes §9).
package apierr

import (
	"fmt"
	"net/http"
)

// Error carries the HTTP status a pipeline failure should be translated to.
type Error struct {
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying cause, if any, for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.cause
}

func newError(status int, message string, cause error) *Error {
	return &Error{Status: status, Message: message, cause: cause}
}

// Unauthorized builds a 401 error: missing/malformed auth header, invalid
// signature, non-object payload, or PDP denial (spec §7).
func Unauthorized(message string) *Error {
	return newError(http.StatusUnauthorized, message, nil)
}

// BadRequest builds a 400 error: unparseable GraphQL document or
// unsupported Content-Type (spec §7).
func BadRequest(message string, cause error) *Error {
	return newError(http.StatusBadRequest, message, cause)
}

// MethodNotAllowed builds a 405 error for any verb besides GET/POST.
func MethodNotAllowed(message string) *Error {
	return newError(http.StatusMethodNotAllowed, message, nil)
}

// BadGateway builds a 502 error: the upstream connection failed, timed
// out, or produced no response (spec §7).
func BadGateway(message string, cause error) *Error {
	return newError(http.StatusBadGateway, message, cause)
}

// WriteTo writes err as the single HTTP response-translation boundary
// (design notes §9): a JSON body with an "error" message at err's status.
func WriteTo(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status)
	_, _ = w.Write([]byte(`{"error":"` + jsonEscape(err.Message) + `"}`))
}

func jsonEscape(s string) string {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		switch r {
		case '"', '\\':
			out = append(out, '\\', byte(r))
		case '\n':
			out = append(out, '\\', 'n')
		default:
			if r < 0x20 {
				out = append(out, fmt.Sprintf(`\u%04x`, r)...)
			} else {
				out = append(out, string(r)...)
			}
		}
	}
	return string(out)
}
