// Package api implements the HTTP surface of Slowpost: a framework-agnostic
// handler contract, a declarative route table, and the dispatcher that binds
// them to a runtime. Handlers never touch the wire; they consume a normalized
// Request and produce a Result, and the dispatcher is the single place where
// errors become HTTP responses.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/slowpost/slowpost/auth"
)

// SessionCookieName is the browser cookie carrying the session token.
const SessionCookieName = "auth_token"

// Request is the runtime-independent view of an inbound request. The
// dispatcher fills Params and User before invoking a handler.
type Request struct {
	Method     string
	Path       string
	Header     http.Header
	Cookies    map[string]string
	Query      url.Values
	Body       []byte
	RemoteAddr string

	// Params holds the :param captures from the matched route pattern.
	Params map[string]string
	// User is the authenticated session, or nil. It is resolved whenever a
	// valid session cookie is present, even on routes that don't require
	// auth, so handlers can vary responses for signed-in callers.
	User *auth.Session
}

// Cookie returns the named request cookie value, or "".
func (r *Request) Cookie(name string) string {
	return r.Cookies[name]
}

// CookieAction instructs the dispatcher to set or clear a response cookie.
type CookieAction struct {
	Name     string
	Value    string
	Path     string
	MaxAge   int // seconds; ignored when Clear is set
	HTTPOnly bool
	Secure   bool
	SameSite http.SameSite
	Clear    bool
}

// Result is the runtime-independent view of a response. A zero Status is
// treated as 200.
type Result struct {
	Status  int
	Body    any
	Header  http.Header
	Cookies []CookieAction
}

// HandlerFunc maps a normalized request to a result. Expected failures are
// returned as *Error; anything else is treated as an unexpected 500.
type HandlerFunc func(ctx context.Context, req *Request) (*Result, error)

// Error is a typed, user-facing failure. The dispatcher maps it to its
// status and message; the message is safe to show to clients.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Errorf builds an Error with a formatted message.
func Errorf(status int, format string, args ...any) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

func badRequest(format string, args ...any) *Error {
	return Errorf(http.StatusBadRequest, format, args...)
}

func unauthorized(format string, args ...any) *Error {
	return Errorf(http.StatusUnauthorized, format, args...)
}

func forbidden(format string, args ...any) *Error {
	return Errorf(http.StatusForbidden, format, args...)
}

func notFound(format string, args ...any) *Error {
	return Errorf(http.StatusNotFound, format, args...)
}

func conflict(format string, args ...any) *Error {
	return Errorf(http.StatusConflict, format, args...)
}

// decodeJSON parses the request body into T. A missing or malformed body
// is a 400.
func decodeJSON[T any](req *Request) (T, error) {
	var v T
	if len(req.Body) == 0 {
		return v, badRequest("request body is required")
	}
	if err := json.Unmarshal(req.Body, &v); err != nil {
		return v, badRequest("malformed JSON body")
	}
	return v, nil
}
