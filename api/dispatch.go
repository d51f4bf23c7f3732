package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/slowpost/slowpost/auth"
	"github.com/slowpost/slowpost/internal/metrics"
	"github.com/slowpost/slowpost/store"
)

// maxBodySize caps request bodies read by the HTTP front-end.
const maxBodySize = 1 << 20

// Dispatcher resolves requests against the route table, enforces auth, and
// funnels every error into a wire response. It is the only layer that
// formats HTTP error bodies.
type Dispatcher struct {
	routes  []Route
	auth    *auth.Service
	logger  *slog.Logger
	metrics *metrics.Collector
}

// NewDispatcher creates a dispatcher over the given route table.
func NewDispatcher(routes []Route, svc *auth.Service, logger *slog.Logger, collector *metrics.Collector) *Dispatcher {
	return &Dispatcher{
		routes:  routes,
		auth:    svc,
		logger:  logger,
		metrics: collector,
	}
}

func errorResult(status int, message string) *Result {
	return &Result{Status: status, Body: ErrorResponse{Error: message}}
}

// Dispatch runs the full pipeline on a normalized request: route lookup,
// session resolution, auth enforcement, handler invocation, and error
// mapping. It never panics through and never returns nil.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) *Result {
	started := time.Now()
	path := normalizePath(req.Path)

	route, params, ok := findRoute(d.routes, req.Method, path)
	if !ok {
		res := errorResult(http.StatusNotFound, "not found")
		d.metrics.RecordRequest(req.Method, "unmatched", res.Status, time.Since(started))
		return res
	}

	finish := func(res *Result) *Result {
		if res.Status == 0 {
			res.Status = http.StatusOK
		}
		d.metrics.RecordRequest(req.Method, route.Pattern, res.Status, time.Since(started))
		return res
	}

	// Session resolution happens on every route so handlers can see the
	// caller even when auth isn't required; only enforcement is gated.
	user, err := d.auth.VerifySession(ctx, req.Cookie(SessionCookieName))
	if err != nil {
		d.logger.ErrorContext(ctx, "session lookup failed",
			slog.String("method", req.Method),
			slog.String("path", path),
			slog.Any("error", err))
		return finish(errorResult(http.StatusInternalServerError, "internal server error"))
	}
	if route.RequireAuth && user == nil {
		d.metrics.RecordAuthFailure()
		return finish(errorResult(http.StatusUnauthorized, "authentication required"))
	}

	req.Params = params
	req.User = user

	res, err := route.Handler(ctx, req)
	if err != nil {
		return finish(d.mapError(ctx, req, path, err))
	}
	if res == nil {
		d.logger.ErrorContext(ctx, "handler returned no result",
			slog.String("method", req.Method),
			slog.String("path", path))
		return finish(errorResult(http.StatusInternalServerError, "internal server error"))
	}
	return finish(res)
}

// mapError converts a handler error into a wire result. Typed errors keep
// their status and message; store sentinels get their conventional codes;
// anything else is logged and surfaced as a generic 500.
func (d *Dispatcher) mapError(ctx context.Context, req *Request, path string, err error) *Result {
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Status == http.StatusUnauthorized {
			d.metrics.RecordAuthFailure()
		}
		return errorResult(apiErr.Status, apiErr.Message)
	case errors.Is(err, store.ErrNotFound):
		return errorResult(http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrDuplicate):
		return errorResult(http.StatusConflict, "already exists")
	default:
		d.logger.ErrorContext(ctx, "unhandled handler error",
			slog.String("method", req.Method),
			slog.String("path", path),
			slog.Any("error", err))
		return errorResult(http.StatusInternalServerError, "internal server error")
	}
}

// ServeHTTP is the net/http front-end. The same normalized pipeline also
// serves Go serverless runtimes, which share the http.Handler signature.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeResult(w, errorResult(http.StatusBadRequest, "failed to read request body"))
		return
	}

	cookies := make(map[string]string)
	for _, c := range r.Cookies() {
		cookies[c.Name] = c.Value
	}

	req := &Request{
		Method:     r.Method,
		Path:       r.URL.Path,
		Header:     r.Header,
		Cookies:    cookies,
		Query:      r.URL.Query(),
		Body:       body,
		RemoteAddr: r.RemoteAddr,
	}

	res := d.Dispatch(r.Context(), req)

	for _, action := range res.Cookies {
		http.SetCookie(w, serializeCookie(action))
	}
	writeResult(w, res)
}

func serializeCookie(action CookieAction) *http.Cookie {
	c := &http.Cookie{
		Name:     action.Name,
		Value:    action.Value,
		Path:     action.Path,
		HttpOnly: action.HTTPOnly,
		Secure:   action.Secure,
		SameSite: action.SameSite,
		MaxAge:   action.MaxAge,
	}
	if c.Path == "" {
		c.Path = "/"
	}
	if action.Clear {
		c.Value = ""
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
	}
	return c
}

func writeResult(w http.ResponseWriter, res *Result) {
	for key, values := range res.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.Status)
	if res.Body != nil {
		json.NewEncoder(w).Encode(res.Body)
	}
}
