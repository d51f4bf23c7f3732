package api

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/slowpost/slowpost/auth"
	"github.com/slowpost/slowpost/internal/metrics"
	"github.com/slowpost/slowpost/mail"
	"github.com/slowpost/slowpost/store"
)

// API holds the dependencies needed by the handlers. Everything is passed
// in explicitly at construction; there is no hidden module state.
type API struct {
	store        store.Store
	auth         *auth.Service
	mailer       mail.Mailer
	logger       *slog.Logger
	audit        *auditLogger
	metrics      *metrics.Collector
	pinLimiter   *pinIssueLimiter
	loginLimiter *loginRateLimiter
	cookieSecure bool
}

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger. If not set, a JSON logger writing
// to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) { a.logger = logger }
}

// WithMetrics sets the Prometheus collector used at the dispatch boundary.
func WithMetrics(collector *metrics.Collector) Option {
	return func(a *API) { a.metrics = collector }
}

// WithCookieSecure marks issued session cookies Secure. Enable in
// production behind HTTPS.
func WithCookieSecure(secure bool) Option {
	return func(a *API) { a.cookieSecure = secure }
}

// New creates a new API instance.
func New(st store.Store, svc *auth.Service, mailer mail.Mailer, opts ...Option) *API {
	a := &API{
		store:        st,
		auth:         svc,
		mailer:       mailer,
		pinLimiter:   newPinIssueLimiter(),
		loginLimiter: newLoginRateLimiter(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	a.audit = newAuditLogger(a.logger)
	return a
}

// Dispatcher returns the dispatcher over this API's route table.
func (a *API) Dispatcher() *Dispatcher {
	return NewDispatcher(a.Routes(), a.auth, a.logger, a.metrics)
}

// Handler returns the net/http front-end, ready to mount.
func (a *API) Handler() http.Handler {
	return a.Dispatcher()
}
