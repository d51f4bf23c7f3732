package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/slowpost/slowpost/auth"
)

// sessionCookieMaxAge matches the session TTL: 30 days in seconds.
const sessionCookieMaxAge = 30 * 24 * 60 * 60

func (a *API) sessionCookie(token string) CookieAction {
	return CookieAction{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   sessionCookieMaxAge,
		HTTPOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (a *API) sessionResult(session *auth.Session) *Result {
	return &Result{
		Status: http.StatusOK,
		Body: SessionResponse{
			Success: true,
			Session: SessionInfo{
				Username:  session.Username,
				FullName:  session.FullName,
				ExpiresAt: session.ExpiresAt,
			},
		},
		Cookies: []CookieAction{a.sessionCookie(session.Token)},
	}
}

// RequestPin issues a sign-in PIN and mails it. Mail delivery failures are
// logged but do not fail the request; the client can simply retry.
func (a *API) RequestPin(ctx context.Context, req *Request) (*Result, error) {
	body, err := decodeJSON[RequestPinRequest](req)
	if err != nil {
		return nil, err
	}
	email, err := validateEmail(body.Email)
	if err != nil {
		return nil, err
	}

	if blocked, retryAfter := a.pinLimiter.check(email); blocked {
		a.audit.logFailure(ctx, AuditPinRateLimited, req, "too many pin requests")
		return rateLimited("too many PIN requests; try again later", retryAfter), nil
	}
	a.pinLimiter.record(email)

	pin, requiresSignup, err := a.auth.RequestPin(ctx, email)
	if err != nil {
		return nil, err
	}
	a.metrics.RecordPinIssued()
	a.audit.log(ctx, AuditPinRequested, req, slog.Bool("requires_signup", requiresSignup))

	if err := a.mailer.SendPinEmail(ctx, email, pin); err != nil {
		a.logger.ErrorContext(ctx, "pin email delivery failed", slog.Any("error", err))
	}

	resp := RequestPinResponse{Success: true, RequiresSignup: requiresSignup}
	if a.auth.SkipPin() {
		resp.Pin = pin
	}
	return &Result{Body: resp}, nil
}

// Login exchanges a valid PIN for a session cookie.
func (a *API) Login(ctx context.Context, req *Request) (*Result, error) {
	body, err := decodeJSON[LoginRequest](req)
	if err != nil {
		return nil, err
	}
	email, err := validateEmail(body.Email)
	if err != nil {
		return nil, err
	}
	if body.Pin == "" {
		return nil, badRequest("pin is required")
	}

	if blocked, retryAfter := a.loginLimiter.check(email); blocked {
		a.audit.logFailure(ctx, AuditLoginRateLimited, req, "too many failed attempts")
		return rateLimited("too many failed login attempts; try again later", retryAfter), nil
	}

	ok, err := a.auth.VerifyPin(ctx, email, body.Pin)
	if err != nil {
		return nil, err
	}
	if !ok {
		a.loginLimiter.recordFailure(email)
		a.audit.logFailure(ctx, AuditLoginFailure, req, "invalid or expired pin")
		return nil, unauthorized("invalid or expired PIN")
	}

	session, err := a.auth.CreateSession(ctx, email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, notFound("no account for this email; sign up first")
		}
		return nil, err
	}
	a.loginLimiter.recordSuccess(email)
	a.audit.logUser(ctx, AuditLoginSuccess, req, session.Username)
	return a.sessionResult(session), nil
}

// Signup verifies the PIN, creates the account and its profile, and logs
// the new user in.
func (a *API) Signup(ctx context.Context, req *Request) (*Result, error) {
	body, err := decodeJSON[SignupRequest](req)
	if err != nil {
		return nil, err
	}
	email, err := validateEmail(body.Email)
	if err != nil {
		return nil, err
	}
	username, err := validateUsername(body.Username)
	if err != nil {
		return nil, err
	}
	if body.FullName == "" {
		return nil, badRequest("fullName is required")
	}
	if body.Pin == "" {
		return nil, badRequest("pin is required")
	}

	if blocked, retryAfter := a.loginLimiter.check(email); blocked {
		a.audit.logFailure(ctx, AuditLoginRateLimited, req, "too many failed attempts")
		return rateLimited("too many failed attempts; try again later", retryAfter), nil
	}

	ok, err := a.auth.VerifyPin(ctx, email, body.Pin)
	if err != nil {
		return nil, err
	}
	if !ok {
		a.loginLimiter.recordFailure(email)
		a.audit.logFailure(ctx, AuditLoginFailure, req, "invalid or expired pin")
		return nil, unauthorized("invalid or expired PIN")
	}

	user, err := a.auth.CreateUser(ctx, email, username, body.FullName)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			return nil, conflict("an account already exists for this email")
		case errors.Is(err, auth.ErrUsernameTaken):
			return nil, conflict("username %q is taken", username)
		}
		return nil, err
	}

	session, err := a.auth.CreateSession(ctx, email)
	if err != nil {
		return nil, err
	}
	a.loginLimiter.recordSuccess(email)
	a.audit.logUser(ctx, AuditSignup, req, user.Username)
	return a.sessionResult(session), nil
}

// Me returns the signed-in caller's identity.
func (a *API) Me(ctx context.Context, req *Request) (*Result, error) {
	return &Result{
		Body: MeResponse{
			Username: req.User.Username,
			FullName: req.User.FullName,
		},
	}, nil
}

// Logout clears the session cookie. The server-side session record expires
// on its own; the cookie is the thing being revoked here.
func (a *API) Logout(ctx context.Context, req *Request) (*Result, error) {
	if req.User != nil {
		a.audit.logUser(ctx, AuditLogout, req, req.User.Username)
	}
	return &Result{
		Body: SuccessResponse{Success: true},
		Cookies: []CookieAction{{
			Name:  SessionCookieName,
			Path:  "/",
			Clear: true,
		}},
	}, nil
}
