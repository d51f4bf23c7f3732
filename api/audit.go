package api

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent identifies the type of security-relevant action being logged.
type AuditEvent string

const (
	AuditPinRequested      AuditEvent = "pin_requested"
	AuditPinRateLimited    AuditEvent = "pin_rate_limited"
	AuditLoginSuccess      AuditEvent = "login_success"
	AuditLoginFailure      AuditEvent = "login_failure"
	AuditLoginRateLimited  AuditEvent = "login_rate_limited"
	AuditSignup            AuditEvent = "signup"
	AuditLogout            AuditEvent = "logout"
	AuditProfileUpdated    AuditEvent = "profile_updated"
	AuditSubscribed        AuditEvent = "subscribed"
	AuditSubscriberAdded   AuditEvent = "subscriber_added"
	AuditSubscriberRemoved AuditEvent = "subscriber_removed"
	AuditGroupCreated      AuditEvent = "group_created"
	AuditGroupJoined       AuditEvent = "group_joined"
	AuditMemberUpdated     AuditEvent = "member_updated"
	AuditMemberRemoved     AuditEvent = "member_removed"
)

// auditLogger wraps slog.Logger for structured security audit logging.
type auditLogger struct {
	logger *slog.Logger
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
	}
}

// log writes a structured audit log entry.
func (al *auditLogger) log(ctx context.Context, event AuditEvent, req *Request, attrs ...slog.Attr) {
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("remote_addr", req.RemoteAddr),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	baseAttrs = append(baseAttrs, attrs...)
	al.logger.LogAttrs(ctx, slog.LevelInfo, "audit", baseAttrs...)
}

// logUser is a convenience for events attributable to a signed-in user.
func (al *auditLogger) logUser(ctx context.Context, event AuditEvent, req *Request, username string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("username", username),
	}
	attrs = append(attrs, extra...)
	al.log(ctx, event, req, attrs...)
}

// logFailure logs a failed authentication attempt.
func (al *auditLogger) logFailure(ctx context.Context, event AuditEvent, req *Request, reason string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("reason", reason),
	}
	attrs = append(attrs, extra...)
	al.log(ctx, event, req, attrs...)
}
