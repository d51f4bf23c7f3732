// Package auth implements the PIN and session lifecycle on top of the
// document store. The state machine per email address is
// NoAuth → PinIssued → (PinVerified → SessionActive) | PinExpired.
// Expiry is evaluated lazily on every read; expired records persist until
// overwritten.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/slowpost/slowpost/internal/util"
	"github.com/slowpost/slowpost/store"
)

// Collections owned by the auth service.
const (
	CollectionUsers    = "users"
	CollectionProfiles = "profiles"
	CollectionAuth     = "auth"
	CollectionSessions = "sessions"
)

const (
	pinLength  = 6
	pinTTL     = 15 * time.Minute
	sessionTTL = 30 * 24 * time.Hour
	// tokenBytes is the entropy of a session token (hex-encoded to twice
	// this many characters).
	tokenBytes = 32

	// SkipPinSentinel is the PIN value accepted in skip-PIN mode. Local
	// and test environments use it to bypass mail delivery.
	SkipPinSentinel = "000000"
)

// User is the canonical identity record, keyed by email.
type User struct {
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FullName  string    `json:"fullName"`
	CreatedAt time.Time `json:"createdAt"`
}

// Profile is the publicly addressable record, keyed by username. It is
// created alongside the User at signup and kept eventually consistent from
// that point.
type Profile struct {
	Username string    `json:"username"`
	FullName string    `json:"fullName"`
	Email    string    `json:"email"`
	Bio      string    `json:"bio,omitempty"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Session is a bearer token record. Stored independently by token for O(1)
// lookup and appended to the owning auth record's session list.
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	FullName  string    `json:"fullName"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Record is the per-email auth state: the current PIN, its expiry, and the
// sessions issued for this email. One outstanding PIN at a time; each
// request overwrites the previous one.
type Record struct {
	Email        string    `json:"email"`
	Pin          string    `json:"pin"`
	PinExpiresAt time.Time `json:"pinExpiresAt"`
	Sessions     []Session `json:"sessions"`
}

// Service implements PIN issuance/verification and the session lifecycle.
type Service struct {
	store   store.Store
	skipPin bool
	now     func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithSkipPin enables skip-PIN mode: VerifyPin accepts SkipPinSentinel for
// any email, and callers may echo issued PINs instead of mailing them.
func WithSkipPin(skip bool) Option {
	return func(s *Service) { s.skipPin = skip }
}

// WithClock overrides the time source. Tests use it to force expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an auth service backed by the given store.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store: st,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SkipPin reports whether skip-PIN mode is enabled.
func (s *Service) SkipPin() bool {
	return s.skipPin
}

// RequestPin generates a fresh 6-digit PIN with a 15-minute expiry and
// upserts the auth record for the email. requiresSignup is true iff no
// User document exists for the email yet.
func (s *Service) RequestPin(ctx context.Context, email string) (pin string, requiresSignup bool, err error) {
	pin, err = util.RandomDigits(pinLength)
	if err != nil {
		return "", false, fmt.Errorf("generating pin: %w", err)
	}
	expiresAt := s.now().Add(pinTTL)

	existing, err := s.store.GetDocument(ctx, CollectionAuth, email)
	if err != nil {
		return "", false, fmt.Errorf("loading auth record: %w", err)
	}
	if existing == nil {
		record := Record{Email: email, Pin: pin, PinExpiresAt: expiresAt}
		data, err := store.Encode(record)
		if err != nil {
			return "", false, err
		}
		if err := s.store.AddDocument(ctx, CollectionAuth, email, data); err != nil {
			return "", false, fmt.Errorf("creating auth record: %w", err)
		}
	} else {
		partial := store.Data{
			"pin":          pin,
			"pinExpiresAt": expiresAt.UTC().Format(time.RFC3339Nano),
		}
		if err := s.store.UpdateDocument(ctx, CollectionAuth, email, partial); err != nil {
			return "", false, fmt.Errorf("updating auth record: %w", err)
		}
	}

	user, err := s.store.GetDocument(ctx, CollectionUsers, email)
	if err != nil {
		return "", false, fmt.Errorf("loading user: %w", err)
	}
	return pin, user == nil, nil
}

// VerifyPin reports whether the PIN is currently valid for the email. In
// skip-PIN mode the sentinel value is accepted for any email. A successful
// verification does not consume the PIN; it stays valid until expiry.
func (s *Service) VerifyPin(ctx context.Context, email, pin string) (bool, error) {
	if s.skipPin && pin == SkipPinSentinel {
		return true, nil
	}
	data, err := s.store.GetDocument(ctx, CollectionAuth, email)
	if err != nil {
		return false, fmt.Errorf("loading auth record: %w", err)
	}
	if data == nil {
		return false, nil
	}
	var record Record
	if err := store.Decode(data, &record); err != nil {
		return false, fmt.Errorf("decoding auth record: %w", err)
	}
	if record.Pin == "" || record.Pin != pin {
		return false, nil
	}
	return s.now().Before(record.PinExpiresAt), nil
}

// CreateSession issues a 30-day session for the email's user. It fails
// with ErrUserNotFound when no User document exists.
func (s *Service) CreateSession(ctx context.Context, email string) (*Session, error) {
	userData, err := s.store.GetDocument(ctx, CollectionUsers, email)
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	if userData == nil {
		return nil, fmt.Errorf("%s: %w", email, ErrUserNotFound)
	}
	var user User
	if err := store.Decode(userData, &user); err != nil {
		return nil, fmt.Errorf("decoding user: %w", err)
	}

	token, err := util.RandomToken(tokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generating session token: %w", err)
	}
	session := Session{
		Token:     token,
		Username:  user.Username,
		FullName:  user.FullName,
		ExpiresAt: s.now().Add(sessionTTL),
	}

	sessionData, err := store.Encode(session)
	if err != nil {
		return nil, err
	}
	if err := s.store.AddDocument(ctx, CollectionSessions, token, sessionData); err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}

	// Append to the auth record's session list. The record may not exist
	// when sessions are created through a path that skipped RequestPin.
	authData, err := s.store.GetDocument(ctx, CollectionAuth, email)
	if err != nil {
		return nil, fmt.Errorf("loading auth record: %w", err)
	}
	if authData == nil {
		record := Record{Email: email, Sessions: []Session{session}}
		data, err := store.Encode(record)
		if err != nil {
			return nil, err
		}
		if err := s.store.AddDocument(ctx, CollectionAuth, email, data); err != nil {
			return nil, fmt.Errorf("creating auth record: %w", err)
		}
	} else {
		var record Record
		if err := store.Decode(authData, &record); err != nil {
			return nil, fmt.Errorf("decoding auth record: %w", err)
		}
		record.Sessions = append(record.Sessions, session)
		sessions, err := store.Encode(record)
		if err != nil {
			return nil, err
		}
		partial := store.Data{"sessions": sessions["sessions"]}
		if err := s.store.UpdateDocument(ctx, CollectionAuth, email, partial); err != nil {
			return nil, fmt.Errorf("updating auth record: %w", err)
		}
	}

	return &session, nil
}

// VerifySession resolves a token to its session. It returns (nil, nil) for
// a missing or expired token; validity is re-checked on every call, never
// cached.
func (s *Service) VerifySession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}
	data, err := s.store.GetDocument(ctx, CollectionSessions, token)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	var session Session
	if err := store.Decode(data, &session); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	if !s.now().Before(session.ExpiresAt) {
		return nil, nil
	}
	return &session, nil
}

// CreateUser creates the User (keyed by email) and its Profile (keyed by
// username). Not idempotent: a second call for the same email fails with
// ErrUserExists, and a taken username fails with ErrUsernameTaken.
func (s *Service) CreateUser(ctx context.Context, email, username, fullName string) (*User, error) {
	existing, err := s.store.GetDocument(ctx, CollectionUsers, email)
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%s: %w", email, ErrUserExists)
	}

	now := s.now()
	user := User{Email: email, Username: username, FullName: fullName, CreatedAt: now}

	// A provisional profile (created by add-by-email) may already hold the
	// username without an account; claiming it is allowed when the emails
	// match.
	profileData, err := s.store.GetDocument(ctx, CollectionProfiles, username)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	switch {
	case profileData == nil:
		profile := Profile{Username: username, FullName: fullName, Email: email, JoinedAt: now}
		data, err := store.Encode(profile)
		if err != nil {
			return nil, err
		}
		if err := s.store.AddDocument(ctx, CollectionProfiles, username, data); err != nil {
			return nil, fmt.Errorf("creating profile: %w", err)
		}
	default:
		var profile Profile
		if err := store.Decode(profileData, &profile); err != nil {
			return nil, fmt.Errorf("decoding profile: %w", err)
		}
		if profile.Email != email {
			return nil, fmt.Errorf("%s: %w", username, ErrUsernameTaken)
		}
		partial := store.Data{"fullName": fullName}
		if err := s.store.UpdateDocument(ctx, CollectionProfiles, username, partial); err != nil {
			return nil, fmt.Errorf("claiming profile: %w", err)
		}
	}

	userData, err := store.Encode(user)
	if err != nil {
		return nil, err
	}
	if err := s.store.AddDocument(ctx, CollectionUsers, email, userData); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return &user, nil
}
