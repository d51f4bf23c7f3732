package auth

import "errors"

var (
	// ErrUserExists indicates a signup attempt for an email that already
	// has an account.
	ErrUserExists = errors.New("user already exists")
	// ErrUsernameTaken indicates the requested username is already bound
	// to a profile.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrUserNotFound indicates a session was requested for an email with
	// no account.
	ErrUserNotFound = errors.New("user not found")
)
