package api

import (
	"net/mail"
	"regexp"
	"strings"
)

// Usernames and group names double as store keys and URL path segments, so
// the character set is restricted to keep keys unambiguous.
var (
	usernameRe  = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{1,29}$`)
	groupNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{1,49}$`)
)

func validateEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", badRequest("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", badRequest("invalid email address")
	}
	return email, nil
}

func validateUsername(username string) (string, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return "", badRequest("username is required")
	}
	if !usernameRe.MatchString(username) {
		return "", badRequest("username must be 2-30 characters: lowercase letters, digits, - or _")
	}
	return username, nil
}

func validateGroupName(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", badRequest("group name is required")
	}
	if !groupNameRe.MatchString(name) {
		return "", badRequest("group name must be 2-50 characters: lowercase letters, digits, - or _")
	}
	return name, nil
}

// usernameFromEmail derives a provisional username from the local part of
// an email address, squeezing disallowed characters out.
func usernameFromEmail(email string) string {
	local := email
	if i := strings.IndexByte(email, '@'); i >= 0 {
		local = email[:i]
	}
	local = strings.ToLower(local)
	var b strings.Builder
	for _, r := range local {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == '.', r == '+':
			b.WriteRune('-')
		}
	}
	s := strings.Trim(b.String(), "-_")
	if len(s) > 30 {
		s = s[:30]
	}
	return s
}
