package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// loginRateLimiter counts failed PIN verifications per email and locks the
// email out with growing delays. A six-digit PIN has only a million values,
// so without this lockout the login flow would fall to brute force inside
// the 15-minute PIN window.
type loginRateLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptRecord
}

type attemptRecord struct {
	failures    int
	lastFailure time.Time
	lockedUntil time.Time
}

const (
	// maxFailures: free attempts before the first lockout.
	maxFailures = 5
	// baseLockout: first lockout length; doubles per further failure.
	baseLockout = 1 * time.Minute
	// maxLockout bounds the doubling.
	maxLockout = 15 * time.Minute
	// attemptExpiry: idle time after which a record is forgotten.
	attemptExpiry = 1 * time.Hour
)

func newLoginRateLimiter() *loginRateLimiter {
	return &loginRateLimiter{
		attempts: make(map[string]*attemptRecord),
	}
}

// check reports whether the email is locked out and for how much longer.
// Stale records expire here as a side effect.
func (rl *loginRateLimiter) check(email string) (blocked bool, retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rec, ok := rl.attempts[email]
	if !ok {
		return false, 0
	}
	if time.Since(rec.lastFailure) > attemptExpiry {
		delete(rl.attempts, email)
		return false, 0
	}
	if time.Now().Before(rec.lockedUntil) {
		return true, time.Until(rec.lockedUntil)
	}
	return false, 0
}

// recordFailure bumps the counter; past maxFailures each extra failure
// doubles the lockout up to maxLockout.
func (rl *loginRateLimiter) recordFailure(email string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rec, ok := rl.attempts[email]
	if !ok {
		rec = &attemptRecord{}
		rl.attempts[email] = rec
	}
	rec.failures++
	rec.lastFailure = time.Now()

	if rec.failures >= maxFailures {
		shift := rec.failures - maxFailures
		lockout := baseLockout
		for i := 0; i < shift; i++ {
			lockout *= 2
			if lockout > maxLockout {
				lockout = maxLockout
				break
			}
		}
		rec.lockedUntil = time.Now().Add(lockout)
	}
}

// recordSuccess wipes the email's failure history after a good login.
func (rl *loginRateLimiter) recordSuccess(email string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.attempts, email)
}

// sweep drops records idle past attemptExpiry.
func (rl *loginRateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for email, rec := range rl.attempts {
		if now.Sub(rec.lastFailure) > attemptExpiry {
			delete(rl.attempts, email)
		}
	}
}

// ---------------------------------------------------------------------------
// PIN issue limiter
// ---------------------------------------------------------------------------
//
// PIN issuance sends an email, so every request counts (not just failures):
// unthrottled it is an open relay for spamming arbitrary inboxes.

const (
	pinIssueMaxRequests = 5
	pinIssueBaseLockout = 5 * time.Minute
	pinIssueMaxLockout  = 1 * time.Hour
	pinIssueExpiry      = 1 * time.Hour
)

// pinIssueLimiter tracks PIN requests per email address.
type pinIssueLimiter struct {
	mu       sync.Mutex
	requests map[string]*attemptRecord
}

func newPinIssueLimiter() *pinIssueLimiter {
	return &pinIssueLimiter{
		requests: make(map[string]*attemptRecord),
	}
}

func (rl *pinIssueLimiter) check(email string) (blocked bool, retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rec, ok := rl.requests[email]
	if !ok {
		return false, 0
	}
	if time.Since(rec.lastFailure) > pinIssueExpiry {
		delete(rl.requests, email)
		return false, 0
	}
	if time.Now().Before(rec.lockedUntil) {
		return true, time.Until(rec.lockedUntil)
	}
	return false, 0
}

// record tracks a PIN request (success or failure) for the given email.
func (rl *pinIssueLimiter) record(email string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rec, ok := rl.requests[email]
	if !ok {
		rec = &attemptRecord{}
		rl.requests[email] = rec
	}
	rec.failures++ // "failures" used as a generic counter here
	rec.lastFailure = time.Now()

	if rec.failures >= pinIssueMaxRequests {
		shift := rec.failures - pinIssueMaxRequests
		lockout := pinIssueBaseLockout
		for i := 0; i < shift; i++ {
			lockout *= 2
			if lockout > pinIssueMaxLockout {
				lockout = pinIssueMaxLockout
				break
			}
		}
		rec.lockedUntil = time.Now().Add(lockout)
	}
}

// rateLimited builds a 429 result with a Retry-After header.
func rateLimited(message string, retryAfter time.Duration) *Result {
	res := errorResult(http.StatusTooManyRequests, message)
	res.Header = http.Header{
		"Retry-After": {retryAfterString(retryAfter)},
	}
	return res
}

func retryAfterString(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
