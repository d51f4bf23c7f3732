package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoginLimiterLocksAfterMaxFailures(t *testing.T) {
	rl := newLoginRateLimiter()

	for i := 0; i < maxFailures-1; i++ {
		rl.recordFailure("a@example.com")
		blocked, _ := rl.check("a@example.com")
		assert.False(t, blocked, "failure %d should not lock yet", i+1)
	}

	rl.recordFailure("a@example.com")
	blocked, retryAfter := rl.check("a@example.com")
	assert.True(t, blocked)
	assert.Greater(t, retryAfter, time.Duration(0))

	// Other emails are unaffected.
	blocked, _ = rl.check("b@example.com")
	assert.False(t, blocked)
}

func TestLoginLimiterResetOnSuccess(t *testing.T) {
	rl := newLoginRateLimiter()
	for i := 0; i < maxFailures; i++ {
		rl.recordFailure("a@example.com")
	}
	blocked, _ := rl.check("a@example.com")
	assert.True(t, blocked)

	rl.recordSuccess("a@example.com")
	blocked, _ = rl.check("a@example.com")
	assert.False(t, blocked)
}

func TestLoginLimiterSweep(t *testing.T) {
	rl := newLoginRateLimiter()
	rl.recordFailure("a@example.com")
	rl.attempts["a@example.com"].lastFailure = time.Now().Add(-2 * attemptExpiry)

	rl.sweep()
	assert.Empty(t, rl.attempts)
}

func TestPinIssueLimiterCountsEveryRequest(t *testing.T) {
	rl := newPinIssueLimiter()

	for i := 0; i < pinIssueMaxRequests-1; i++ {
		rl.record("a@example.com")
		blocked, _ := rl.check("a@example.com")
		assert.False(t, blocked)
	}

	rl.record("a@example.com")
	blocked, retryAfter := rl.check("a@example.com")
	assert.True(t, blocked)
	assert.Greater(t, retryAfter, time.Duration(0))
}

func TestRetryAfterString(t *testing.T) {
	assert.Equal(t, "1", retryAfterString(200*time.Millisecond), "rounds up to at least one second")
	assert.Equal(t, "60", retryAfterString(time.Minute))
}
