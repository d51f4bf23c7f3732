package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowpost/slowpost/auth"
	"github.com/slowpost/slowpost/store/memory"
)

func TestPinRoundTrip(t *testing.T) {
	svc := auth.NewService(memory.New())
	ctx := context.Background()

	pin, requiresSignup, err := svc.RequestPin(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Len(t, pin, 6)
	assert.True(t, requiresSignup)

	ok, err := svc.VerifyPin(ctx, "new@example.com", pin)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.VerifyPin(ctx, "new@example.com", "999999")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.VerifyPin(ctx, "other@example.com", pin)
	require.NoError(t, err)
	assert.False(t, ok, "pin is bound to the requesting email")
}

func TestPinExpires(t *testing.T) {
	now := time.Now()
	clock := &now
	svc := auth.NewService(memory.New(), auth.WithClock(func() time.Time { return *clock }))
	ctx := context.Background()

	pin, _, err := svc.RequestPin(ctx, "a@example.com")
	require.NoError(t, err)

	ok, err := svc.VerifyPin(ctx, "a@example.com", pin)
	require.NoError(t, err)
	assert.True(t, ok)

	later := now.Add(16 * time.Minute)
	clock = &later
	ok, err = svc.VerifyPin(ctx, "a@example.com", pin)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRequestPinOverwritesPrevious(t *testing.T) {
	svc := auth.NewService(memory.New())
	ctx := context.Background()

	first, _, err := svc.RequestPin(ctx, "a@example.com")
	require.NoError(t, err)
	second, _, err := svc.RequestPin(ctx, "a@example.com")
	require.NoError(t, err)

	if first == second {
		t.Skip("generated pins collided; nothing to assert")
	}
	ok, err := svc.VerifyPin(ctx, "a@example.com", first)
	require.NoError(t, err)
	assert.False(t, ok, "only the latest pin is valid")
	ok, err = svc.VerifyPin(ctx, "a@example.com", second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSkipPinSentinel(t *testing.T) {
	svc := auth.NewService(memory.New(), auth.WithSkipPin(true))
	ctx := context.Background()

	ok, err := svc.VerifyPin(ctx, "anyone@example.com", auth.SkipPinSentinel)
	require.NoError(t, err)
	assert.True(t, ok)

	strict := auth.NewService(memory.New())
	ok, err = strict.VerifyPin(ctx, "anyone@example.com", auth.SkipPinSentinel)
	require.NoError(t, err)
	assert.False(t, ok, "sentinel only works in skip mode")
}

func TestSessionRoundTrip(t *testing.T) {
	now := time.Now()
	clock := &now
	svc := auth.NewService(memory.New(), auth.WithClock(func() time.Time { return *clock }))
	ctx := context.Background()

	_, err := svc.CreateSession(ctx, "a@example.com")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	_, err = svc.CreateUser(ctx, "a@example.com", "alice", "Alice A")
	require.NoError(t, err)

	session, err := svc.CreateSession(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Len(t, session.Token, 64)
	assert.Equal(t, "alice", session.Username)

	got, err := svc.VerifySession(ctx, session.Token)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "Alice A", got.FullName)

	got, err = svc.VerifySession(ctx, "no-such-token")
	require.NoError(t, err)
	assert.Nil(t, got)

	later := now.Add(31 * 24 * time.Hour)
	clock = &later
	got, err = svc.VerifySession(ctx, session.Token)
	require.NoError(t, err)
	assert.Nil(t, got, "expired session verifies as absent")
}

func TestCreateUserNotIdempotent(t *testing.T) {
	svc := auth.NewService(memory.New())
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "a@example.com", "alice", "Alice")
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, "a@example.com", "alice2", "Alice")
	assert.ErrorIs(t, err, auth.ErrUserExists)

	_, err = svc.CreateUser(ctx, "b@example.com", "alice", "Other Alice")
	assert.ErrorIs(t, err, auth.ErrUsernameTaken)
}

func TestRequiresSignupFlips(t *testing.T) {
	svc := auth.NewService(memory.New())
	ctx := context.Background()

	_, requiresSignup, err := svc.RequestPin(ctx, "new@example.com")
	require.NoError(t, err)
	assert.True(t, requiresSignup)

	_, err = svc.CreateUser(ctx, "new@example.com", "newbie", "New B")
	require.NoError(t, err)

	_, requiresSignup, err = svc.RequestPin(ctx, "new@example.com")
	require.NoError(t, err)
	assert.False(t, requiresSignup)
}
