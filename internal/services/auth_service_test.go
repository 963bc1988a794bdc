package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance/internal/amqp"
	"finance/internal/auth"
	"finance/internal/core"
	"finance/internal/middleware/ratelimit"
	"finance/internal/store/memory"
)

func newAuthService(t *testing.T, pub EventPublisher) (*AuthService, *auth.Issuer) {
	t.Helper()
	rlStore := ratelimit.NewMemoryStore(time.Minute)
	t.Cleanup(func() { rlStore.Close() })
	issuer := auth.NewIssuer("a-very-secret-signing-key", time.Hour)
	limiter := ratelimit.NewLimiter(rlStore, ratelimit.LoginConfig())
	return NewAuthService(memory.New(), issuer, limiter, pub, testLogger()), issuer
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc, issuer := newAuthService(t, pub)

	u, err := svc.Register(ctx, RegisterInput{Name: "Jane", Email: " Jane@Example.com ", Password: "s3cretpass"})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", u.Email)
	assert.NotEmpty(t, u.PasswordHash)
	assert.NotEqual(t, "s3cretpass", u.PasswordHash)
	assert.Equal(t, []amqp.EventType{amqp.EventUserRegistered}, pub.types())

	sess, err := svc.Login(ctx, "JANE@example.com", "s3cretpass")
	require.NoError(t, err)
	assert.Equal(t, u.ID, sess.User.ID)

	claims, err := issuer.Parse(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.Subject)

	got, err := svc.User(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
}

func TestRegisterRejects(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t, nil)

	_, err := svc.Register(ctx, RegisterInput{Name: "Jane", Email: "jane@example.com", Password: "short"})
	assert.ErrorIs(t, err, core.ErrWeakPassword)

	_, err = svc.Register(ctx, RegisterInput{Name: "Jane", Email: "not-an-email", Password: "longenough"})
	assert.ErrorIs(t, err, core.ErrInvalidEmail)

	_, err = svc.Register(ctx, RegisterInput{Name: " ", Email: "jane@example.com", Password: "longenough"})
	assert.ErrorIs(t, err, core.ErrEmptyName)

	_, err = svc.Register(ctx, RegisterInput{Name: "Jane", Email: "jane@example.com", Password: "longenough"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Name: "Jane 2", Email: "JANE@example.com", Password: "longenough"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginErrors(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t, nil)
	_, err := svc.Register(ctx, RegisterInput{Name: "Jane", Email: "jane@example.com", Password: "longenough"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "nobody@example.com", "whatever1")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.Login(ctx, "jane@example.com", "wrongpassword")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.User(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLoginRateLimitedOnFifthAttempt(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t, nil)
	_, err := svc.Register(ctx, RegisterInput{Name: "Jane", Email: "jane@example.com", Password: "longenough"})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := svc.Login(ctx, "jane@example.com", "wrongpassword")
		assert.ErrorIs(t, err, ErrInvalidCredentials, "attempt %d", i+1)
	}

	// the correct password does not bypass the limit
	_, err = svc.Login(ctx, "Jane@Example.com", "longenough")
	var rl *RateLimitError
	require.True(t, errors.As(err, &rl), "got %v", err)
	assert.Greater(t, rl.RetryAfter, time.Duration(0))

	// other identities are unaffected
	_, err = svc.Login(ctx, "other@example.com", "longenough")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
