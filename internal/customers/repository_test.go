package customers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	cu, err := svc.Register(ctx, "  Jo@Example.org ", "jo", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, "jo@example.org", cu.Email)
	assert.NotEqual(t, "hunter2hunter2", cu.Password, "password must be stored hashed")
	assert.NotEmpty(t, cu.VerifyToken)
	assert.False(t, cu.Verified)

	got, err := svc.Authenticate(ctx, "jo@example.org", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, cu.ID, got.ID)
	assert.False(t, got.LastLogin.IsZero())

	_, err = svc.Authenticate(ctx, "jo@example.org", "wrong-password")
	assert.ErrorIs(t, err, ErrBadCredential)
	_, err = svc.Authenticate(ctx, "nobody@example.org", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrBadCredential)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	_, err := svc.Register(ctx, "jo@example.org", "jo", "hunter2hunter2")
	require.NoError(t, err)

	// duplicate gets its own error so the storefront can prompt a login
	_, err = svc.Register(ctx, "JO@example.org", "jo2", "another-password")
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestPasswordResetFlow(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	_, err := svc.Register(ctx, "jo@example.org", "jo", "hunter2hunter2")
	require.NoError(t, err)

	cu, token, err := svc.StartPasswordReset(ctx, "jo@example.org")
	require.NoError(t, err)
	assert.Equal(t, "jo@example.org", cu.Email)
	require.NotEmpty(t, token)

	require.Error(t, svc.CompletePasswordReset(ctx, "jo@example.org", "bogus-token", "newpassword1"))
	require.NoError(t, svc.CompletePasswordReset(ctx, "jo@example.org", token, "newpassword1"))

	// token is consumed
	require.Error(t, svc.CompletePasswordReset(ctx, "jo@example.org", token, "newpassword2"))

	_, err = svc.Authenticate(ctx, "jo@example.org", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrBadCredential)
	_, err = svc.Authenticate(ctx, "jo@example.org", "newpassword1")
	assert.NoError(t, err)
}

func TestVerifyConsumesToken(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	cu, err := svc.Register(ctx, "jo@example.org", "jo", "hunter2hunter2")
	require.NoError(t, err)

	require.Error(t, svc.Verify(ctx, "jo@example.org", "bogus"))
	require.NoError(t, svc.Verify(ctx, "jo@example.org", cu.VerifyToken))

	got, err := svc.Repo().GetByEmail(ctx, "jo@example.org")
	require.NoError(t, err)
	assert.True(t, got.Verified)
	assert.Empty(t, got.VerifyToken)
}
