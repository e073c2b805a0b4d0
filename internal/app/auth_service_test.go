package app

import (
	"context"
	"testing"
	"time"

	"activity_tracker/internal/domain/apperr"
	"activity_tracker/internal/domain/user"
	"activity_tracker/internal/infra/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuth(t *testing.T) (*AuthService, *memory.UserRepository, *clock) {
	t.Helper()
	users := memory.NewUserRepository(memory.Open())
	c := &clock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc := NewAuthService(users, "test-secret", time.Hour, quietLogger())
	svc.bcryptCost = bcrypt.MinCost
	svc.now = c.Now
	return svc, users, c
}

func TestRegisterLoginAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newAuth(t)

	u, err := svc.Register(ctx, "Fiona", " Fiona@Example.com ", "s3cret", "")
	require.NoError(t, err)
	assert.Equal(t, user.RoleFacilitator, u.Role)
	assert.Equal(t, "fiona@example.com", u.Email)
	assert.NotEqual(t, "s3cret", u.PasswordHash)

	_, err = svc.Register(ctx, "Again", "fiona@example.com", "x", "")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	token, logged, err := svc.Login(ctx, "fiona@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)

	got, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestRegisterValidates(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newAuth(t)

	_, err := svc.Register(ctx, "", "a@example.com", "pw", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.Register(ctx, "A", "not-an-address", "pw", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.Register(ctx, "A", "a@example.com", "pw", "dean")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	svc, users, _ := newAuth(t)
	u, err := svc.Register(ctx, "Fiona", "fiona@example.com", "s3cret", user.RoleManager)
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "fiona@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "nobody@example.com", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	u.IsActive = false
	require.NoError(t, users.Update(ctx, u))
	_, _, err = svc.Login(ctx, "fiona@example.com", "s3cret")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestAuthenticateRejectsExpiredAndForeignTokens(t *testing.T) {
	ctx := context.Background()
	svc, users, c := newAuth(t)
	u, err := svc.Register(ctx, "Fiona", "fiona@example.com", "s3cret", "")
	require.NoError(t, err)
	token, err := svc.IssueToken(u)
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	other := NewAuthService(users, "other-secret", time.Hour, quietLogger())
	foreign, err := other.IssueToken(u)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, foreign)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	u.IsActive = false
	require.NoError(t, users.Update(ctx, u))
	_, err = svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrUserInactive)

	c.Advance(2 * time.Hour)
	_, err = svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestChangePasswordAndProfile(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newAuth(t)
	u, err := svc.Register(ctx, "Fiona", "fiona@example.com", "old", "")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "Otto", "otto@example.com", "pw", "")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ChangePassword(ctx, u.ID, "nope", "new"), ErrWrongPassword)
	require.NoError(t, svc.ChangePassword(ctx, u.ID, "old", "new"))
	_, _, err = svc.Login(ctx, "fiona@example.com", "new")
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, u.ID, "Fiona F.", "")
	require.NoError(t, err)
	assert.Equal(t, "Fiona F.", updated.Name)
	assert.Equal(t, "fiona@example.com", updated.Email)

	_, err = svc.UpdateProfile(ctx, u.ID, "", "otto@example.com")
	assert.ErrorIs(t, err, apperr.ErrConflict)
}
