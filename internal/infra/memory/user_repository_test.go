package memory

import (
	"context"
	"database/sql"
	"testing"

	"activity_tracker/internal/domain/apperr"
	"activity_tracker/internal/domain/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(Open())

	alice := &user.User{Name: "Alice", Email: "alice@example.com", Role: user.RoleManager, IsActive: true}
	bob := &user.User{Name: "Bob", Email: "bob@example.com", Role: user.RoleManager, IsActive: false}
	carl := &user.User{Name: "Carl", Email: "carl@example.com", Role: user.RoleFacilitator, IsActive: true}
	for _, u := range []*user.User{alice, bob, carl} {
		require.NoError(t, repo.Create(ctx, u))
	}

	err := repo.Create(ctx, &user.User{Name: "Dup", Email: "ALICE@example.com"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	managers, err := repo.ListActiveByRole(ctx, user.RoleManager)
	require.NoError(t, err)
	require.Len(t, managers, 1)
	assert.Equal(t, alice.ID, managers[0].ID)

	got, err := repo.GetByEmail(ctx, "carl@example.com")
	require.NoError(t, err)
	assert.Equal(t, carl.ID, got.ID)

	carl.TelegramID = sql.NullInt64{Int64: 555, Valid: true}
	require.NoError(t, repo.Update(ctx, carl))
	got, err = repo.GetByTelegramID(ctx, 555)
	require.NoError(t, err)
	assert.Equal(t, carl.ID, got.ID)

	alice.TelegramID = sql.NullInt64{Int64: 555, Valid: true}
	assert.ErrorIs(t, repo.Update(ctx, alice), apperr.ErrConflict)

	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
