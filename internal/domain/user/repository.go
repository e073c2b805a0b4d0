package user

import (
	"context"
)

// Repository defines the operations for persisting and retrieving users.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*User, error)
	Update(ctx context.Context, u *User) error // Name, Email, PasswordHash, Role, IsActive, TelegramID
	ListActiveByRole(ctx context.Context, role Role) ([]*User, error)
	ListAll(ctx context.Context) ([]*User, error)
}
