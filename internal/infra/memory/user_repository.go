package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"activity_tracker/internal/domain/apperr"
	"activity_tracker/internal/domain/user"
)

var ErrUserNotFound = apperr.NotFound("user not found")

type UserRepository struct {
	db *userTable
}

var _ user.Repository = (*UserRepository)(nil)

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db.users}
}

func (repo *UserRepository) Create(_ context.Context, u *user.User) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.table {
		if strings.EqualFold(existing.Email, u.Email) {
			return apperr.Conflict("user with this email already exists")
		}
	}
	repo.db.seq++
	now := time.Now()
	u.ID = repo.db.seq
	u.CreatedAt, u.UpdatedAt = now, now
	stored := *u
	repo.db.table[u.ID] = &stored
	return nil
}

func (repo *UserRepository) GetByID(_ context.Context, id int64) (*user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if u, ok := repo.db.table[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, ErrUserNotFound
}

func (repo *UserRepository) GetByEmail(_ context.Context, email string) (*user.User, error) {
	return repo.find(func(u *user.User) bool { return u.Email == email })
}

func (repo *UserRepository) GetByTelegramID(_ context.Context, telegramID int64) (*user.User, error) {
	return repo.find(func(u *user.User) bool { return u.TelegramID.Valid && u.TelegramID.Int64 == telegramID })
}

func (repo *UserRepository) find(match func(*user.User) bool) (*user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, u := range repo.db.table {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (repo *UserRepository) Update(_ context.Context, u *user.User) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[u.ID]; !ok {
		return ErrUserNotFound
	}
	for _, other := range repo.db.table {
		if other.ID == u.ID {
			continue
		}
		if strings.EqualFold(other.Email, u.Email) ||
			(u.TelegramID.Valid && other.TelegramID.Valid && other.TelegramID.Int64 == u.TelegramID.Int64) {
			return apperr.Conflict("email or telegram account is already used by another user")
		}
	}
	u.UpdatedAt = time.Now()
	stored := *u
	repo.db.table[u.ID] = &stored
	return nil
}

func (repo *UserRepository) ListActiveByRole(_ context.Context, role user.Role) ([]*user.User, error) {
	users := repo.query(func(u *user.User) bool { return u.IsActive && u.Role == role })
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

func (repo *UserRepository) ListAll(_ context.Context) ([]*user.User, error) {
	return repo.query(func(*user.User) bool { return true }), nil
}

func (repo *UserRepository) query(match func(*user.User) bool) []*user.User {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]*user.User, 0, len(repo.db.table))
	for _, u := range repo.db.table {
		if match(u) {
			cp := *u
			users = append(users, &cp)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}
