package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"activity_tracker/internal/domain/activity"
	"activity_tracker/internal/domain/apperr"
	"activity_tracker/internal/domain/user"

	"github.com/sirupsen/logrus"
)

// Custom application-level errors for admin service
var ErrAdminNotAuthorized = apperr.AccessDenied("admin role required")
var ErrStaffNotAuthorized = apperr.AccessDenied("manager or admin role required")

// UserFilter narrows the user listing. Nil members are unset.
type UserFilter struct {
	Role     user.Role
	IsActive *bool
}

// UserList is one page of users.
type UserList struct {
	Items      []*user.User
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// UserChanges is an admin update. Nil members keep the stored value; a zero
// TelegramID unlinks the account.
type UserChanges struct {
	Role       *user.Role
	IsActive   *bool
	TelegramID *int64
}

// AdminService holds the user maintenance operations of managers and admins.
type AdminService struct {
	userRepo user.Repository
	logger   *logrus.Entry
}

func NewAdminService(ur user.Repository, logger *logrus.Entry) *AdminService {
	return &AdminService{
		userRepo: ur,
		logger:   logger.WithField("service", "AdminService"),
	}
}

// ListUsers pages through users, newest first. Managers and admins only.
func (s *AdminService) ListUsers(ctx context.Context, caller user.Caller, filter UserFilter, page activity.Page) (*UserList, error) {
	if !caller.Privileged() {
		return nil, ErrStaffNotAuthorized
	}
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, apperr.Validation("invalid role, must be facilitator, manager, or admin")
	}

	all, err := s.userRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	matched := make([]*user.User, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		u := all[i]
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		matched = append(matched, u)
	}

	page = page.Normalize()
	start := min(page.Offset(), len(matched))
	end := min(start+page.Limit, len(matched))
	return &UserList{
		Items:      matched[start:end],
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      len(matched),
		TotalPages: (len(matched) + page.Limit - 1) / page.Limit,
	}, nil
}

// UpdateUser changes role, active flag or Telegram link. Admins only.
func (s *AdminService) UpdateUser(ctx context.Context, caller user.Caller, userID int64, changes UserChanges) (*user.User, error) {
	if caller.Role != user.RoleAdmin {
		return nil, ErrAdminNotAuthorized
	}
	if changes.Role != nil && !changes.Role.Valid() {
		return nil, apperr.Validation("invalid role, must be facilitator, manager, or admin")
	}

	target, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if changes.Role != nil {
		target.Role = *changes.Role
	}
	if changes.IsActive != nil {
		target.IsActive = *changes.IsActive
	}
	if changes.TelegramID != nil {
		target.TelegramID = sql.NullInt64{Int64: *changes.TelegramID, Valid: *changes.TelegramID != 0}
	}

	if err := s.userRepo.Update(ctx, target); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"admin_id":  caller.ID,
		"user_id":   target.ID,
		"role":      target.Role,
		"is_active": target.IsActive,
	}).Info("User updated")
	return target, nil
}

// LinkTelegram attaches a Telegram account to the user with the given
// e-mail. Admins only.
func (s *AdminService) LinkTelegram(ctx context.Context, caller user.Caller, email string, telegramID int64) (*user.User, error) {
	if caller.Role != user.RoleAdmin {
		return nil, ErrAdminNotAuthorized
	}
	target, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	return s.UpdateUser(ctx, caller, target.ID, UserChanges{TelegramID: &telegramID})
}
