package user

import (
	"database/sql"
	"time"
)

// Role is the authorization role of an account.
type Role string

const (
	RoleFacilitator Role = "facilitator"
	RoleManager     Role = "manager"
	RoleAdmin       Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleFacilitator, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// User represents an account of the tracker.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool
	TelegramID   sql.NullInt64 // Linked Telegram account, if any
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Recipient is the public view of a user used in notification payloads.
type Recipient struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	TelegramID int64  `json:"telegramId,omitempty"`
}

func (u *User) Recipient() Recipient {
	r := Recipient{ID: u.ID, Name: u.Name, Email: u.Email}
	if u.TelegramID.Valid {
		r.TelegramID = u.TelegramID.Int64
	}
	return r
}

// Caller is the authenticated identity behind a request.
type Caller struct {
	ID   int64
	Role Role
}

// Privileged reports whether the caller is exempt from ownership checks.
func (c Caller) Privileged() bool {
	return c.Role == RoleManager || c.Role == RoleAdmin
}
