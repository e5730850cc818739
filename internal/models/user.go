// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's permission level in the system.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
)

// User represents an admin account with authentication and 2FA fields.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never serialize the hash
	DisplayName  string     `json:"display_name"`
	TOTPSecret   *string    `json:"-"` // Nullable; set during 2FA setup
	TOTPEnabled  bool       `json:"totp_enabled"`
	Roles        []UserRole `json:"roles,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// UserRole grants a role to a user. BranchID is informational: any admin
// may edit any branch's content.
type UserRole struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Role      Role       `json:"role"`
	BranchID  *uuid.UUID `json:"branch_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsAdmin returns true if any of the user's roles is admin.
func (u *User) IsAdmin() bool {
	for _, r := range u.Roles {
		if r.Role == RoleAdmin {
			return true
		}
	}
	return false
}

// CanEdit reports whether the user holds any role at all. Editors and
// admins share the same write surface.
func (u *User) CanEdit() bool {
	return len(u.Roles) > 0
}

// Needs2FASetup returns true if the user has not completed 2FA enrollment.
// All users must set up 2FA on their first login.
func (u *User) Needs2FASetup() bool {
	return !u.TOTPEnabled
}
