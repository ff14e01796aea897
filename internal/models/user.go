// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package models

import (
	"time"
)

// User status constants.
const (
	// UserStatusActive is the normal account state.
	UserStatusActive = "active"

	// UserStatusSuspended blocks authentication and hides the user's content.
	UserStatusSuspended = "suspended"
)

// User represents an account.
//
// Security:
//   - PasswordHash is bcrypt (cost 12) and never exposed in JSON
//   - Suspended users cannot authenticate
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	DisplayName  string     `json:"display_name,omitempty"`
	Bio          string     `json:"bio,omitempty"`
	AvatarPath   string     `json:"avatar_path,omitempty"`
	Role         string     `json:"role"`
	Tier         string     `json:"tier"`
	Status       string     `json:"status"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsSuspended reports whether the account is suspended.
func (u *User) IsSuspended() bool {
	return u.Status == UserStatusSuspended
}

// PublicProfile is the subset of User exposed to other users.
type PublicProfile struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	AvatarPath  string    `json:"avatar_path,omitempty"`
	Role        string    `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
}

// Public returns the user's public profile.
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Bio:         u.Bio,
		AvatarPath:  u.AvatarPath,
		Role:        u.Role,
		JoinedAt:    u.CreatedAt,
	}
}

// UpdateUserRoleRequest is the admin request to change a user's role.
type UpdateUserRoleRequest struct {
	Role   string `json:"role" validate:"required,role"`
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

// UpdateUserStatusRequest is the admin request to suspend or reactivate a user.
type UpdateUserStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active suspended"`
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

// UserListResponse wraps a page of users for the admin surface.
type UserListResponse struct {
	Users      []User         `json:"users"`
	Pagination PaginationInfo `json:"pagination"`
}
