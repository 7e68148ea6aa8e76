// Copyright (c) 2026 Antonio Anerao
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the
// application including User, Pad, and PlatformSettings structures.
package model

import (
	"database/sql"
	"time"
)

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ValidRoles lists all accepted user roles.
var ValidRoles = []string{RoleUser, RoleAdmin}

// IsValidRole checks if a role string is one of the accepted roles.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// User represents an account. PasswordHash is empty for accounts that
// have no local credential.
type User struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Never expose in JSON
	Role         string       `json:"role"`
	Name         string       `json:"name"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	LastLoginAt  sql.NullTime `json:"last_login_at,omitempty"`
}

// IsAdmin returns true if the user has admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasLocalCredential returns true if the account can be authenticated
// with an email/password pair.
func (u *User) HasLocalCredential() bool {
	return u.PasswordHash != ""
}
