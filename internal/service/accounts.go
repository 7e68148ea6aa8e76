// Copyright (c) 2026 Antonio Anerao
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/antonioanerao/anotai/internal/auth"
	"github.com/antonioanerao/anotai/internal/model"
	"github.com/antonioanerao/anotai/internal/policy"
	"github.com/antonioanerao/anotai/internal/signup"
	"github.com/antonioanerao/anotai/internal/store"
)

// Credential and password-change failures.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoLocalCredential  = errors.New("account has no local credential")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrSamePassword       = errors.New("new password must differ from the current one")
	ErrInvalidPassword    = errors.New("password must be 6-20 characters")
)

// AccountService handles credential authentication and account
// maintenance.
type AccountService struct {
	queries           *store.Queries
	primaryAdminEmail string
}

// NewAccountService creates an AccountService. primaryAdminEmail may
// be empty, disabling the self-healing promotion.
func NewAccountService(db store.DBTX, primaryAdminEmail string) *AccountService {
	return &AccountService{
		queries:           store.New(db),
		primaryAdminEmail: policy.NormalizeEmail(primaryAdminEmail),
	}
}

// Authenticate checks an email/password pair. On success the returned
// user already reflects the primary-admin promotion and has its
// last-login timestamp recorded. All failure modes collapse into
// ErrInvalidCredentials so callers cannot distinguish unknown accounts
// from wrong passwords.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	normalized := policy.NormalizeEmail(email)

	user, err := s.queries.GetUserByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Burn a hash check anyway to keep the failure timing
			// comparable to the wrong-password path.
			_, _ = auth.CheckPassword(password, burnHash)
			return model.User{}, ErrInvalidCredentials
		}
		return model.User{}, fmt.Errorf("looking up user: %w", err)
	}

	if !user.HasLocalCredential() {
		return model.User{}, ErrInvalidCredentials
	}

	valid, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil || !valid {
		return model.User{}, ErrInvalidCredentials
	}

	// Re-hash if the stored hash uses outdated parameters.
	if auth.NeedsRehash(user.PasswordHash) {
		if newHash, err := auth.HashPassword(password); err == nil {
			if err := s.queries.UpdateUserPassword(ctx, store.UpdateUserPasswordParams{
				PasswordHash: newHash,
				UpdatedAt:    time.Now(),
				ID:           user.ID,
			}); err != nil {
				slog.Error("failed to re-hash password", "error", err, "user_id", user.ID)
			}
		}
	}

	user, err = s.EnsurePrimaryAdminRole(ctx, user)
	if err != nil {
		return model.User{}, err
	}

	if err := s.queries.UpdateUserLastLogin(ctx, store.UpdateUserLastLoginParams{
		LastLoginAt: sql.NullTime{Time: time.Now(), Valid: true},
		ID:          user.ID,
	}); err != nil {
		// Don't block login on this error
		slog.Error("failed to update last login time", "error", err, "user_id", user.ID)
	}

	return user, nil
}

// EnsurePrimaryAdminRole promotes the user to admin when their email
// matches the configured primary admin email. The invariant is
// re-checked on every authentication, not just once, so the primary
// admin account heals itself even after a manual demotion.
func (s *AccountService) EnsurePrimaryAdminRole(ctx context.Context, user model.User) (model.User, error) {
	if s.primaryAdminEmail == "" || policy.NormalizeEmail(user.Email) != s.primaryAdminEmail {
		return user, nil
	}
	if user.Role == model.RoleAdmin {
		return user, nil
	}

	if err := s.queries.UpdateUserRole(ctx, store.UpdateUserRoleParams{
		Role:      model.RoleAdmin,
		UpdatedAt: time.Now(),
		ID:        user.ID,
	}); err != nil {
		return model.User{}, fmt.Errorf("promoting primary admin: %w", err)
	}

	slog.Info("primary admin promoted", "user_id", user.ID)
	user.Role = model.RoleAdmin
	return user, nil
}

// ChangePassword replaces the user's password after verifying the
// current one. The new password must differ from the current password.
func (s *AccountService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if len(newPassword) < signup.PasswordMinLength || len(newPassword) > signup.PasswordMaxLength {
		return ErrInvalidPassword
	}

	user, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("looking up user: %w", err)
	}

	if !user.HasLocalCredential() {
		return ErrNoLocalCredential
	}

	valid, err := auth.CheckPassword(currentPassword, user.PasswordHash)
	if err != nil || !valid {
		return ErrWrongPassword
	}

	if currentPassword == newPassword {
		return ErrSamePassword
	}

	newHash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	if err := s.queries.UpdateUserPassword(ctx, store.UpdateUserPasswordParams{
		PasswordHash: newHash,
		UpdatedAt:    time.Now(),
		ID:           user.ID,
	}); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return nil
}

// burnHash is a throwaway argon2id hash used to equalize timing when
// the account does not exist.
const burnHash = "$argon2id$v=19$m=19456,t=2,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
