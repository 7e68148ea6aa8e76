// Copyright (c) 2026 Antonio Anerao
// SPDX-License-Identifier: GPL-3.0-or-later

// Package signup implements the account admission pipeline: input
// validation, captcha verification, platform policy, domain
// allow-list, and uniqueness, in that order. Each step short-circuits;
// exactly one user row is created on success and none on any failure.
package signup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/antonioanerao/anotai/internal/authz"
	"github.com/antonioanerao/anotai/internal/captcha"
	"github.com/antonioanerao/anotai/internal/model"
	"github.com/antonioanerao/anotai/internal/policy"
	"github.com/antonioanerao/anotai/internal/store"
)

// Password length bounds for self-service signup.
const (
	PasswordMinLength = 6
	PasswordMaxLength = 20
)

// Password length bounds for admin-created accounts.
const (
	AdminPasswordMinLength = 8
	AdminPasswordMaxLength = 200
)

// MaxNameLength bounds the optional display name.
const MaxNameLength = 120

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Reason classifies admission failures.
type Reason string

// Admission failure reasons.
const (
	ReasonInvalidData        Reason = "invalid-data"
	ReasonCaptchaFailed      Reason = "captcha-failed"
	ReasonCaptchaUnavailable Reason = "captcha-unavailable"
	ReasonSignupDisabled     Reason = "signup-disabled"
	ReasonDomainNotAllowed   Reason = "domain-not-allowed"
	ReasonEmailTaken         Reason = "email-taken"
)

// Error is a typed admission failure.
type Error struct {
	Reason  Reason
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("signup rejected (%s): %s", e.Reason, e.Message)
}

// FailureReason extracts the typed reason from an Admit error.
// Returns "" when the error carries no reason.
func FailureReason(err error) Reason {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Reason
	}
	return ""
}

// TokenVerifier is the captcha collaborator consumed by the pipeline.
type TokenVerifier interface {
	Verify(ctx context.Context, token, expectedAction string) (captcha.Result, error)
}

// PasswordHasher hashes a plaintext password for storage.
type PasswordHasher func(password string) (string, error)

// Service runs the signup admission pipeline.
type Service struct {
	queries           *store.Queries
	verifier          TokenVerifier
	hashPassword      PasswordHasher
	primaryAdminEmail string
}

// NewService creates a signup Service. primaryAdminEmail may be empty,
// in which case no email is auto-promoted.
func NewService(db store.DBTX, verifier TokenVerifier, hash PasswordHasher, primaryAdminEmail string) *Service {
	return &Service{
		queries:           store.New(db),
		verifier:          verifier,
		hashPassword:      hash,
		primaryAdminEmail: policy.NormalizeEmail(primaryAdminEmail),
	}
}

// IsPrimaryAdminEmail reports whether the (normalized) email matches
// the configured primary admin email.
func (s *Service) IsPrimaryAdminEmail(email string) bool {
	return s.primaryAdminEmail != "" && policy.NormalizeEmail(email) == s.primaryAdminEmail
}

// Input holds a self-service signup request.
type Input struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
	CaptchaToken    string
	CaptchaAction   string
}

// Admit runs the admission pipeline for a self-service signup.
// sessionRole is the caller's current session role ("" when
// unauthenticated); admins bypass the public-signup toggle and the
// domain allow-list. ps is the current platform policy.
func (s *Service) Admit(ctx context.Context, input Input, sessionRole string, ps model.PlatformSettings) (model.User, error) {
	if err := validateInput(input); err != nil {
		return model.User{}, err
	}

	// A token tagged for another flow is a replay, not bad input.
	if input.CaptchaAction != "" && input.CaptchaAction != captcha.ActionSignup {
		return model.User{}, &Error{Reason: ReasonCaptchaFailed, Message: "captcha action mismatch"}
	}

	// Captcha gates everything that could leak account existence.
	if _, err := s.verifier.Verify(ctx, input.CaptchaToken, captcha.ActionSignup); err != nil {
		if captcha.FailureReason(err) == captcha.ReasonMissingSecret {
			return model.User{}, &Error{Reason: ReasonCaptchaUnavailable, Message: "captcha not configured"}
		}
		return model.User{}, &Error{Reason: ReasonCaptchaFailed, Message: "captcha verification failed"}
	}

	isAdmin := authz.IsAdmin(sessionRole)

	if !isAdmin {
		if !ps.AllowPublicSignup {
			return model.User{}, &Error{Reason: ReasonSignupDisabled, Message: "public signup is disabled"}
		}

		allowed, _ := policy.ParseAllowedDomains(ps.AllowedSignupDomains)
		if !policy.IsEmailAllowed(policy.NormalizeEmail(input.Email), allowed) {
			return model.User{}, &Error{Reason: ReasonDomainNotAllowed, Message: "email domain not allowed for public signup"}
		}
	}

	return s.create(ctx, input.Name, input.Email, input.Password)
}

// AdminCreateInput holds an admin-initiated account creation request.
type AdminCreateInput struct {
	Name     string
	Email    string
	Password string
}

// CreateByAdmin creates an account on behalf of an admin: no captcha
// and no public-signup policy, but uniqueness and the primary-admin
// role rule still apply.
func (s *Service) CreateByAdmin(ctx context.Context, input AdminCreateInput) (model.User, error) {
	if !emailShape.MatchString(strings.TrimSpace(input.Email)) {
		return model.User{}, &Error{Reason: ReasonInvalidData, Message: "invalid email"}
	}
	if len(input.Password) < AdminPasswordMinLength || len(input.Password) > AdminPasswordMaxLength {
		return model.User{}, &Error{Reason: ReasonInvalidData, Message: "invalid password length"}
	}
	if len(strings.TrimSpace(input.Name)) > MaxNameLength {
		return model.User{}, &Error{Reason: ReasonInvalidData, Message: "name too long"}
	}

	return s.create(ctx, input.Name, input.Email, input.Password)
}

// create runs the shared tail of both pipelines: uniqueness check,
// hashing, and the role decision.
func (s *Service) create(ctx context.Context, name, email, password string) (model.User, error) {
	normalized := policy.NormalizeEmail(email)

	_, err := s.queries.GetUserByEmail(ctx, normalized)
	if err == nil {
		return model.User{}, &Error{Reason: ReasonEmailTaken, Message: "email already registered"}
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("checking email uniqueness: %w", err)
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return model.User{}, fmt.Errorf("hashing password: %w", err)
	}

	role := model.RoleUser
	if s.IsPrimaryAdminEmail(normalized) {
		role = model.RoleAdmin
	}

	now := time.Now()
	user, err := s.queries.CreateUser(ctx, store.CreateUserParams{
		Email:        normalized,
		PasswordHash: hash,
		Role:         role,
		Name:         strings.TrimSpace(name),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return model.User{}, fmt.Errorf("creating user: %w", err)
	}

	slog.Info("user created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func validateInput(input Input) error {
	if !emailShape.MatchString(strings.TrimSpace(input.Email)) {
		return &Error{Reason: ReasonInvalidData, Message: "invalid email"}
	}
	if len(input.Password) < PasswordMinLength || len(input.Password) > PasswordMaxLength {
		return &Error{Reason: ReasonInvalidData, Message: "password must be 6-20 characters"}
	}
	if input.Password != input.ConfirmPassword {
		return &Error{Reason: ReasonInvalidData, Message: "password confirmation does not match"}
	}
	if len(strings.TrimSpace(input.Name)) > MaxNameLength {
		return &Error{Reason: ReasonInvalidData, Message: "name too long"}
	}
	return nil
}
