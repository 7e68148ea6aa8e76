// Copyright (c) 2026 Antonio Anerao
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"net/http"

	"github.com/antonioanerao/anotai/internal/captcha"
	"github.com/antonioanerao/anotai/internal/middleware"
	"github.com/antonioanerao/anotai/internal/model"
	"github.com/antonioanerao/anotai/internal/policy"
	"github.com/antonioanerao/anotai/internal/service"
	"github.com/antonioanerao/anotai/internal/session"
)

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	CaptchaToken  string `json:"captcha_token"`
	CaptchaAction string `json:"captcha_action"`
}

// Login handles POST /api/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	email := policy.NormalizeEmail(req.Email)

	// Account lockout applies before any credential work.
	if h.login != nil {
		if locked, remaining := h.login.IsAccountLocked(email); locked {
			WriteError(w, http.StatusTooManyRequests, "account_locked",
				"Account temporarily locked. Try again in "+remaining.Round(1e9).String(), nil)
			return
		}
	}

	// A token tagged for another flow is a replay, not bad input.
	if req.CaptchaAction != "" && req.CaptchaAction != captcha.ActionLogin {
		WriteForbidden(w, "Captcha verification failed")
		return
	}

	if _, err := h.verifier.Verify(r.Context(), req.CaptchaToken, captcha.ActionLogin); err != nil {
		if captcha.FailureReason(err) == captcha.ReasonMissingSecret {
			WriteServiceUnavailable(w, "Captcha verification unavailable")
			return
		}
		WriteForbidden(w, "Captcha verification failed")
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			if h.login != nil {
				if locked, duration := h.login.RecordFailedAttempt(email); locked {
					_ = h.events.LogAuthEvent(r.Context(), model.EventLevelWarning,
						"Account locked after repeated login failures", nil, map[string]any{
							"email":    email,
							"duration": duration.String(),
						})
				}
			}
			WriteUnauthorized(w, "Invalid email or password")
			return
		}
		WriteInternalError(w, "Login failed")
		return
	}

	if h.login != nil {
		h.login.RecordSuccessfulLogin(email)
	}

	// Rotate the session token on privilege change.
	if err := h.sessions.RenewToken(r.Context()); err != nil {
		WriteInternalError(w, "Login failed")
		return
	}
	h.sessions.Put(r.Context(), session.KeyUserID, user.ID)
	h.sessions.Put(r.Context(), session.KeyRole, user.Role)

	_ = h.events.LogAuthEvent(r.Context(), model.EventLevelInfo, "User logged in", &user.ID, map[string]any{
		"email": user.Email,
	})

	WriteSuccess(w, userToResponse(user))
}

// Logout handles POST /api/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := h.sessions.GetString(r.Context(), session.KeyUserID)

	if err := h.sessions.Destroy(r.Context()); err != nil {
		WriteInternalError(w, "Logout failed")
		return
	}

	if userID != "" {
		_ = h.events.LogAuthEvent(r.Context(), model.EventLevelInfo, "User logged out", &userID, nil)
	}

	WriteSuccess(w, map[string]bool{"logged_out": true})
}

// Me handles GET /api/me, returning the authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		WriteUnauthorized(w, "Not authenticated")
		return
	}
	WriteSuccess(w, userToResponse(*user))
}

// ChangePasswordRequest is the request body for a password change.
type ChangePasswordRequest struct {
	CurrentPassword    string `json:"current_password"`
	NewPassword        string `json:"new_password"`
	ConfirmNewPassword string `json:"confirm_new_password"`
}

// ChangePassword handles PATCH /api/account/password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		WriteUnauthorized(w, "Not authenticated")
		return
	}

	var req ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.NewPassword != req.ConfirmNewPassword {
		WriteBadRequest(w, "New password confirmation does not match", nil)
		return
	}

	err := h.accounts.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrWrongPassword):
		WriteForbidden(w, "Current password is incorrect")
		return
	case errors.Is(err, service.ErrSamePassword):
		WriteBadRequest(w, "New password must differ from the current one", nil)
		return
	case errors.Is(err, service.ErrNoLocalCredential):
		WriteBadRequest(w, "Account has no local credential", nil)
		return
	case errors.Is(err, service.ErrInvalidPassword):
		WriteBadRequest(w, "Password must be 6-20 characters", nil)
		return
	default:
		WriteInternalError(w, "Failed to change password")
		return
	}

	_ = h.events.LogUserEvent(r.Context(), model.EventLevelInfo, "User changed password", &user.ID, nil)

	WriteSuccess(w, map[string]bool{"updated": true})
}
