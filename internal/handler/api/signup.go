// Copyright (c) 2026 Antonio Anerao
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	"github.com/antonioanerao/anotai/internal/model"
	"github.com/antonioanerao/anotai/internal/session"
	"github.com/antonioanerao/anotai/internal/signup"
)

// SignupRequest is the request body for self-service signup.
type SignupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	CaptchaToken    string `json:"captcha_token"`
	CaptchaAction   string `json:"captcha_action"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name,omitempty"`
	Role        string     `json:"role"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func userToResponse(u model.User) UserResponse {
	resp := UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
	if u.LastLoginAt.Valid {
		resp.LastLoginAt = &u.LastLoginAt.Time
	}
	return resp
}

// Signup handles POST /api/signup.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sessionRole := h.sessions.GetString(r.Context(), session.KeyRole)

	ps, err := h.settings.Get(r.Context())
	if err != nil {
		WriteInternalError(w, "Failed to load platform settings")
		return
	}

	user, err := h.signup.Admit(r.Context(), signup.Input{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		CaptchaToken:    req.CaptchaToken,
		CaptchaAction:   req.CaptchaAction,
	}, sessionRole, ps)
	if err != nil {
		h.writeSignupError(w, r, req.Email, err)
		return
	}

	_ = h.events.LogUserEvent(r.Context(), model.EventLevelInfo, "User signed up", &user.ID, map[string]any{
		"email": user.Email,
		"role":  user.Role,
	})

	WriteCreated(w, userToResponse(user))
}

// writeSignupError maps an admission failure to an HTTP response.
func (h *Handler) writeSignupError(w http.ResponseWriter, r *http.Request, email string, err error) {
	reason := signup.FailureReason(err)

	switch reason {
	case signup.ReasonInvalidData:
		WriteBadRequest(w, err.Error(), nil)
	case signup.ReasonCaptchaFailed:
		WriteForbidden(w, "Captcha verification failed")
	case signup.ReasonCaptchaUnavailable:
		WriteServiceUnavailable(w, "Captcha verification unavailable")
	case signup.ReasonSignupDisabled:
		WriteForbidden(w, "Public signup is disabled")
	case signup.ReasonDomainNotAllowed:
		WriteForbidden(w, "Email domain not allowed for signup")
	case signup.ReasonEmailTaken:
		WriteConflict(w, "Email already registered")
	default:
		WriteInternalError(w, "Signup failed")
	}

	if reason != "" && reason != signup.ReasonInvalidData {
		_ = h.events.LogAuthEvent(r.Context(), model.EventLevelWarning, "Signup rejected", nil, map[string]any{
			"email":  email,
			"reason": string(reason),
		})
	}
}
