// Copyright (c) 2026 Antonio Anerao
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/antonioanerao/anotai/internal/middleware"
	"github.com/antonioanerao/anotai/internal/model"
	"github.com/antonioanerao/anotai/internal/settings"
	"github.com/antonioanerao/anotai/internal/signup"
)

// AdminListUsers handles GET /api/admin/users.
func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.queries.ListUsers(r.Context())
	if err != nil {
		WriteInternalError(w, "Failed to list users")
		return
	}

	resp := make([]UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, userToResponse(u))
	}
	WriteSuccess(w, resp)
}

// AdminCreateUserRequest is the request body for admin user creation.
type AdminCreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AdminCreateUser handles POST /api/admin/users. No captcha and no
// public-signup policy apply, but uniqueness and the primary-admin
// role rule still do.
func (h *Handler) AdminCreateUser(w http.ResponseWriter, r *http.Request) {
	var req AdminCreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.signup.CreateByAdmin(r.Context(), signup.AdminCreateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch signup.FailureReason(err) {
		case signup.ReasonInvalidData:
			WriteBadRequest(w, err.Error(), nil)
		case signup.ReasonEmailTaken:
			WriteConflict(w, "Email already registered")
		default:
			WriteInternalError(w, "Failed to create user")
		}
		return
	}

	_ = h.events.LogUserEvent(r.Context(), model.EventLevelInfo, "User created by admin",
		middleware.GetUserIDPtr(r), map[string]any{
			"created_user_id": user.ID,
			"email":           user.Email,
		})

	WriteCreated(w, userToResponse(user))
}

// AdminPadResponse is a pad with owner email for admin listings.
type AdminPadResponse struct {
	PadResponse
	OwnerEmail string `json:"owner_email,omitempty"`
}

// AdminListPads handles GET /api/admin/pads.
func (h *Handler) AdminListPads(w http.ResponseWriter, r *http.Request) {
	pads, err := h.queries.ListPads(r.Context())
	if err != nil {
		WriteInternalError(w, "Failed to list pads")
		return
	}

	actor := middleware.GetUser(r)
	resp := make([]AdminPadResponse, 0, len(pads))
	for _, p := range pads {
		item := AdminPadResponse{PadResponse: padToResponse(p.Pad, actor)}
		if p.OwnerEmail.Valid {
			item.OwnerEmail = p.OwnerEmail.String
		}
		resp = append(resp, item)
	}
	WriteSuccess(w, resp)
}

// AdminDeletePad handles DELETE /api/admin/pads/{id}.
func (h *Handler) AdminDeletePad(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		WriteBadRequest(w, "Missing pad ID", nil)
		return
	}

	pad, err := h.queries.GetPadByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			WriteNotFound(w, "Pad not found")
		} else {
			WriteInternalError(w, "Failed to retrieve pad")
		}
		return
	}

	if err := h.queries.DeletePad(r.Context(), pad.ID); err != nil {
		WriteInternalError(w, "Failed to delete pad")
		return
	}

	_ = h.events.LogPadEvent(r.Context(), model.EventLevelInfo, "Pad deleted by admin",
		middleware.GetUserIDPtr(r), map[string]any{
			"pad_id": pad.ID,
			"slug":   pad.Slug,
		})

	WriteSuccess(w, map[string]bool{"deleted": true})
}

// SettingsResponse represents the platform settings in admin responses.
type SettingsResponse struct {
	AllowPublicSignup      bool      `json:"allow_public_signup"`
	AllowedSignupDomains   string    `json:"allowed_signup_domains"`
	RequireAuthToCreatePad bool      `json:"require_auth_to_create_pad"`
	UpdatedByID            *string   `json:"updated_by_id,omitempty"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func settingsToResponse(s model.PlatformSettings) SettingsResponse {
	resp := SettingsResponse{
		AllowPublicSignup:      s.AllowPublicSignup,
		AllowedSignupDomains:   s.AllowedSignupDomains,
		RequireAuthToCreatePad: s.RequireAuthToCreatePad,
		UpdatedAt:              s.UpdatedAt,
	}
	if s.UpdatedByID.Valid {
		resp.UpdatedByID = &s.UpdatedByID.String
	}
	return resp
}

// AdminGetSettings handles GET /api/admin/settings.
func (h *Handler) AdminGetSettings(w http.ResponseWriter, r *http.Request) {
	ps, err := h.settings.Get(r.Context())
	if err != nil {
		WriteInternalError(w, "Failed to load platform settings")
		return
	}
	WriteSuccess(w, settingsToResponse(ps))
}

// AdminUpdateSettingsRequest is the request body for a settings update.
type AdminUpdateSettingsRequest struct {
	AllowPublicSignup      bool   `json:"allow_public_signup"`
	AllowedSignupDomains   string `json:"allowed_signup_domains"`
	RequireAuthToCreatePad bool   `json:"require_auth_to_create_pad"`
}

// AdminUpdateSettings handles PATCH /api/admin/settings.
func (h *Handler) AdminUpdateSettings(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUser(r)
	if actor == nil {
		WriteUnauthorized(w, "Not authenticated")
		return
	}

	var req AdminUpdateSettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ps, err := h.settings.Update(r.Context(), settings.UpdateParams{
		AllowPublicSignup:      req.AllowPublicSignup,
		AllowedSignupDomains:   req.AllowedSignupDomains,
		RequireAuthToCreatePad: req.RequireAuthToCreatePad,
		UpdatedByID:            sql.NullString{String: actor.ID, Valid: true},
	})
	if err != nil {
		var invalid *settings.InvalidDomainsError
		if errors.As(err, &invalid) {
			details := map[string]string{}
			for _, d := range invalid.Domains {
				details[d] = "invalid domain"
			}
			WriteError(w, http.StatusUnprocessableEntity, "validation_error",
				"Invalid signup domains", details)
			return
		}
		WriteInternalError(w, "Failed to update settings")
		return
	}

	_ = h.events.LogSettingsEvent(r.Context(), model.EventLevelInfo, "Platform settings updated",
		&actor.ID, map[string]any{
			"allow_public_signup":        ps.AllowPublicSignup,
			"allowed_signup_domains":     ps.AllowedSignupDomains,
			"require_auth_to_create_pad": ps.RequireAuthToCreatePad,
		})

	WriteSuccess(w, settingsToResponse(ps))
}

// AdminListEvents handles GET /api/admin/events.
func (h *Handler) AdminListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.queries.ListRecentEvents(r.Context(), 100)
	if err != nil {
		WriteInternalError(w, "Failed to list events")
		return
	}
	WriteSuccess(w, events)
}
