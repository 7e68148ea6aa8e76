// Copyright (c) 2026 Antonio Anerao
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"errors"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/antonioanerao/anotai/internal/authz"
	"github.com/antonioanerao/anotai/internal/middleware"
	"github.com/antonioanerao/anotai/internal/model"
	"github.com/antonioanerao/anotai/internal/store"
	"github.com/antonioanerao/anotai/internal/util"
)

// PadResponse represents a pad in API responses.
type PadResponse struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Content   string    `json:"content"`
	Language  string    `json:"language"`
	EditMode  string    `json:"edit_mode"`
	OwnerID   *string   `json:"owner_id,omitempty"`
	CanEdit   bool      `json:"can_edit"`
	IsOwner   bool      `json:"is_owner"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// padToResponse converts a pad, computing what the acting user may do.
func padToResponse(p model.Pad, actor *model.User) PadResponse {
	resp := PadResponse{
		ID:        p.ID,
		Slug:      p.Slug,
		Content:   p.Content,
		Language:  p.Language,
		EditMode:  p.EditMode,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.OwnerID.Valid {
		resp.OwnerID = &p.OwnerID.String
	}

	var actorID sql.NullString
	if actor != nil {
		actorID = sql.NullString{String: actor.ID, Valid: true}
	}
	resp.CanEdit = authz.CanEditPad(actorID, p.OwnerID, p.EditMode)
	resp.IsOwner = authz.IsOwner(actorID, p.OwnerID)
	return resp
}

// CreatePadRequest is the request body for creating a pad.
type CreatePadRequest struct {
	Slug     string `json:"slug,omitempty"`
	Content  string `json:"content,omitempty"`
	Language string `json:"language,omitempty"`
	EditMode string `json:"edit_mode,omitempty"`
}

// CreatePad handles POST /api/pads.
func (h *Handler) CreatePad(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUser(r)

	ps, err := h.settings.Get(r.Context())
	if err != nil {
		WriteInternalError(w, "Failed to load platform settings")
		return
	}
	if ps.RequireAuthToCreatePad && actor == nil {
		WriteUnauthorized(w, "Sign in to create a pad")
		return
	}

	var req CreatePadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// The limit counts characters, not bytes.
	if utf8.RuneCountInString(req.Content) > model.MaxPadContentLength {
		WriteBadRequest(w, "Content too long", nil)
		return
	}

	language := req.Language
	if language == "" {
		language = model.LanguagePlainText
	}
	if !model.IsValidLanguage(language) {
		WriteBadRequest(w, "Invalid language", nil)
		return
	}

	// Anonymous pads have no owner to enforce owner_only against, so
	// they default to open editing.
	editMode := req.EditMode
	if editMode == "" {
		if actor != nil {
			editMode = model.EditModeOwnerOnly
		} else {
			editMode = model.EditModeAnonymous
		}
	}
	if !model.IsValidEditMode(editMode) {
		WriteBadRequest(w, "Invalid edit mode", nil)
		return
	}

	slug, err := h.buildSlug(r, req.Slug)
	if err != nil || slug == "" {
		WriteInternalError(w, "Failed to allocate a slug")
		return
	}

	var ownerID sql.NullString
	if actor != nil {
		ownerID = sql.NullString{String: actor.ID, Valid: true}
	}

	now := time.Now()
	pad, err := h.queries.CreatePad(r.Context(), store.CreatePadParams{
		Slug:      slug,
		Content:   req.Content,
		Language:  language,
		EditMode:  editMode,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		WriteInternalError(w, "Failed to create pad")
		return
	}

	_ = h.events.LogPadEvent(r.Context(), model.EventLevelInfo, "Pad created", middleware.GetUserIDPtr(r), map[string]any{
		"pad_id": pad.ID,
		"slug":   pad.Slug,
	})

	WriteCreated(w, padToResponse(pad, actor))
}

// buildSlug resolves the slug for a new pad. A requested slug is
// slugified; on collision up to five suffixed candidates are tried,
// each checked for uniqueness. A requested slug that slugifies to
// something unusable, an exhausted suffix budget, or no request at all
// fall through to drawing random slugs until one is free.
func (h *Handler) buildSlug(r *http.Request, requested string) (string, error) {
	if requested != "" {
		slug := util.Slugify(requested)
		if util.IsValidSlug(slug) {
			count, err := h.queries.CountPadsBySlug(r.Context(), slug)
			if err != nil {
				return "", errors.New("failed to check slug")
			}
			if count == 0 {
				return slug, nil
			}
			for i := 0; i < 5; i++ {
				candidate := slug + "-" + util.RandomSlugSuffix()
				count, err := h.queries.CountPadsBySlug(r.Context(), candidate)
				if err != nil {
					return "", errors.New("failed to check slug")
				}
				if count == 0 {
					return candidate, nil
				}
			}
		}
	}

	for i := 0; i < 5; i++ {
		slug := util.RandomSlug()
		count, err := h.queries.CountPadsBySlug(r.Context(), slug)
		if err != nil {
			return "", errors.New("failed to check slug")
		}
		if count == 0 {
			return slug, nil
		}
	}
	return "", nil
}

// requirePadBySlug fetches the pad named in the URL, writing the error
// response when it cannot be served.
func (h *Handler) requirePadBySlug(w http.ResponseWriter, r *http.Request) (model.Pad, bool) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		WriteBadRequest(w, "Missing pad slug", nil)
		return model.Pad{}, false
	}

	pad, err := h.queries.GetPadBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			WriteNotFound(w, "Pad not found")
		} else {
			WriteInternalError(w, "Failed to retrieve pad")
		}
		return model.Pad{}, false
	}
	return pad, true
}

// GetPad handles GET /api/pads/{slug}. Pads are world-readable.
func (h *Handler) GetPad(w http.ResponseWriter, r *http.Request) {
	pad, ok := h.requirePadBySlug(w, r)
	if !ok {
		return
	}
	WriteSuccess(w, padToResponse(pad, middleware.GetUser(r)))
}

// UpdatePadRequest is the request body for updating a pad. Absent
// fields are left untouched.
type UpdatePadRequest struct {
	Content  *string `json:"content,omitempty"`
	Language *string `json:"language,omitempty"`
	EditMode *string `json:"edit_mode,omitempty"`
}

// UpdatePad handles PATCH /api/pads/{slug}. Content changes follow the
// pad's edit mode; language and edit mode changes are owner or admin
// operations.
func (h *Handler) UpdatePad(w http.ResponseWriter, r *http.Request) {
	pad, ok := h.requirePadBySlug(w, r)
	if !ok {
		return
	}

	var req UpdatePadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	actor := middleware.GetUser(r)

	// A missing session is an authentication failure, not a policy
	// denial. Only anonymous-mode pads accept sessionless writes.
	if actor == nil && pad.EditMode != model.EditModeAnonymous {
		WriteUnauthorized(w, "Sign in to edit this pad")
		return
	}

	var actorID sql.NullString
	isAdmin := false
	if actor != nil {
		actorID = sql.NullString{String: actor.ID, Valid: true}
		isAdmin = actor.IsAdmin()
	}

	ownerTier := isAdmin || authz.IsOwner(actorID, pad.OwnerID)

	if req.Content != nil {
		if !ownerTier && !authz.CanEditPad(actorID, pad.OwnerID, pad.EditMode) {
			WriteForbidden(w, "You may not edit this pad")
			return
		}
		if utf8.RuneCountInString(*req.Content) > model.MaxPadContentLength {
			WriteBadRequest(w, "Content too long", nil)
			return
		}
	}

	if req.Language != nil {
		if !ownerTier {
			WriteForbidden(w, "Only the owner may change the language")
			return
		}
		if !model.IsValidLanguage(*req.Language) {
			WriteBadRequest(w, "Invalid language", nil)
			return
		}
	}

	if req.EditMode != nil {
		if !ownerTier {
			WriteForbidden(w, "Only the owner may change the edit mode")
			return
		}
		if !model.IsValidEditMode(*req.EditMode) {
			WriteBadRequest(w, "Invalid edit mode", nil)
			return
		}
	}

	if req.Content == nil && req.Language == nil && req.EditMode == nil {
		WriteBadRequest(w, "Nothing to update", nil)
		return
	}

	var content, language sql.NullString
	if req.Content != nil {
		content = sql.NullString{String: *req.Content, Valid: true}
	}
	if req.Language != nil {
		language = sql.NullString{String: *req.Language, Valid: true}
	}

	updated, err := h.queries.UpdatePad(r.Context(), store.UpdatePadParams{
		Content:   content,
		Language:  language,
		UpdatedAt: time.Now(),
		ID:        pad.ID,
	})
	if err != nil {
		WriteInternalError(w, "Failed to update pad")
		return
	}

	if req.EditMode != nil && *req.EditMode != pad.EditMode {
		updated, err = h.queries.UpdatePadEditMode(r.Context(), store.UpdatePadEditModeParams{
			EditMode:  *req.EditMode,
			UpdatedAt: time.Now(),
			ID:        pad.ID,
		})
		if err != nil {
			WriteInternalError(w, "Failed to update pad")
			return
		}
	}

	WriteSuccess(w, padToResponse(updated, actor))
}

// DeletePad handles DELETE /api/pads/{slug}. Owner or admin only.
func (h *Handler) DeletePad(w http.ResponseWriter, r *http.Request) {
	pad, ok := h.requirePadBySlug(w, r)
	if !ok {
		return
	}

	actor := middleware.GetUser(r)
	if actor == nil {
		WriteUnauthorized(w, "Not authenticated")
		return
	}

	actorID := sql.NullString{String: actor.ID, Valid: true}
	if !actor.IsAdmin() && !authz.IsOwner(actorID, pad.OwnerID) {
		WriteForbidden(w, "Only the owner may delete this pad")
		return
	}

	if err := h.queries.DeletePad(r.Context(), pad.ID); err != nil {
		WriteInternalError(w, "Failed to delete pad")
		return
	}

	_ = h.events.LogPadEvent(r.Context(), model.EventLevelInfo, "Pad deleted", &actor.ID, map[string]any{
		"pad_id": pad.ID,
		"slug":   pad.Slug,
	})

	WriteSuccess(w, map[string]bool{"deleted": true})
}

// MyPads handles GET /api/my/pads.
func (h *Handler) MyPads(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUser(r)
	if actor == nil {
		WriteUnauthorized(w, "Not authenticated")
		return
	}

	pads, err := h.queries.ListPadsByOwner(r.Context(), actor.ID)
	if err != nil {
		WriteInternalError(w, "Failed to list pads")
		return
	}

	resp := make([]PadResponse, 0, len(pads))
	for _, p := range pads {
		resp = append(resp, padToResponse(p, actor))
	}
	WriteSuccess(w, resp)
}
