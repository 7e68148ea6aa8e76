// Copyright (c) 2026 Antonio Anerao
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
)

// PublicSettingsResponse is the policy slice anonymous clients may see.
// The domain allow-list stays private; clients learn the outcome of
// the policy, never the policy itself.
type PublicSettingsResponse struct {
	AllowPublicSignup      bool `json:"allow_public_signup"`
	RequireAuthToCreatePad bool `json:"require_auth_to_create_pad"`
}

// PublicSettings handles GET /api/settings/public.
func (h *Handler) PublicSettings(w http.ResponseWriter, r *http.Request) {
	ps, err := h.settings.Get(r.Context())
	if err != nil {
		WriteInternalError(w, "Failed to load platform settings")
		return
	}

	WriteSuccess(w, PublicSettingsResponse{
		AllowPublicSignup:      ps.AllowPublicSignup,
		RequireAuthToCreatePad: ps.RequireAuthToCreatePad,
	})
}
