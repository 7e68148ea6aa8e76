// Copyright (c) 2026 Antonio Anerao
// SPDX-License-Identifier: GPL-3.0-or-later

// Package authz holds the pure pad authorization rules. The acting
// user and the pad owner are both optional: requests can be
// unauthenticated and pads can be created anonymously, so both sides
// are modeled as sql.NullString rather than empty-string sentinels.
package authz

import (
	"database/sql"

	"github.com/antonioanerao/anotai/internal/model"
)

// IsAdmin reports whether the given role grants admin access.
func IsAdmin(role string) bool {
	return role == model.RoleAdmin
}

// IsOwner reports whether the acting user owns the pad. Anonymous
// actors and ownerless pads never match.
func IsOwner(actingUserID, ownerID sql.NullString) bool {
	return actingUserID.Valid && ownerID.Valid && actingUserID.String == ownerID.String
}

// CanEditPad decides whether the acting user may change a pad's
// content. Rules, first match wins:
//
//  1. anonymous edit mode: always permitted
//  2. no acting user: denied
//  3. collaborative edit mode: permitted for any authenticated user
//  4. owner_only: permitted only for the owner
//
// Language changes and deletion are a stricter tier and must be
// checked with IsOwner separately.
func CanEditPad(actingUserID, ownerID sql.NullString, editMode string) bool {
	if editMode == model.EditModeAnonymous {
		return true
	}
	if !actingUserID.Valid {
		return false
	}
	if editMode == model.EditModeCollaborative {
		return true
	}
	return IsOwner(actingUserID, ownerID)
}
