// Copyright (c) 2026 Antonio Anerao
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Pad edit modes. The edit mode decides who may change a pad's content.
const (
	EditModeOwnerOnly     = "owner_only"
	EditModeCollaborative = "collaborative"
	EditModeAnonymous     = "anonymous"
)

// ValidEditModes lists all accepted edit modes.
var ValidEditModes = []string{EditModeOwnerOnly, EditModeCollaborative, EditModeAnonymous}

// IsValidEditMode checks if an edit mode string is one of the accepted modes.
func IsValidEditMode(mode string) bool {
	for _, m := range ValidEditModes {
		if m == mode {
			return true
		}
	}
	return false
}

// Pad languages used for client-side syntax highlighting.
const (
	LanguagePlainText  = "plain_text"
	LanguagePython     = "python"
	LanguagePHP        = "php"
	LanguageJavaScript = "javascript"
)

// ValidLanguages lists all accepted pad languages.
var ValidLanguages = []string{LanguagePlainText, LanguagePython, LanguagePHP, LanguageJavaScript}

// IsValidLanguage checks if a language string is one of the accepted languages.
func IsValidLanguage(lang string) bool {
	for _, l := range ValidLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

// MaxPadContentLength is the maximum pad content size in characters.
const MaxPadContentLength = 100000

// Pad is a shared text block addressed by its slug. OwnerID is invalid
// for pads created anonymously. The slug is immutable after creation.
type Pad struct {
	ID        string         `json:"id"`
	Slug      string         `json:"slug"`
	Content   string         `json:"content"`
	Language  string         `json:"language"`
	EditMode  string         `json:"edit_mode"`
	OwnerID   sql.NullString `json:"owner_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
