// Copyright (c) 2026 Antonio Anerao
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// PlatformSettingsID is the fixed primary key of the settings singleton row.
const PlatformSettingsID = 1

// PlatformSettings is the process-wide admission policy singleton.
// AllowedSignupDomains is kept serialized as entered by the admin
// (newline/comma/semicolon separated); the policy package parses it.
type PlatformSettings struct {
	ID                     int64          `json:"id"`
	AllowPublicSignup      bool           `json:"allow_public_signup"`
	AllowedSignupDomains   string         `json:"allowed_signup_domains"`
	RequireAuthToCreatePad bool           `json:"require_auth_to_create_pad"`
	UpdatedByID            sql.NullString `json:"updated_by_id,omitempty"`
	UpdatedAt              time.Time      `json:"updated_at"`
}
