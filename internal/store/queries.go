// Copyright (c) 2026 Antonio Anerao
// SPDX-License-Identifier: GPL-3.0-or-later

// Package store provides database access for users, pads, platform
// settings, and the event log. All lookups return sql.ErrNoRows when
// no matching row exists.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/antonioanerao/anotai/internal/model"
)

// DBTX is the subset of *sql.DB / *sql.Tx used by Queries.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries provides typed access to the database.
type Queries struct {
	db DBTX
}

// New creates a Queries instance backed by the given database handle.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

const userColumns = `id, email, password_hash, role, name, created_at, updated_at, last_login_at`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Name, &u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	return u, err
}

// CreateUserParams holds the fields for creating a user.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	Role         string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateUser inserts a new user with a generated ID and returns it.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (model.User, error) {
	id := uuid.NewString()
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, role, name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, arg.Email, arg.PasswordHash, arg.Role, arg.Name, arg.CreatedAt, arg.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	return q.GetUserByID(ctx, id)
}

// GetUserByID fetches a user by ID.
func (q *Queries) GetUserByID(ctx context.Context, id string) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail fetches a user by email. Callers must normalize the
// email (trim + lowercase) before calling.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// ListUsers returns all users ordered by creation time.
func (q *Queries) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUserRoleParams holds the fields for a role update.
type UpdateUserRoleParams struct {
	Role      string
	UpdatedAt time.Time
	ID        string
}

// UpdateUserRole changes a user's role.
func (q *Queries) UpdateUserRole(ctx context.Context, arg UpdateUserRoleParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		arg.Role, arg.UpdatedAt, arg.ID)
	return err
}

// UpdateUserPasswordParams holds the fields for a password update.
type UpdateUserPasswordParams struct {
	PasswordHash string
	UpdatedAt    time.Time
	ID           string
}

// UpdateUserPassword replaces a user's password hash.
func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		arg.PasswordHash, arg.UpdatedAt, arg.ID)
	return err
}

// UpdateUserLastLoginParams holds the fields for a last-login update.
type UpdateUserLastLoginParams struct {
	LastLoginAt sql.NullTime
	ID          string
}

// UpdateUserLastLogin records the time of the user's latest login.
func (q *Queries) UpdateUserLastLogin(ctx context.Context, arg UpdateUserLastLoginParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = ? WHERE id = ?`,
		arg.LastLoginAt, arg.ID)
	return err
}

const padColumns = `id, slug, content, language, edit_mode, owner_id, created_at, updated_at`

func scanPad(row interface{ Scan(...any) error }) (model.Pad, error) {
	var p model.Pad
	err := row.Scan(&p.ID, &p.Slug, &p.Content, &p.Language, &p.EditMode, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// CreatePadParams holds the fields for creating a pad.
type CreatePadParams struct {
	Slug      string
	Content   string
	Language  string
	EditMode  string
	OwnerID   sql.NullString
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreatePad inserts a new pad with a generated ID and returns it.
func (q *Queries) CreatePad(ctx context.Context, arg CreatePadParams) (model.Pad, error) {
	id := uuid.NewString()
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO pads (id, slug, content, language, edit_mode, owner_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, arg.Slug, arg.Content, arg.Language, arg.EditMode, arg.OwnerID, arg.CreatedAt, arg.UpdatedAt)
	if err != nil {
		return model.Pad{}, err
	}
	return q.GetPadByID(ctx, id)
}

// GetPadByID fetches a pad by ID.
func (q *Queries) GetPadByID(ctx context.Context, id string) (model.Pad, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+padColumns+` FROM pads WHERE id = ?`, id)
	return scanPad(row)
}

// GetPadBySlug fetches a pad by slug.
func (q *Queries) GetPadBySlug(ctx context.Context, slug string) (model.Pad, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+padColumns+` FROM pads WHERE slug = ?`, slug)
	return scanPad(row)
}

// CountPadsBySlug returns the number of pads with the given slug (0 or 1).
func (q *Queries) CountPadsBySlug(ctx context.Context, slug string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pads WHERE slug = ?`, slug).Scan(&count)
	return count, err
}

// UpdatePadParams holds the fields for a pad update. Content and
// Language are only applied when valid; updated_at is always bumped.
type UpdatePadParams struct {
	Content   sql.NullString
	Language  sql.NullString
	UpdatedAt time.Time
	ID        string
}

// UpdatePad replaces pad content and/or language and bumps updated_at.
func (q *Queries) UpdatePad(ctx context.Context, arg UpdatePadParams) (model.Pad, error) {
	_, err := q.db.ExecContext(ctx,
		`UPDATE pads SET content = COALESCE(?, content), language = COALESCE(?, language), updated_at = ?
		 WHERE id = ?`,
		arg.Content, arg.Language, arg.UpdatedAt, arg.ID)
	if err != nil {
		return model.Pad{}, err
	}
	return q.GetPadByID(ctx, arg.ID)
}

// UpdatePadEditModeParams holds the fields for an edit mode change.
type UpdatePadEditModeParams struct {
	EditMode  string
	UpdatedAt time.Time
	ID        string
}

// UpdatePadEditMode changes a pad's edit mode and bumps updated_at.
func (q *Queries) UpdatePadEditMode(ctx context.Context, arg UpdatePadEditModeParams) (model.Pad, error) {
	_, err := q.db.ExecContext(ctx,
		`UPDATE pads SET edit_mode = ?, updated_at = ? WHERE id = ?`,
		arg.EditMode, arg.UpdatedAt, arg.ID)
	if err != nil {
		return model.Pad{}, err
	}
	return q.GetPadByID(ctx, arg.ID)
}

// DeletePad removes a pad by ID.
func (q *Queries) DeletePad(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM pads WHERE id = ?`, id)
	return err
}

// ListPadsByOwner returns all pads owned by the given user, most
// recently updated first.
func (q *Queries) ListPadsByOwner(ctx context.Context, ownerID string) ([]model.Pad, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+padColumns+` FROM pads WHERE owner_id = ? ORDER BY updated_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var pads []model.Pad
	for rows.Next() {
		p, err := scanPad(rows)
		if err != nil {
			return nil, err
		}
		pads = append(pads, p)
	}
	return pads, rows.Err()
}

// PadWithOwner is a pad joined with its owner's email for admin listings.
type PadWithOwner struct {
	model.Pad
	OwnerEmail sql.NullString
}

// ListPads returns all pads with owner emails, newest first.
func (q *Queries) ListPads(ctx context.Context) ([]PadWithOwner, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT p.id, p.slug, p.content, p.language, p.edit_mode, p.owner_id, p.created_at, p.updated_at, u.email
		 FROM pads p LEFT JOIN users u ON u.id = p.owner_id
		 ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var pads []PadWithOwner
	for rows.Next() {
		var p PadWithOwner
		if err := rows.Scan(&p.ID, &p.Slug, &p.Content, &p.Language, &p.EditMode,
			&p.OwnerID, &p.CreatedAt, &p.UpdatedAt, &p.OwnerEmail); err != nil {
			return nil, err
		}
		pads = append(pads, p)
	}
	return pads, rows.Err()
}

// DeleteStaleAnonymousPads removes ownerless pads whose content is
// still empty and that were last touched before the cutoff. Returns
// the number of pads removed.
func (q *Queries) DeleteStaleAnonymousPads(ctx context.Context, before time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM pads WHERE owner_id IS NULL AND content = '' AND updated_at < ?`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const settingsColumns = `id, allow_public_signup, allowed_signup_domains, require_auth_to_create_pad, updated_by_id, updated_at`

func scanSettings(row interface{ Scan(...any) error }) (model.PlatformSettings, error) {
	var s model.PlatformSettings
	err := row.Scan(&s.ID, &s.AllowPublicSignup, &s.AllowedSignupDomains,
		&s.RequireAuthToCreatePad, &s.UpdatedByID, &s.UpdatedAt)
	return s, err
}

// GetPlatformSettings fetches the settings singleton.
func (q *Queries) GetPlatformSettings(ctx context.Context) (model.PlatformSettings, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+settingsColumns+` FROM platform_settings WHERE id = ?`, model.PlatformSettingsID)
	return scanSettings(row)
}

// GetOrCreatePlatformSettings fetches the settings singleton, lazily
// creating it with defaults on first read. INSERT OR IGNORE keeps the
// creation idempotent under concurrent first reads.
func (q *Queries) GetOrCreatePlatformSettings(ctx context.Context) (model.PlatformSettings, error) {
	s, err := q.GetPlatformSettings(ctx)
	if err == nil {
		return s, nil
	}
	if err != sql.ErrNoRows {
		return model.PlatformSettings{}, err
	}

	if _, err := q.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO platform_settings (id, allow_public_signup, allowed_signup_domains, require_auth_to_create_pad, updated_at)
		 VALUES (?, 1, '', 1, ?)`,
		model.PlatformSettingsID, time.Now()); err != nil {
		return model.PlatformSettings{}, fmt.Errorf("creating default settings: %w", err)
	}

	return q.GetPlatformSettings(ctx)
}

// UpdatePlatformSettingsParams holds the fields for a settings update.
type UpdatePlatformSettingsParams struct {
	AllowPublicSignup      bool
	AllowedSignupDomains   string
	RequireAuthToCreatePad bool
	UpdatedByID            sql.NullString
	UpdatedAt              time.Time
}

// UpdatePlatformSettings replaces the settings singleton values.
// The row is created first if it does not exist yet.
func (q *Queries) UpdatePlatformSettings(ctx context.Context, arg UpdatePlatformSettingsParams) (model.PlatformSettings, error) {
	if _, err := q.GetOrCreatePlatformSettings(ctx); err != nil {
		return model.PlatformSettings{}, err
	}
	_, err := q.db.ExecContext(ctx,
		`UPDATE platform_settings
		 SET allow_public_signup = ?, allowed_signup_domains = ?, require_auth_to_create_pad = ?, updated_by_id = ?, updated_at = ?
		 WHERE id = ?`,
		arg.AllowPublicSignup, arg.AllowedSignupDomains, arg.RequireAuthToCreatePad,
		arg.UpdatedByID, arg.UpdatedAt, model.PlatformSettingsID)
	if err != nil {
		return model.PlatformSettings{}, err
	}
	return q.GetPlatformSettings(ctx)
}

// CreateEventParams holds the fields for creating an event log entry.
type CreateEventParams struct {
	Level     string
	Category  string
	Message   string
	UserID    sql.NullString
	Metadata  string
	CreatedAt time.Time
}

// CreateEvent inserts an event log entry.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (model.Event, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO events (level, category, message, user_id, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		arg.Level, arg.Category, arg.Message, arg.UserID, arg.Metadata, arg.CreatedAt)
	if err != nil {
		return model.Event{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Event{}, err
	}
	return model.Event{
		ID:        id,
		Level:     arg.Level,
		Category:  arg.Category,
		Message:   arg.Message,
		UserID:    arg.UserID,
		Metadata:  arg.Metadata,
		CreatedAt: arg.CreatedAt,
	}, nil
}

// ListRecentEvents returns the newest events up to the given limit.
func (q *Queries) ListRecentEvents(ctx context.Context, limit int64) ([]model.Event, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, level, category, message, user_id, metadata, created_at
		 FROM events ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.UserID, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
