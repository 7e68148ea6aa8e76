// Copyright (c) 2026 Antonio Anerao
// SPDX-License-Identifier: GPL-3.0-or-later

// Package settings exposes the platform admission policy singleton.
// Reads go through the cache; every write stores the fresh row and
// the row is lazily created with defaults on first read.
package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/antonioanerao/anotai/internal/cache"
	"github.com/antonioanerao/anotai/internal/model"
	"github.com/antonioanerao/anotai/internal/policy"
	"github.com/antonioanerao/anotai/internal/store"
)

const (
	cacheKey = "platform_settings"
	cacheTTL = 5 * time.Minute
)

// InvalidDomainsError reports allow-list tokens that failed the domain
// shape check. The whole update is rejected so the admin can fix them.
type InvalidDomainsError struct {
	Domains []string
}

func (e *InvalidDomainsError) Error() string {
	return "invalid signup domains: " + strings.Join(e.Domains, ", ")
}

// Gateway provides cached access to the settings singleton.
type Gateway struct {
	queries *store.Queries
	cache   cache.Cache
}

// NewGateway creates a Gateway. The cache may be nil, in which case
// every read hits the database.
func NewGateway(db store.DBTX, c cache.Cache) *Gateway {
	return &Gateway{
		queries: store.New(db),
		cache:   c,
	}
}

// Get returns the current platform settings, creating the singleton
// with defaults on first read.
func (g *Gateway) Get(ctx context.Context) (model.PlatformSettings, error) {
	if g.cache != nil {
		if data, err := g.cache.Get(ctx, cacheKey); err == nil {
			var s model.PlatformSettings
			if err := json.Unmarshal(data, &s); err == nil {
				return s, nil
			}
			// Unreadable cache entry: fall through to the database
			_ = g.cache.Delete(ctx, cacheKey)
		}
	}

	s, err := g.queries.GetOrCreatePlatformSettings(ctx)
	if err != nil {
		return model.PlatformSettings{}, fmt.Errorf("loading platform settings: %w", err)
	}

	g.fill(ctx, s)
	return s, nil
}

// UpdateParams holds the admin-editable settings fields.
type UpdateParams struct {
	AllowPublicSignup      bool
	AllowedSignupDomains   string
	RequireAuthToCreatePad bool
	UpdatedByID            sql.NullString
}

// Update validates and persists new settings, then refreshes the
// cache. The domain allow-list is canonicalized before storage; any
// invalid token rejects the whole update with *InvalidDomainsError.
func (g *Gateway) Update(ctx context.Context, arg UpdateParams) (model.PlatformSettings, error) {
	domains, invalid := policy.ParseAllowedDomains(arg.AllowedSignupDomains)
	if len(invalid) > 0 {
		return model.PlatformSettings{}, &InvalidDomainsError{Domains: invalid}
	}

	s, err := g.queries.UpdatePlatformSettings(ctx, store.UpdatePlatformSettingsParams{
		AllowPublicSignup:      arg.AllowPublicSignup,
		AllowedSignupDomains:   policy.SerializeAllowedDomains(domains),
		RequireAuthToCreatePad: arg.RequireAuthToCreatePad,
		UpdatedByID:            arg.UpdatedByID,
		UpdatedAt:              time.Now(),
	})
	if err != nil {
		return model.PlatformSettings{}, fmt.Errorf("updating platform settings: %w", err)
	}

	g.invalidate(ctx)
	g.fill(ctx, s)
	return s, nil
}

// invalidate drops the cached settings entry.
func (g *Gateway) invalidate(ctx context.Context) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Delete(ctx, cacheKey); err != nil {
		slog.Warn("invalidating settings cache", "error", err)
	}
}

// fill stores fresh settings in the cache. Failures are logged and
// ignored: the database remains the source of truth.
func (g *Gateway) fill(ctx context.Context, s model.PlatformSettings) {
	if g.cache == nil {
		return
	}
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := g.cache.Set(ctx, cacheKey, data, cacheTTL); err != nil {
		slog.Warn("caching settings", "error", err)
	}
}
