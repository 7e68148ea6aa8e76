// Copyright (c) 2026 Antonio Anerao
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cache provides the caching backends used by the settings
// gateway: an in-memory cache for single-instance deployments and a
// Redis cache for multi-instance ones.
package cache

import (
	"context"
	"time"
)

// Cache is the interface all backends implement. Implementations must
// be safe for concurrent use. Values are []byte so the same interface
// works for both in-memory and Redis backends.
type Cache interface {
	// Get retrieves a value. Returns ErrCacheMiss if the key is
	// absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL. A zero TTL uses the
	// backend's default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Error is the error type for cache operations.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrCacheMiss indicates the key was not found or has expired.
	ErrCacheMiss Error = "cache miss"

	// ErrCacheClosed indicates the cache has been closed.
	ErrCacheClosed Error = "cache closed"
)
