// Copyright (c) 2026 Antonio Anerao
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides URL slug normalization, validation, and
// random slug generation for pads.
package util

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slug length bounds for pads.
const (
	SlugMinLength = 3
	SlugMaxLength = 80
)

// randomSlugAlphabet intentionally omits 'l' to avoid 1/l confusion in
// shared URLs.
const (
	randomSlugAlphabet = "abcdefghijkmnopqrstuvwxyz0123456789"
	randomSlugLength   = 10
)

var (
	// slugInvalidChars matches everything outside the slug charset
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9-]+`)
	// multipleHyphens matches runs of consecutive hyphens
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// Slugify converts arbitrary text to slug form: accents are
// decomposed and stripped, the result lowercased, and anything
// outside [a-z0-9-] collapsed into single hyphens.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)

	result = strings.ToLower(strings.TrimSpace(result))
	result = slugInvalidChars.ReplaceAllString(result, "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}

// IsValidSlug checks slug shape: 3-80 characters of [a-z0-9-], no
// leading/trailing hyphen, no consecutive hyphens.
func IsValidSlug(s string) bool {
	if len(s) < SlugMinLength || len(s) > SlugMaxLength {
		return false
	}
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-') {
			return false
		}
	}
	if s[0] == '-' || s[len(s)-1] == '-' {
		return false
	}
	return !strings.Contains(s, "--")
}

// RandomSlug generates a 10-character random slug.
func RandomSlug() string {
	return randomString(randomSlugLength)
}

// RandomSlugSuffix generates a short random suffix for slug collision
// fallbacks.
func RandomSlugSuffix() string {
	return randomString(4)
}

func randomString(n int) string {
	max := big.NewInt(int64(len(randomSlugAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing means the platform is broken
			panic(err)
		}
		b[i] = randomSlugAlphabet[idx.Int64()]
	}
	return string(b)
}
