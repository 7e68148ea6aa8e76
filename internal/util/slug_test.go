// Copyright (c) 2026 Antonio Anerao
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"Olá São Paulo", "ola-sao-paulo"},
		{"  spaces  everywhere  ", "spaces-everywhere"},
		{"UPPER-case", "upper-case"},
		{"a--b---c", "a-b-c"},
		{"--trim--", "trim"},
		{"semicolons; and, commas", "semicolons-and-commas"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Errorf("Slugify(%q) = %q; want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsValidSlug(t *testing.T) {
	tests := []struct {
		slug  string
		valid bool
	}{
		{"abc", true},
		{"my-pad-1", true},
		{"ab", false},
		{"", false},
		{"-leading", false},
		{"trailing-", false},
		{"double--hyphen", false},
		{"UpperCase", false},
		{"with space", false},
		{strings.Repeat("a", 80), true},
		{strings.Repeat("a", 81), false},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			if got := IsValidSlug(tt.slug); got != tt.valid {
				t.Errorf("IsValidSlug(%q) = %v; want %v", tt.slug, got, tt.valid)
			}
		})
	}
}

func TestRandomSlug(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		slug := RandomSlug()
		if len(slug) != 10 {
			t.Fatalf("RandomSlug length = %d; want 10", len(slug))
		}
		if !IsValidSlug(slug) {
			t.Fatalf("RandomSlug produced invalid slug %q", slug)
		}
		if strings.ContainsAny(slug, "lL") {
			t.Fatalf("RandomSlug contains ambiguous character: %q", slug)
		}
		seen[slug] = true
	}
	if len(seen) < 100 {
		t.Errorf("expected 100 distinct slugs, got %d", len(seen))
	}
}

func TestRandomSlugSuffix(t *testing.T) {
	if got := RandomSlugSuffix(); len(got) != 4 {
		t.Errorf("RandomSlugSuffix length = %d; want 4", len(got))
	}
}
