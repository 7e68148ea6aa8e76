// Copyright (c) 2026 Antonio Anerao
// SPDX-License-Identifier: GPL-3.0-or-later

// Package policy implements the signup domain allow-list: parsing the
// admin-entered raw domain text into a canonical set and checking
// candidate emails against it.
package policy

import (
	"regexp"
	"strings"
)

var (
	// domainSeparators splits the raw admin input on newline, comma, or semicolon runs.
	domainSeparators = regexp.MustCompile(`[\n,;]+`)

	// domainShape validates a normalized domain: one or more labels of
	// [a-z0-9-]{1,63} followed by an alphabetic TLD of 2-63 characters.
	// Total length and the leading-hyphen rule are checked separately
	// since Go's regexp has no lookahead.
	domainShape = regexp.MustCompile(`^(?:[a-z0-9-]{1,63}\.)+[a-z]{2,63}$`)
)

// maxDomainLength is the DNS limit on a full domain name.
const maxDomainLength = 253

// NormalizeDomain canonicalizes a single domain token: trim,
// lowercase, and strip leading @ characters.
func NormalizeDomain(value string) string {
	return strings.TrimLeft(strings.ToLower(strings.TrimSpace(value)), "@")
}

// IsValidDomain reports whether a normalized token looks like a domain.
func IsValidDomain(domain string) bool {
	if domain == "" || len(domain) > maxDomainLength {
		return false
	}
	if domain[0] == '-' {
		return false
	}
	return domainShape.MatchString(domain)
}

// ParseAllowedDomains splits and normalizes the raw allow-list text.
// Valid unique domains land in domains; anything that survived
// normalization but fails the shape check is reported in
// invalidDomains so the caller can reject the whole update.
func ParseAllowedDomains(raw string) (domains, invalidDomains []string) {
	seen := make(map[string]bool)
	for _, token := range domainSeparators.Split(raw, -1) {
		domain := NormalizeDomain(token)
		if domain == "" || seen[domain] {
			continue
		}
		seen[domain] = true
		if IsValidDomain(domain) {
			domains = append(domains, domain)
		} else {
			invalidDomains = append(invalidDomains, domain)
		}
	}
	return domains, invalidDomains
}

// SerializeAllowedDomains joins a domain list back into its stored form.
func SerializeAllowedDomains(domains []string) string {
	return strings.Join(domains, "\n")
}

// EmailDomain extracts the normalized domain of an email address
// (the part after the last @). Returns "" if there is no @.
func EmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	return NormalizeDomain(email[at+1:])
}

// IsEmailAllowed checks an email against the allow-list. An empty
// list means every domain is allowed (open policy).
func IsEmailAllowed(email string, allowedDomains []string) bool {
	if len(allowedDomains) == 0 {
		return true
	}
	domain := EmailDomain(email)
	for _, allowed := range allowedDomains {
		if domain == allowed {
			return true
		}
	}
	return false
}

// NormalizeEmail canonicalizes an email address for storage and
// comparison: trim and lowercase.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
