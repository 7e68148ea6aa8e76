// Copyright (c) 2026 Antonio Anerao
// SPDX-License-Identifier: GPL-3.0-or-later

// Package captcha verifies reCAPTCHA v3 tokens against the Google
// siteverify endpoint, enforcing action binding and a minimum score.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// reCAPTCHA verification endpoint
	defaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"
	// Timeout for verification requests
	verifyTimeout = 10 * time.Second
	// DefaultMinScore is used when no threshold is configured or the
	// configured value is out of the [0,1] range.
	DefaultMinScore = 0.5
)

// Well-known actions bound to verification tokens. A token issued for
// one flow must not be replayed on another.
const (
	ActionLogin  = "login"
	ActionSignup = "signup"
)

// Reason identifies why a verification failed.
type Reason string

// Verification failure reasons.
const (
	ReasonMissingSecret       Reason = "missing-secret"
	ReasonMissingToken        Reason = "missing-token"
	ReasonProviderUnreachable Reason = "provider-unreachable"
	ReasonProviderHTTPError   Reason = "provider-http-error"
	ReasonProviderRejected    Reason = "provider-rejected"
	ReasonInvalidAction       Reason = "invalid-action"
	ReasonLowScore            Reason = "low-score"
)

// Error is a typed verification failure.
type Error struct {
	Reason Reason
}

func (e *Error) Error() string {
	return "captcha verification failed: " + string(e.Reason)
}

// Result holds the provider score of a successful verification.
// HasScore is false when verification was bypassed (captcha not
// required in this deployment).
type Result struct {
	Score    float64
	HasScore bool
}

// Config configures a Verifier.
type Config struct {
	SecretKey string
	SiteKey   string
	// Required controls whether tokens are actually verified. When
	// false every call succeeds without a score. Deployments outside
	// production or without keys run with Required=false.
	Required bool
	// MinScore below which a verified token is rejected. Out-of-range
	// values fall back to DefaultMinScore.
	MinScore float64
	// VerifyURL overrides the provider endpoint (used in tests).
	VerifyURL string
	// Development suppresses the disabled-captcha startup warning.
	Development bool
}

// Verifier validates reCAPTCHA v3 tokens.
type Verifier struct {
	secretKey string
	required  bool
	minScore  float64
	verifyURL string
	client    *http.Client
}

// verifyResponse is the provider's siteverify JSON payload.
type verifyResponse struct {
	Success    bool     `json:"success"`
	Score      *float64 `json:"score"`
	Action     string   `json:"action"`
	ErrorCodes []string `json:"error-codes"`
}

// New creates a Verifier. A deployment that does not require captcha
// gets a pass-through verifier; that relaxation is logged outside
// development so it surfaces as a configuration concern rather than a
// silent skip.
func New(cfg Config) *Verifier {
	minScore := cfg.MinScore
	if minScore < 0 || minScore > 1 {
		minScore = DefaultMinScore
	}

	verifyURL := cfg.VerifyURL
	if verifyURL == "" {
		verifyURL = defaultVerifyURL
	}

	if !cfg.Required && !cfg.Development {
		slog.Warn("captcha verification is disabled; signup and login are not protected",
			"configured", cfg.SecretKey != "" && cfg.SiteKey != "")
	}

	return &Verifier{
		secretKey: strings.TrimSpace(cfg.SecretKey),
		required:  cfg.Required,
		minScore:  minScore,
		verifyURL: verifyURL,
		client:    &http.Client{Timeout: verifyTimeout},
	}
}

// Required reports whether tokens are actually verified.
func (v *Verifier) Required() bool {
	return v.required
}

// MinScore returns the effective score threshold.
func (v *Verifier) MinScore() float64 {
	return v.minScore
}

// Verify checks a client token against the provider and enforces that
// the token was issued for expectedAction. When the verifier is not
// required it short-circuits to success with no score. Failures carry
// a typed *Error reason.
func (v *Verifier) Verify(ctx context.Context, token, expectedAction string) (Result, error) {
	if !v.required {
		return Result{}, nil
	}

	if v.secretKey == "" {
		return Result{}, &Error{Reason: ReasonMissingSecret}
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return Result{}, &Error{Reason: ReasonMissingToken}
	}

	form := url.Values{}
	form.Set("secret", v.secretKey)
	form.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("building captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return Result{}, &Error{Reason: ReasonProviderUnreachable}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, &Error{Reason: ReasonProviderHTTPError}
	}

	var payload verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, &Error{Reason: ReasonProviderUnreachable}
	}

	if !payload.Success {
		slog.Warn("captcha rejected by provider", "error_codes", payload.ErrorCodes)
		return Result{}, &Error{Reason: ReasonProviderRejected}
	}

	if payload.Action != expectedAction {
		slog.Warn("captcha action mismatch",
			"expected", expectedAction, "got", payload.Action)
		return Result{}, &Error{Reason: ReasonInvalidAction}
	}

	score := 0.0
	if payload.Score != nil {
		score = *payload.Score
	}
	if score < v.minScore {
		return Result{}, &Error{Reason: ReasonLowScore}
	}

	return Result{Score: score, HasScore: true}, nil
}

// FailureReason extracts the typed reason from a Verify error. Returns
// "" when the error carries no reason.
func FailureReason(err error) Reason {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Reason
	}
	return ""
}
