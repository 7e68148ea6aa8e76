// Copyright (c) 2026 Antonio Anerao
// SPDX-License-Identifier: GPL-3.0-or-later

package captcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// providerStub fakes the siteverify endpoint.
func providerStub(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.NotEmpty(t, r.PostForm.Get("secret"))
		assert.NotEmpty(t, r.PostForm.Get("response"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func newTestVerifier(url string) *Verifier {
	return New(Config{
		SecretKey:   "test-secret",
		SiteKey:     "test-site",
		Required:    true,
		MinScore:    0.5,
		VerifyURL:   url,
		Development: true,
	})
}

func TestVerifyNotRequired(t *testing.T) {
	v := New(Config{Required: false, Development: true})

	result, err := v.Verify(context.Background(), "", ActionSignup)
	require.NoError(t, err)
	assert.False(t, result.HasScore)
}

func TestVerifyMissingToken(t *testing.T) {
	v := newTestVerifier("http://127.0.0.1:1/unused")

	_, err := v.Verify(context.Background(), "   ", ActionSignup)
	assert.Equal(t, ReasonMissingToken, FailureReason(err))
}

func TestVerifyMissingSecret(t *testing.T) {
	v := New(Config{Required: true, Development: true})

	_, err := v.Verify(context.Background(), "token", ActionSignup)
	assert.Equal(t, ReasonMissingSecret, FailureReason(err))
}

func TestVerifySuccess(t *testing.T) {
	srv := providerStub(t, http.StatusOK, `{"success":true,"score":0.9,"action":"signup"}`)
	defer srv.Close()

	result, err := newTestVerifier(srv.URL).Verify(context.Background(), "token", ActionSignup)
	require.NoError(t, err)
	assert.True(t, result.HasScore)
	assert.InDelta(t, 0.9, result.Score, 0.001)
}

func TestVerifyProviderRejected(t *testing.T) {
	srv := providerStub(t, http.StatusOK, `{"success":false,"error-codes":["invalid-input-response"]}`)
	defer srv.Close()

	_, err := newTestVerifier(srv.URL).Verify(context.Background(), "token", ActionSignup)
	assert.Equal(t, ReasonProviderRejected, FailureReason(err))
}

func TestVerifyActionMismatch(t *testing.T) {
	srv := providerStub(t, http.StatusOK, `{"success":true,"score":0.9,"action":"signup"}`)
	defer srv.Close()

	// A signup token replayed on the login flow must be rejected.
	_, err := newTestVerifier(srv.URL).Verify(context.Background(), "token", ActionLogin)
	assert.Equal(t, ReasonInvalidAction, FailureReason(err))
}

func TestVerifyLowScore(t *testing.T) {
	srv := providerStub(t, http.StatusOK, `{"success":true,"score":0.2,"action":"signup"}`)
	defer srv.Close()

	_, err := newTestVerifier(srv.URL).Verify(context.Background(), "token", ActionSignup)
	assert.Equal(t, ReasonLowScore, FailureReason(err))
}

func TestVerifyMissingScoreDefaultsToZero(t *testing.T) {
	srv := providerStub(t, http.StatusOK, `{"success":true,"action":"signup"}`)
	defer srv.Close()

	_, err := newTestVerifier(srv.URL).Verify(context.Background(), "token", ActionSignup)
	assert.Equal(t, ReasonLowScore, FailureReason(err))
}

func TestVerifyProviderHTTPError(t *testing.T) {
	srv := providerStub(t, http.StatusBadGateway, `oops`)
	defer srv.Close()

	_, err := newTestVerifier(srv.URL).Verify(context.Background(), "token", ActionSignup)
	assert.Equal(t, ReasonProviderHTTPError, FailureReason(err))
}

func TestVerifyProviderUnreachable(t *testing.T) {
	// Port 1 should refuse connections.
	v := newTestVerifier("http://127.0.0.1:1/siteverify")

	_, err := v.Verify(context.Background(), "token", ActionSignup)
	assert.Equal(t, ReasonProviderUnreachable, FailureReason(err))
}

func TestMinScoreClamping(t *testing.T) {
	tests := []struct {
		name     string
		minScore float64
		want     float64
	}{
		{"in range", 0.7, 0.7},
		{"zero is valid", 0, 0},
		{"negative falls back", -1, DefaultMinScore},
		{"above one falls back", 1.5, DefaultMinScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(Config{MinScore: tt.minScore, Development: true})
			assert.Equal(t, tt.want, v.MinScore())
		})
	}
}

func TestFailureReasonNonCaptchaError(t *testing.T) {
	assert.Equal(t, Reason(""), FailureReason(context.Canceled))
	assert.Equal(t, Reason(""), FailureReason(nil))
}
