// Copyright (c) 2026 Antonio Anerao
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLoginProtection_AccountLockout(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{
		MaxFailedAttempts: 3,
		LockoutDuration:   time.Minute,
		AttemptWindow:     time.Minute,
	})

	email := "victim@example.com"

	if locked, _ := lp.IsAccountLocked(email); locked {
		t.Fatal("account should not start locked")
	}

	lp.RecordFailedAttempt(email)
	lp.RecordFailedAttempt(email)

	if remaining := lp.GetRemainingAttempts(email); remaining != 1 {
		t.Errorf("GetRemainingAttempts = %d, want 1", remaining)
	}

	locked, duration := lp.RecordFailedAttempt(email)
	if !locked {
		t.Fatal("third failure should lock the account")
	}
	if duration != time.Minute {
		t.Errorf("lock duration = %v, want 1m", duration)
	}

	if locked, _ := lp.IsAccountLocked(email); !locked {
		t.Error("account should be locked")
	}
}

func TestLoginProtection_SuccessClearsAttempts(t *testing.T) {
	lp := NewLoginProtection(DefaultLoginProtectionConfig())

	email := "user@example.com"
	lp.RecordFailedAttempt(email)
	lp.RecordFailedAttempt(email)

	lp.RecordSuccessfulLogin(email)

	if remaining := lp.GetRemainingAttempts(email); remaining != 5 {
		t.Errorf("GetRemainingAttempts = %d, want 5 after success", remaining)
	}
}

func TestLoginProtection_ExponentialBackoff(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{
		MaxFailedAttempts: 2,
		LockoutDuration:   time.Minute,
		AttemptWindow:     time.Hour,
	})

	email := "repeat@example.com"

	lp.RecordFailedAttempt(email)
	_, first := lp.RecordFailedAttempt(email)

	// Simulate expired lockout, then lock again
	lp.attemptsMu.Lock()
	lp.failedAttempts[email].lockedUntil = time.Now().Add(-time.Second)
	lp.attemptsMu.Unlock()

	lp.RecordFailedAttempt(email)
	_, second := lp.RecordFailedAttempt(email)

	if second != 2*first {
		t.Errorf("second lockout = %v, want double %v", second, first)
	}
}

func TestLoginProtection_Middleware_RateLimitsPost(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{
		IPRateLimit: 1,
		IPBurst:     1,
	})

	handler := lp.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	req.Header.Set("X-Real-IP", "203.0.113.7")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request: status = %d, want 429", rec.Code)
	}
}

func TestLoginProtection_Middleware_IgnoresGet(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{
		IPRateLimit: 0.001,
		IPBurst:     1,
	})

	handler := lp.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/login", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET request %d: status = %d, want 200", i, rec.Code)
		}
	}
}

func TestGlobalRateLimiter(t *testing.T) {
	rl := NewGlobalRateLimiter(1, 2)

	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/pads/abc", nil)
	req.Header.Set("X-Real-IP", "198.51.100.9")

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("burst exceeded: status = %d, want 429", rec.Code)
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"

	if ip := getClientIP(req); ip != "192.0.2.1:1234" {
		t.Errorf("getClientIP = %q, want RemoteAddr", ip)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.5")
	if ip := getClientIP(req); ip != "203.0.113.5" {
		t.Errorf("getClientIP = %q, want X-Forwarded-For", ip)
	}

	req.Header.Set("X-Real-IP", "203.0.113.6")
	if ip := getClientIP(req); ip != "203.0.113.6" {
		t.Errorf("getClientIP = %q, want X-Real-IP", ip)
	}
}
