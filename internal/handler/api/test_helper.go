// Copyright (c) 2026 Antonio Anerao
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/antonioanerao/anotai/internal/auth"
	"github.com/antonioanerao/anotai/internal/captcha"
	"github.com/antonioanerao/anotai/internal/middleware"
	"github.com/antonioanerao/anotai/internal/model"
	"github.com/antonioanerao/anotai/internal/service"
	"github.com/antonioanerao/anotai/internal/session"
	"github.com/antonioanerao/anotai/internal/settings"
	"github.com/antonioanerao/anotai/internal/signup"
	"github.com/antonioanerao/anotai/internal/store"
	"github.com/antonioanerao/anotai/internal/testutil"
)

// passVerifier approves every captcha token in tests.
type passVerifier struct{}

func (passVerifier) Verify(context.Context, string, string) (captcha.Result, error) {
	return captcha.Result{}, nil
}

// failVerifier rejects every captcha token in tests.
type failVerifier struct {
	reason captcha.Reason
}

func (f failVerifier) Verify(context.Context, string, string) (captcha.Result, error) {
	return captcha.Result{}, &captcha.Error{Reason: f.reason}
}

// testApp bundles the handler and its collaborators for tests.
type testApp struct {
	db      *sql.DB
	queries *store.Queries
	handler *Handler
	router  http.Handler
}

// newTestApp builds a handler wired like the production router, with
// the captcha verifier swappable per test.
func newTestApp(t *testing.T, verifier signup.TokenVerifier) *testApp {
	t.Helper()

	db := testutil.TestDB(t)
	sessionManager := session.New(db, true)

	eventService := service.NewEventService(db)
	h := NewHandler(Deps{
		DB:       db,
		Sessions: sessionManager,
		Settings: settings.NewGateway(db, nil),
		Signup:   signup.NewService(db, verifier, auth.HashPassword, "root@example.com"),
		Accounts: service.NewAccountService(db, "root@example.com"),
		Events:   eventService,
		Verifier: verifier,
		Login:    nil,
	})

	r := chi.NewRouter()
	r.Use(sessionManager.LoadAndSave)
	r.Post("/api/signup", h.Signup)
	r.Post("/api/login", h.Login)
	r.Post("/api/logout", h.Logout)
	r.Get("/api/settings/public", h.PublicSettings)
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalLoadUser(sessionManager, db))
		r.Post("/api/pads", h.CreatePad)
		r.Get("/api/pads/{slug}", h.GetPad)
		r.Patch("/api/pads/{slug}", h.UpdatePad)
		r.Delete("/api/pads/{slug}", h.DeletePad)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(sessionManager))
		r.Use(middleware.LoadUser(sessionManager, db))
		r.Get("/api/me", h.Me)
		r.Get("/api/my/pads", h.MyPads)
		r.Patch("/api/account/password", h.ChangePassword)
	})
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(sessionManager))
		r.Use(middleware.LoadUser(sessionManager, db))
		r.Use(middleware.RequireAdminWithEventLog(eventService))
		r.Get("/users", h.AdminListUsers)
		r.Post("/users", h.AdminCreateUser)
		r.Get("/pads", h.AdminListPads)
		r.Delete("/pads/{id}", h.AdminDeletePad)
		r.Get("/settings", h.AdminGetSettings)
		r.Patch("/settings", h.AdminUpdateSettings)
		r.Get("/events", h.AdminListEvents)
	})
	r.Get("/health", h.Health)

	return &testApp{
		db:      db,
		queries: store.New(db),
		handler: h,
		router:  r,
	}
}

// doJSON performs a request against the test router, encoding body as
// JSON when non-nil and replaying any session cookies.
func (a *testApp) doJSON(t *testing.T, method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// decodeBody unmarshals a recorded JSON response into v.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()

	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

// login authenticates as the given user and returns the session cookies.
func (a *testApp) login(t *testing.T, email, password string) []*http.Cookie {
	t.Helper()

	rec := a.doJSON(t, http.MethodPost, "/api/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", rec.Code, rec.Body.String())
	}
	return rec.Result().Cookies()
}

// createUser inserts a user with a hashed password and returns it.
func (a *testApp) createUser(t *testing.T, email, password, role string) model.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	now := time.Now().UTC()
	user, err := a.queries.CreateUser(context.Background(), store.CreateUserParams{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

// setSettings overrides the platform settings singleton. The gateway
// runs uncached in tests, so direct writes are visible immediately.
func (a *testApp) setSettings(t *testing.T, allowSignup, requireAuth bool, domains string) {
	t.Helper()

	// First read creates the singleton row with defaults.
	if _, err := a.handler.settings.Get(context.Background()); err != nil {
		t.Fatalf("settings.Get: %v", err)
	}
	if _, err := a.db.Exec(
		"UPDATE platform_settings SET allow_public_signup = ?, require_auth_to_create_pad = ?, allowed_signup_domains = ? WHERE id = 1",
		allowSignup, requireAuth, domains,
	); err != nil {
		t.Fatalf("updating settings: %v", err)
	}
}
