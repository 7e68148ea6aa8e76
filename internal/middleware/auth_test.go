// Copyright (c) 2026 Antonio Anerao
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/antonioanerao/anotai/internal/model"
	"github.com/antonioanerao/anotai/internal/session"
	"github.com/antonioanerao/anotai/internal/store"
	"github.com/antonioanerao/anotai/internal/testutil"
)

func seedUser(t *testing.T, q *store.Queries, email, role string) model.User {
	t.Helper()
	now := time.Now().UTC()
	user, err := q.CreateUser(context.Background(), store.CreateUserParams{
		Email:        email,
		PasswordHash: "x",
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

func TestAuth_NoSession(t *testing.T) {
	db := testutil.TestDB(t)
	sm := session.New(db, true)

	handler := sm.LoadAndSave(Auth(sm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/my/pads", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuth_WithSession(t *testing.T) {
	db := testutil.TestDB(t)
	sm := session.New(db, true)

	handler := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sm.Put(r.Context(), session.KeyUserID, "user-1")

		inner := Auth(sm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		inner.ServeHTTP(w, r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/my/pads", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestLoadUser_PutsUserInContext(t *testing.T) {
	db := testutil.TestDB(t)
	sm := session.New(db, true)
	user := seedUser(t, store.New(db), "reader@example.com", model.RoleUser)

	var gotID string
	handler := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sm.Put(r.Context(), session.KeyUserID, user.ID)

		inner := LoadUser(sm, db)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotID = GetUserID(r)
		}))
		inner.ServeHTTP(w, r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if gotID != user.ID {
		t.Errorf("GetUserID = %q, want %q", gotID, user.ID)
	}
}

func TestLoadUser_DeletedUserRejected(t *testing.T) {
	db := testutil.TestDB(t)
	sm := session.New(db, true)

	handler := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sm.Put(r.Context(), session.KeyUserID, "no-such-user")

		inner := LoadUser(sm, db)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		inner.ServeHTTP(w, r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestOptionalLoadUser_MissingUserContinues(t *testing.T) {
	db := testutil.TestDB(t)
	sm := session.New(db, true)

	handler := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sm.Put(r.Context(), session.KeyUserID, "no-such-user")

		inner := OptionalLoadUser(sm, db)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetUser(r) != nil {
				t.Error("expected no user in context")
			}
			w.WriteHeader(http.StatusOK)
		}))
		inner.ServeHTTP(w, r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name       string
		user       *model.User
		wantStatus int
	}{
		{"no user", nil, http.StatusUnauthorized},
		{"regular user", &model.User{ID: "u1", Role: model.RoleUser}, http.StatusForbidden},
		{"admin", &model.User{ID: "u2", Role: model.RoleAdmin}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireAdmin()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
			if tt.user != nil {
				ctx := context.WithValue(req.Context(), ContextKeyUser, *tt.user)
				req = req.WithContext(ctx)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestGetUserHelpers_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	if GetUser(req) != nil {
		t.Error("GetUser should return nil without context user")
	}
	if GetUserID(req) != "" {
		t.Error("GetUserID should return empty string")
	}
	if GetUserIDPtr(req) != nil {
		t.Error("GetUserIDPtr should return nil")
	}
	if GetUserEmail(req) != "" {
		t.Error("GetUserEmail should return empty string")
	}
}
