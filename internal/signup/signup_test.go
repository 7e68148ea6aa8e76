// Copyright (c) 2026 Antonio Anerao
// SPDX-License-Identifier: GPL-3.0-or-later

package signup

import (
	"context"
	"testing"

	"github.com/antonioanerao/anotai/internal/captcha"
	"github.com/antonioanerao/anotai/internal/model"
	"github.com/antonioanerao/anotai/internal/store"
	"github.com/antonioanerao/anotai/internal/testutil"
)

// fakeVerifier returns a canned captcha result.
type fakeVerifier struct {
	err    error
	called int
}

func (f *fakeVerifier) Verify(_ context.Context, _, _ string) (captcha.Result, error) {
	f.called++
	if f.err != nil {
		return captcha.Result{}, f.err
	}
	return captcha.Result{Score: 0.9, HasScore: true}, nil
}

func fakeHash(password string) (string, error) {
	return "hashed:" + password, nil
}

func newTestService(t *testing.T, verifier TokenVerifier, primaryAdmin string) (*Service, *store.Queries) {
	t.Helper()
	db := testutil.TestDB(t)
	return NewService(db, verifier, fakeHash, primaryAdmin), store.New(db)
}

func openSettings() model.PlatformSettings {
	return model.PlatformSettings{AllowPublicSignup: true}
}

func validInput() Input {
	return Input{
		Name:            "Alice",
		Email:           "Alice@Example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		CaptchaToken:    "tok",
	}
}

func countUsers(t *testing.T, q *store.Queries) int {
	t.Helper()
	users, err := q.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	return len(users)
}

func TestAdmitSuccess(t *testing.T) {
	svc, q := newTestService(t, &fakeVerifier{}, "")

	user, err := svc.Admit(context.Background(), validInput(), "", openSettings())
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}

	if user.Email != "alice@example.com" {
		t.Errorf("email = %q; want normalized lowercase", user.Email)
	}
	if user.Role != model.RoleUser {
		t.Errorf("role = %q; want %q", user.Role, model.RoleUser)
	}
	if user.PasswordHash != "hashed:secret1" {
		t.Errorf("password hash = %q", user.PasswordHash)
	}
	if countUsers(t, q) != 1 {
		t.Error("expected exactly one user row")
	}
}

func TestAdmitPrimaryAdminGetsAdminRole(t *testing.T) {
	svc, _ := newTestService(t, &fakeVerifier{}, "Root@Example.com")

	input := validInput()
	input.Email = "root@example.com"

	user, err := svc.Admit(context.Background(), input, "", openSettings())
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if user.Role != model.RoleAdmin {
		t.Errorf("role = %q; want admin for the primary admin email", user.Role)
	}
}

func TestAdmitInvalidData(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
	}{
		{"bad email", func(in *Input) { in.Email = "not-an-email" }},
		{"short password", func(in *Input) { in.Password = "abc"; in.ConfirmPassword = "abc" }},
		{"long password", func(in *Input) {
			long := "0123456789012345678901234567890"
			in.Password = long
			in.ConfirmPassword = long
		}},
		{"confirmation mismatch", func(in *Input) { in.ConfirmPassword = "different1" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := &fakeVerifier{}
			svc, q := newTestService(t, verifier, "")

			input := validInput()
			tt.mutate(&input)

			_, err := svc.Admit(context.Background(), input, "", openSettings())
			if FailureReason(err) != ReasonInvalidData {
				t.Errorf("reason = %q; want invalid-data (err=%v)", FailureReason(err), err)
			}
			if verifier.called != 0 {
				t.Error("captcha must not run for structurally invalid input")
			}
			if countUsers(t, q) != 0 {
				t.Error("no user row may be created on failure")
			}
		})
	}
}

func TestAdmitActionTagMismatch(t *testing.T) {
	verifier := &fakeVerifier{}
	svc, q := newTestService(t, verifier, "")

	input := validInput()
	input.CaptchaAction = captcha.ActionLogin

	_, err := svc.Admit(context.Background(), input, "", openSettings())
	if FailureReason(err) != ReasonCaptchaFailed {
		t.Errorf("reason = %q; want captcha-failed", FailureReason(err))
	}
	if verifier.called != 0 {
		t.Error("mismatched action tag must fail before calling the provider")
	}
	if countUsers(t, q) != 0 {
		t.Error("no user row may be created on failure")
	}
}

func TestAdmitCaptchaFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Reason
	}{
		{"rejected", &captcha.Error{Reason: captcha.ReasonProviderRejected}, ReasonCaptchaFailed},
		{"low score", &captcha.Error{Reason: captcha.ReasonLowScore}, ReasonCaptchaFailed},
		{"invalid action", &captcha.Error{Reason: captcha.ReasonInvalidAction}, ReasonCaptchaFailed},
		{"missing secret", &captcha.Error{Reason: captcha.ReasonMissingSecret}, ReasonCaptchaUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, q := newTestService(t, &fakeVerifier{err: tt.err}, "")

			_, err := svc.Admit(context.Background(), validInput(), "", openSettings())
			if FailureReason(err) != tt.want {
				t.Errorf("reason = %q; want %q", FailureReason(err), tt.want)
			}
			if countUsers(t, q) != 0 {
				t.Error("no user row may be created on failure")
			}
		})
	}
}

func TestAdmitSignupDisabled(t *testing.T) {
	svc, q := newTestService(t, &fakeVerifier{}, "")

	ps := model.PlatformSettings{AllowPublicSignup: false}
	_, err := svc.Admit(context.Background(), validInput(), "", ps)
	if FailureReason(err) != ReasonSignupDisabled {
		t.Errorf("reason = %q; want signup-disabled", FailureReason(err))
	}
	if countUsers(t, q) != 0 {
		t.Error("no user row may be created on failure")
	}
}

func TestAdmitAdminBypassesPolicy(t *testing.T) {
	svc, _ := newTestService(t, &fakeVerifier{}, "")

	// Signup disabled and a domain list that would reject the email:
	// an admin session bypasses both.
	ps := model.PlatformSettings{
		AllowPublicSignup:    false,
		AllowedSignupDomains: "other.org",
	}

	user, err := svc.Admit(context.Background(), validInput(), model.RoleAdmin, ps)
	if err != nil {
		t.Fatalf("Admit with admin session: %v", err)
	}
	if user.Role != model.RoleUser {
		t.Errorf("created role = %q; want user", user.Role)
	}
}

func TestAdmitDomainPolicy(t *testing.T) {
	svc, q := newTestService(t, &fakeVerifier{}, "")

	ps := model.PlatformSettings{
		AllowPublicSignup:    true,
		AllowedSignupDomains: "example.com\nallowed.org",
	}

	if _, err := svc.Admit(context.Background(), validInput(), "", ps); err != nil {
		t.Fatalf("allowed domain rejected: %v", err)
	}

	input := validInput()
	input.Email = "bob@forbidden.net"
	_, err := svc.Admit(context.Background(), input, "", ps)
	if FailureReason(err) != ReasonDomainNotAllowed {
		t.Errorf("reason = %q; want domain-not-allowed", FailureReason(err))
	}
	if countUsers(t, q) != 1 {
		t.Error("only the allowed signup should have created a row")
	}
}

func TestAdmitEmailTaken(t *testing.T) {
	svc, q := newTestService(t, &fakeVerifier{}, "")
	ctx := context.Background()

	if _, err := svc.Admit(ctx, validInput(), "", openSettings()); err != nil {
		t.Fatalf("first Admit: %v", err)
	}

	// Same email, different case
	input := validInput()
	input.Email = "ALICE@example.COM"
	_, err := svc.Admit(ctx, input, "", openSettings())
	if FailureReason(err) != ReasonEmailTaken {
		t.Errorf("reason = %q; want email-taken", FailureReason(err))
	}
	if countUsers(t, q) != 1 {
		t.Error("duplicate signup must not create a second row")
	}
}

func TestCreateByAdmin(t *testing.T) {
	svc, _ := newTestService(t, &fakeVerifier{err: &captcha.Error{Reason: captcha.ReasonProviderRejected}}, "boss@example.com")

	// No captcha involved even though the verifier would fail.
	user, err := svc.CreateByAdmin(context.Background(), AdminCreateInput{
		Name:     "Bob",
		Email:    "Bob@Example.com",
		Password: "longenough",
	})
	if err != nil {
		t.Fatalf("CreateByAdmin: %v", err)
	}
	if user.Email != "bob@example.com" {
		t.Errorf("email = %q", user.Email)
	}
	if user.Role != model.RoleUser {
		t.Errorf("role = %q; want user", user.Role)
	}

	// Primary admin rule still applies
	boss, err := svc.CreateByAdmin(context.Background(), AdminCreateInput{
		Email:    "boss@example.com",
		Password: "longenough",
	})
	if err != nil {
		t.Fatalf("CreateByAdmin: %v", err)
	}
	if boss.Role != model.RoleAdmin {
		t.Errorf("primary admin role = %q; want admin", boss.Role)
	}
}

func TestCreateByAdminPasswordBounds(t *testing.T) {
	svc, _ := newTestService(t, &fakeVerifier{}, "")

	_, err := svc.CreateByAdmin(context.Background(), AdminCreateInput{
		Email:    "x@example.com",
		Password: "short",
	})
	if FailureReason(err) != ReasonInvalidData {
		t.Errorf("reason = %q; want invalid-data", FailureReason(err))
	}
}
