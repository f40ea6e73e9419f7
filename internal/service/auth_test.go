// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/olegiv/urfield-go/internal/auth"
	"github.com/olegiv/urfield-go/internal/model"
	"github.com/olegiv/urfield-go/internal/testutil"
)

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jane := f.author(t, "jane", "secret", true, false)

	profile, err := f.auth.Login(ctx, LoginInput{LoginName: "jane", Password: "secret", YearID: testutil.YearID})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if profile.ID != jane.ID || profile.LoginName != "jane" || !profile.Verified {
		t.Errorf("profile = %+v", profile)
	}

	sess := f.sessions.sess
	if !sess.Authenticated() || sess.ID != jane.ID || sess.YearID != testutil.YearID || sess.IsAdmin {
		t.Errorf("session = %+v", sess)
	}
	if f.sessions.saves != 1 {
		t.Errorf("session saves = %d, want 1", f.sessions.saves)
	}
}

func TestLoginWithoutYearUsesAuthorYear(t *testing.T) {
	f := newFixture(t)
	f.author(t, "jane", "secret", true, false)

	if _, err := f.auth.Login(context.Background(), LoginInput{LoginName: " jane ", Password: "secret"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if f.sessions.sess.YearID != testutil.YearID {
		t.Errorf("session year = %q, want %q", f.sessions.sess.YearID, testutil.YearID)
	}
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t)
	f.author(t, "jane", "secret", true, false)
	f.author(t, "pending", "secret", false, false)

	tests := []struct {
		name string
		in   LoginInput
		want Kind
	}{
		{"missing password", LoginInput{LoginName: "jane"}, KindMissingFields},
		{"missing login", LoginInput{Password: "secret"}, KindMissingFields},
		{"unknown login", LoginInput{LoginName: "nobody", Password: "secret"}, KindNotFound},
		{"login is case sensitive", LoginInput{LoginName: "Jane", Password: "secret"}, KindNotFound},
		{"other year", LoginInput{LoginName: "jane", Password: "secret", YearID: testutil.OtherYearID}, KindNotFound},
		{"wrong password", LoginInput{LoginName: "jane", Password: "wrong"}, KindInvalidCredentials},
		{"unverified", LoginInput{LoginName: "pending", Password: "secret"}, KindNotVerified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.Login(context.Background(), tt.in)
			assertKind(t, err, tt.want)
			if f.sessions.sess.Authenticated() {
				t.Error("failed login must not open a session")
			}
		})
	}
}

func TestLoginWrongPasswordBeforeVerification(t *testing.T) {
	f := newFixture(t)
	f.author(t, "pending", "secret", false, false)

	_, err := f.auth.Login(context.Background(), LoginInput{LoginName: "pending", Password: "wrong"})
	assertKind(t, err, KindInvalidCredentials)
}

func TestLoginRehashesWeakHash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jane := f.author(t, "jane", "secret", true, false)

	strong := auth.NewHasherWithCost(bcrypt.MinCost + 1)
	svc := NewAuthService(f.repo, f.uploader, f.sessions, strong, testutil.TestLogger())

	if _, err := svc.Login(ctx, LoginInput{LoginName: "jane", Password: "secret"}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	stored, err := f.repo.Author(ctx, jane.ID)
	if err != nil {
		t.Fatalf("Author: %v", err)
	}
	if stored.PasswordHash == jane.PasswordHash {
		t.Fatal("password hash was not upgraded")
	}
	if strong.NeedsRehash(stored.PasswordHash) {
		t.Error("stored hash still needs a rehash")
	}
	if ok, _ := strong.Compare("secret", stored.PasswordHash); !ok {
		t.Error("upgraded hash does not match the password")
	}
}

func TestSignup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.auth.Signup(ctx, SignupInput{
		Name:      "Jane <b>Doe</b>",
		LoginName: "jane",
		Password:  "secret",
		YearID:    testutil.YearID,
		Email:     "jane@example.com",
		Institute: "Lab",
		Picture:   upload("avatar.png", "png-bytes"),
	})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if res.Message != SignupMessage {
		t.Errorf("message = %q", res.Message)
	}
	if f.sessions.sess.Authenticated() {
		t.Error("signup must not log the author in")
	}

	stored, err := f.repo.Author(ctx, res.ID)
	if err != nil {
		t.Fatalf("Author: %v", err)
	}
	if stored.Name != "Jane Doe" {
		t.Errorf("name = %q, want markup stripped", stored.Name)
	}
	if stored.Verified || stored.IsAdmin {
		t.Error("new authors must be unverified non-admins")
	}
	if stored.YearID() != testutil.YearID {
		t.Errorf("year = %q", stored.YearID())
	}
	if stored.PasswordHash == "secret" {
		t.Fatal("password stored in plain text")
	}
	if ok, _ := f.hasher.Compare("secret", stored.PasswordHash); !ok {
		t.Error("stored hash does not match the password")
	}
	if stored.Picture == nil || stored.Picture.Asset.Ref == "" {
		t.Error("picture reference missing")
	}
	if u, ok := f.uploader.byFilename("avatar.png"); !ok || u.Kind != model.AssetImage {
		t.Errorf("avatar upload = %+v, %v", u, ok)
	}

	// The new author cannot log in before verification.
	_, err = f.auth.Login(ctx, LoginInput{LoginName: "jane", Password: "secret"})
	assertKind(t, err, KindNotVerified)
}

func TestSignupValidation(t *testing.T) {
	f := newFixture(t)
	f.author(t, "taken", "secret", true, false)

	valid := SignupInput{Name: "Jane", LoginName: "jane", Password: "secret", YearID: testutil.YearID}

	tests := []struct {
		name   string
		mutate func(*SignupInput)
		want   Kind
	}{
		{"missing name", func(in *SignupInput) { in.Name = "  " }, KindMissingFields},
		{"markup only name", func(in *SignupInput) { in.Name = "<b></b>" }, KindMissingFields},
		{"missing login", func(in *SignupInput) { in.LoginName = "" }, KindMissingFields},
		{"missing password", func(in *SignupInput) { in.Password = "" }, KindMissingFields},
		{"missing year", func(in *SignupInput) { in.YearID = "" }, KindMissingFields},
		{"duplicate login", func(in *SignupInput) { in.LoginName = "taken" }, KindDuplicateLogin},
		{"password too long", func(in *SignupInput) { in.Password = strings.Repeat("x", 73) }, KindInvalidRequest},
		{"bad email", func(in *SignupInput) { in.Email = "not-an-email" }, KindInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := f.auth.Signup(context.Background(), in)
			assertKind(t, err, tt.want)
		})
	}
}

func TestSignupDuplicateAcrossYears(t *testing.T) {
	f := newFixture(t)
	f.author(t, "jane", "secret", true, false)

	_, err := f.auth.Signup(context.Background(), SignupInput{
		Name: "Jane", LoginName: "jane", Password: "secret", YearID: testutil.OtherYearID,
	})
	assertKind(t, err, KindDuplicateLogin)
}

func TestSignupUploadFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.uploader.failOn = map[string]bool{"avatar.png": true}

	_, err := f.auth.Signup(ctx, SignupInput{
		Name: "Jane", LoginName: "jane", Password: "secret", YearID: testutil.YearID,
		Picture: upload("avatar.png", "data"),
	})
	assertKind(t, err, KindUploadFailed)

	taken, err := f.repo.LoginNameTaken(ctx, "jane")
	if err != nil {
		t.Fatalf("LoginNameTaken: %v", err)
	}
	if taken {
		t.Error("author must not be created when the picture upload fails")
	}
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.loginAs(f.author(t, "jane", "secret", true, false))

	for i := 0; i < 2; i++ {
		if err := f.auth.Logout(ctx); err != nil {
			t.Fatalf("Logout %d: %v", i, err)
		}
	}
	if f.sessions.sess.Authenticated() {
		t.Error("session still authenticated after logout")
	}

	_, err := f.auth.CurrentSession(ctx, "")
	assertKind(t, err, KindUnauthorized)
}

func TestCurrentSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.CurrentSession(ctx, "")
	assertKind(t, err, KindUnauthorized)

	jane := f.author(t, "jane", "secret", true, false)
	f.loginAs(jane)

	sess, err := f.auth.CurrentSession(ctx, testutil.YearID)
	if err != nil {
		t.Fatalf("CurrentSession: %v", err)
	}
	if sess.ID != jane.ID {
		t.Errorf("session id = %q", sess.ID)
	}

	// Switching year invalidates the session.
	_, err = f.auth.CurrentSession(ctx, testutil.OtherYearID)
	assertKind(t, err, KindUnauthorized)
	if f.sessions.destroyed != 1 {
		t.Errorf("destroyed = %d, want 1", f.sessions.destroyed)
	}
	_, err = f.auth.CurrentSession(ctx, "")
	assertKind(t, err, KindUnauthorized)
}
