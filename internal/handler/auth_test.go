// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/urfield-go/internal/model"
	"github.com/olegiv/urfield-go/internal/testutil"
)

func TestLoginLogoutFlow(t *testing.T) {
	env := newTestEnv(t, 5)
	id := env.author(t, "jane", "secret-pass", true, false)

	status, body := env.get(t, "/auth/user")
	require.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", body["error"])
	assert.Equal(t, "No user logged in", body["message"])

	status, body = env.postJSON(t, "/auth/login", map[string]string{
		"login_name": "jane",
		"password":   "secret-pass",
		"yearId":     testutil.YearID,
	})
	require.Equal(t, http.StatusOK, status, "%v", body)
	assert.Equal(t, id, body["_id"])
	assert.Equal(t, "jane", body["login_name"])
	assert.NotContains(t, body, "password")

	status, body = env.get(t, "/auth/user?yearId="+testutil.YearID)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, id, body["_id"])
	assert.Equal(t, true, body["isLoggedIn"])
	assert.Equal(t, false, body["isAdmin"])

	status, body = env.postJSON(t, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Successfully logged out", body["message"])

	status, _ = env.get(t, "/auth/user")
	assert.Equal(t, http.StatusUnauthorized, status)

	// Logout is idempotent.
	status, _ = env.postJSON(t, "/auth/logout", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestUserYearSwitchEndsSession(t *testing.T) {
	env := newTestEnv(t, 5)
	env.author(t, "jane", "secret-pass", true, false)
	env.login(t, "jane", "secret-pass")

	status, _ := env.get(t, "/auth/user?yearId="+testutil.OtherYearID)
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.get(t, "/auth/user?yearId="+testutil.YearID)
	assert.Equal(t, http.StatusUnauthorized, status, "session should have been destroyed")
}

func TestLoginErrors(t *testing.T) {
	env := newTestEnv(t, 100)
	env.author(t, "jane", "secret-pass", true, false)
	env.author(t, "pending", "secret-pass", false, false)

	tests := []struct {
		name     string
		payload  any
		status   int
		code     string
		contains string
	}{
		{"unknown author", map[string]string{"loginName": "nobody", "password": "x"}, http.StatusNotFound, "not_found", "Author does not exist."},
		{"wrong password", map[string]string{"loginName": "jane", "password": "wrong"}, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials."},
		{"not verified", map[string]string{"loginName": "pending", "password": "secret-pass"}, http.StatusForbidden, "not_verified", "verified"},
		{"missing fields", map[string]string{"loginName": "jane"}, http.StatusBadRequest, "missing_fields", ""},
		{"wrong year", map[string]string{"loginName": "jane", "password": "secret-pass", "yearId": testutil.OtherYearID}, http.StatusNotFound, "not_found", ""},
		{"malformed body", "not an object", http.StatusBadRequest, "invalid_request", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.postJSON(t, "/auth/login", tt.payload)
			require.Equal(t, tt.status, status, "%v", body)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.code, body["error"])
			if tt.contains != "" {
				assert.Contains(t, body["message"], tt.contains)
			}
		})
	}
}

func TestLoginLockout(t *testing.T) {
	env := newTestEnv(t, 2)
	env.author(t, "jane", "secret-pass", true, false)

	for i := 0; i < 2; i++ {
		status, _ := env.postJSON(t, "/auth/login", map[string]string{"loginName": "jane", "password": "wrong"})
		require.Equal(t, http.StatusUnauthorized, status)
	}

	// Locked, even with the right password.
	status, body := env.postJSON(t, "/auth/login", map[string]string{"loginName": "jane", "password": "secret-pass"})
	require.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "account_locked", body["error"])

	events, err := env.events.ListEvents(context.Background(), model.EventCategoryAuth, 10, 0)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, "Login attempt on locked account", events[0].Message)
	assert.Contains(t, events[0].Metadata, `"browser"`)
}

func TestSignup(t *testing.T) {
	env := newTestEnv(t, 5)

	fields := map[string]string{
		"name":      "Jane Doe",
		"loginName": "jane",
		"password":  "secret-pass",
		"yearId":    testutil.YearID,
		"email":     "jane@example.com",
		"institute": "Lab",
	}
	status, body := env.postMultipart(t, "/auth/signup", fields, map[string]filePart{
		"picture": {filename: "me.png", data: testPNG(t)},
	})
	require.Equal(t, http.StatusCreated, status, "%v", body)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Signup successful! Please log in.", body["message"])

	author, err := env.repo.Author(context.Background(), body["id"].(string))
	require.NoError(t, err)
	assert.False(t, author.Verified)
	assert.NotNil(t, author.Picture)
	assert.NotEqual(t, "secret-pass", author.PasswordHash)

	// Signup does not log in, and the new author is not verified yet.
	status, _ = env.get(t, "/auth/user")
	assert.Equal(t, http.StatusUnauthorized, status)
	status, body = env.postJSON(t, "/auth/login", map[string]string{"loginName": "jane", "password": "secret-pass"})
	assert.Equal(t, http.StatusForbidden, status, "%v", body)

	status, body = env.postMultipart(t, "/auth/signup", fields, nil)
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "duplicate_login", body["error"])
}

func TestSignupValidation(t *testing.T) {
	env := newTestEnv(t, 5)

	status, body := env.postMultipart(t, "/auth/signup", map[string]string{
		"name":     "Jane",
		"password": "secret-pass",
		"yearId":   testutil.YearID,
	}, nil)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "missing_fields", body["error"])

	status, body = env.postJSON(t, "/auth/signup", map[string]string{"name": "Jane"})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_request", body["error"])
}

func TestFormatWait(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{10, "less than a minute"},
		{60, "1 minute"},
		{150, "3 minutes"},
	}
	for _, tt := range tests {
		got := formatWait(time.Duration(tt.seconds) * time.Second)
		assert.Equal(t, tt.want, got)
	}
}
