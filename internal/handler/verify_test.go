// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/urfield-go/internal/model"
)

func TestVerifyRequiresAdmin(t *testing.T) {
	env := newTestEnv(t, 5)
	pending := env.author(t, "pending", "secret-pass", false, false)
	env.author(t, "jane", "secret-pass", true, false)

	payload := map[string]string{"documentId": pending, "type": model.TypeAuthor}

	status, body := env.postJSON(t, "/verify", payload)
	require.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "forbidden", body["error"])

	env.login(t, "jane", "secret-pass")
	status, _ = env.postJSON(t, "/verify", payload)
	assert.Equal(t, http.StatusForbidden, status)

	// The payload is not looked at before the admin check.
	status, _ = env.postJSON(t, "/verify", "garbage")
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.get(t, "/verify/pending")
	assert.Equal(t, http.StatusForbidden, status)

	stored, err := env.repo.Author(context.Background(), pending)
	require.NoError(t, err)
	assert.False(t, stored.Verified)
}

func TestVerifyAuthorAsAdmin(t *testing.T) {
	env := newTestEnv(t, 5)
	pending := env.author(t, "pending", "secret-pass", false, false)
	env.author(t, "admin", "secret-pass", true, true)
	env.login(t, "admin", "secret-pass")

	status, body := env.get(t, "/verify/pending")
	require.Equal(t, http.StatusOK, status)
	authors := body["authors"].([]any)
	require.Len(t, authors, 1)
	assert.Equal(t, pending, authors[0].(map[string]any)["_id"])
	assert.Empty(t, body["articles"])

	status, body = env.postJSON(t, "/verify", map[string]string{"documentId": pending, "type": model.TypeAuthor})
	require.Equal(t, http.StatusOK, status, "%v", body)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "author verified successfully.", body["message"])

	stored, err := env.repo.Author(context.Background(), pending)
	require.NoError(t, err)
	assert.True(t, stored.Verified)

	status, body = env.get(t, "/verify/pending")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["authors"])

	events, err := env.events.ListEvents(context.Background(), model.EventCategoryVerification, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Metadata, pending)
}

func TestVerifyArticleAsAdmin(t *testing.T) {
	env := newTestEnv(t, 5)
	env.author(t, "jane", "secret-pass", true, false)
	env.author(t, "admin", "secret-pass", true, true)

	env.login(t, "jane", "secret-pass")
	status, body := env.postMultipart(t, "/articles", articleFields("Field notes"), map[string]filePart{
		"mainImage": {filename: "main.png", data: testPNG(t)},
	})
	require.Equal(t, http.StatusCreated, status, "%v", body)
	articleID := body["id"].(string)
	status, _ = env.postJSON(t, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, status)

	env.login(t, "admin", "secret-pass")
	status, body = env.postJSON(t, "/verify", map[string]string{"documentId": articleID, "type": model.TypeArticle})
	require.Equal(t, http.StatusOK, status, "%v", body)
	assert.Equal(t, "article verified successfully.", body["message"])

	stored, err := env.repo.Article(context.Background(), articleID)
	require.NoError(t, err)
	assert.True(t, stored.Verified)
}

func TestVerifyValidation(t *testing.T) {
	env := newTestEnv(t, 5)
	env.author(t, "admin", "secret-pass", true, true)
	env.login(t, "admin", "secret-pass")

	tests := []struct {
		name    string
		payload any
		status  int
		code    string
	}{
		{"unknown type", map[string]string{"documentId": "x", "type": "page"}, http.StatusBadRequest, "invalid_request"},
		{"missing id", map[string]string{"type": model.TypeAuthor}, http.StatusBadRequest, "invalid_request"},
		{"malformed body", "garbage", http.StatusBadRequest, "invalid_request"},
		{"missing document", map[string]string{"documentId": "missing", "type": model.TypeArticle}, http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.postJSON(t, "/verify", tt.payload)
			require.Equal(t, tt.status, status, "%v", body)
			assert.Equal(t, tt.code, body["error"])
		})
	}
}
