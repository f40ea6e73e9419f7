// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/olegiv/urfield-go/internal/middleware"
	"github.com/olegiv/urfield-go/internal/model"
	"github.com/olegiv/urfield-go/internal/service"
)

// VerifyHandler handles the admin verification endpoints.
type VerifyHandler struct {
	verify *service.VerifyService
	auth   *service.AuthService
	events *service.EventService
	logger *slog.Logger
}

// NewVerifyHandler creates a new VerifyHandler.
func NewVerifyHandler(verify *service.VerifyService, auth *service.AuthService, events *service.EventService, logger *slog.Logger) *VerifyHandler {
	return &VerifyHandler{verify: verify, auth: auth, events: events, logger: logger}
}

type verifyRequest struct {
	DocumentID string `json:"documentId"`
	Type       string `json:"type"`
}

// Verify handles POST /verify.
func (h *VerifyHandler) Verify(w http.ResponseWriter, r *http.Request) {
	// A malformed body verifies nothing; the service still reports a
	// missing admin session before the invalid request.
	var req verifyRequest
	_ = decodeJSON(r, &req)

	message, err := h.verify.Verify(r.Context(), service.VerifyInput{
		DocumentID: req.DocumentID,
		Type:       req.Type,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	if h.events != nil {
		sess, _ := h.auth.CurrentSession(r.Context(), "")
		_ = h.events.LogVerificationEvent(r.Context(), model.EventLevelInfo, "Document verified", sess.ID,
			middleware.ClientIP(r), middleware.RequestURL(r),
			map[string]any{"document_id": req.DocumentID, "type": req.Type})
	}

	writeJSONSuccess(w, http.StatusOK, map[string]any{"message": message})
}

// Pending handles GET /verify/pending.
func (h *VerifyHandler) Pending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.verify.Pending(r.Context(), r.URL.Query().Get("yearId"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSONSuccess(w, http.StatusOK, map[string]any{
		"authors":  pending.Authors,
		"articles": pending.Articles,
	})
}
