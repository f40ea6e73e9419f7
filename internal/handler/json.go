// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler provides the HTTP handlers of the URField Lab API.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/olegiv/urfield-go/internal/middleware"
	"github.com/olegiv/urfield-go/internal/service"
)

// maxJSONBody limits JSON request bodies.
const maxJSONBody = 1 << 20

// writeJSON writes data as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeJSONSuccess writes a JSON success response. data is merged with
// "success": true.
func writeJSONSuccess(w http.ResponseWriter, statusCode int, data map[string]any) {
	if data == nil {
		data = make(map[string]any)
	}
	data["success"] = true
	writeJSON(w, statusCode, data)
}

// statusForKind maps a failure kind to its HTTP status code.
func statusForKind(kind service.Kind) int {
	switch kind {
	case service.KindMissingFields, service.KindInvalidRequest, service.KindMissingMainImage:
		return http.StatusBadRequest
	case service.KindInvalidCredentials, service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindNotVerified, service.KindForbidden:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindDuplicateLogin:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError renders err as a failure body. Server-side failures are
// logged with their cause; clients only see the generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	kind := service.KindOf(err)
	status := statusForKind(kind)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
		)
	}
	middleware.WriteError(w, status, string(kind), service.PublicMessage(err))
}

// decodeJSON decodes a JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	body := io.LimitReader(r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return &service.Error{Kind: service.KindInvalidRequest, Err: err}
	}
	return nil
}

// kindIs reports whether err is a service failure of the given kind.
func kindIs(err error, kind service.Kind) bool {
	var e *service.Error
	return errors.As(err, &e) && e.Kind == kind
}
