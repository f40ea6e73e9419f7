// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service implements the author and article workflows: login,
// signup, article submission, admin verification and bulk import, plus the
// audit event log they write to.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mileusna/useragent"

	"github.com/olegiv/urfield-go/internal/model"
	"github.com/olegiv/urfield-go/internal/store"
)

// EventService provides event logging functionality.
type EventService struct {
	queries *store.Queries
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{
		queries: store.New(db),
	}
}

// LogEvent creates a new event log entry. An empty authorID is stored as NULL.
func (s *EventService) LogEvent(ctx context.Context, level, category, message, authorID, ipAddress, requestURL string, metadata map[string]any) error {
	var nullAuthorID sql.NullString
	if authorID != "" {
		nullAuthorID = sql.NullString{String: authorID, Valid: true}
	}

	metadataJSON := "{}"
	if metadata != nil {
		jsonBytes, err := json.Marshal(metadata)
		if err == nil {
			metadataJSON = string(jsonBytes)
		}
	}

	_, err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:      level,
		Category:   category,
		Message:    message,
		AuthorID:   nullAuthorID,
		IpAddress:  ipAddress,
		RequestUrl: requestURL,
		Metadata:   metadataJSON,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		slog.Error("failed to log event", "error", err, "category", category)
		return err
	}

	return nil
}

// LogAuthEvent logs an authentication-related event.
func (s *EventService) LogAuthEvent(ctx context.Context, level, message, authorID, ipAddress, requestURL string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryAuth, message, authorID, ipAddress, requestURL, metadata)
}

// LogArticleEvent logs an article submission event.
func (s *EventService) LogArticleEvent(ctx context.Context, level, message, authorID, ipAddress, requestURL string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryArticle, message, authorID, ipAddress, requestURL, metadata)
}

// LogVerificationEvent logs an admin verification event.
func (s *EventService) LogVerificationEvent(ctx context.Context, level, message, authorID, ipAddress, requestURL string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryVerification, message, authorID, ipAddress, requestURL, metadata)
}

// LogImportEvent logs a bulk import event.
func (s *EventService) LogImportEvent(ctx context.Context, level, message string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryImport, message, "", "", "", metadata)
}

// LogSystemEvent logs a system-related event.
func (s *EventService) LogSystemEvent(ctx context.Context, level, message string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategorySystem, message, "", "", "", metadata)
}

// ListEvents returns the most recent events of category, or of all
// categories when category is empty.
func (s *EventService) ListEvents(ctx context.Context, category string, limit, offset int) ([]model.Event, error) {
	return s.queries.ListEvents(ctx, store.ListEventsParams{
		Category: category,
		Limit:    int64(limit),
		Offset:   int64(offset),
	})
}

// DeleteOldEvents removes events older than the specified duration and
// returns how many were removed.
func (s *EventService) DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	return s.queries.DeleteOldEvents(ctx, cutoff)
}

// ClientMetadata describes the client of an auth event from its user agent.
func ClientMetadata(uaString string, extra map[string]any) map[string]any {
	ua := useragent.Parse(uaString)

	browser, os := ua.Name, ua.OS
	if browser == "" {
		browser = "Unknown"
	}
	if os == "" {
		os = "Unknown"
	}

	var device string
	switch {
	case ua.Mobile:
		device = "mobile"
	case ua.Tablet:
		device = "tablet"
	case ua.Bot:
		device = "bot"
	default:
		device = "desktop"
	}

	meta := map[string]any{
		"browser": browser,
		"os":      os,
		"device":  device,
	}
	for k, v := range extra {
		meta[k] = v
	}
	return meta
}
