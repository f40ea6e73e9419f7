// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"time"
)

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryAuth         = "auth"
	EventCategoryArticle      = "article"
	EventCategoryVerification = "verification"
	EventCategoryImport       = "import"
	EventCategorySystem       = "system"
)

// Event represents an event log entry.
type Event struct {
	ID         int64     `json:"id"`
	Level      string    `json:"level"`
	Category   string    `json:"category"`
	Message    string    `json:"message"`
	AuthorID   string    `json:"authorId,omitempty"`
	IPAddress  string    `json:"ipAddress,omitempty"`
	RequestURL string    `json:"requestUrl,omitempty"`
	Metadata   string    `json:"metadata"` // JSON object
	CreatedAt  time.Time `json:"createdAt"`
}
