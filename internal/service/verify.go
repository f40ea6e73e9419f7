// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/olegiv/urfield-go/internal/cms"
	"github.com/olegiv/urfield-go/internal/model"
)

// VerifyInput names the document an admin verifies. Type is "author" or "article".
type VerifyInput struct {
	DocumentID string
	Type       string
}

// PendingResult lists the documents waiting for verification.
type PendingResult struct {
	Authors  []cms.PendingDocument `json:"authors"`
	Articles []cms.PendingDocument `json:"articles"`
}

// VerifyService lets admins verify authors and articles.
type VerifyService struct {
	repo     cms.Repository
	sessions SessionStore
	logger   *slog.Logger
}

// NewVerifyService creates a new VerifyService.
func NewVerifyService(repo cms.Repository, sessions SessionStore, logger *slog.Logger) *VerifyService {
	return &VerifyService{repo: repo, sessions: sessions, logger: logger}
}

// Verify marks the document verified. Verifying a verified document succeeds.
func (s *VerifyService) Verify(ctx context.Context, in VerifyInput) (string, error) {
	sess := s.sessions.Load(ctx)
	if !sess.Admin() {
		return "", ErrForbidden
	}

	id := strings.TrimSpace(in.DocumentID)
	if id == "" {
		return "", newError(KindInvalidRequest, "Document id is required")
	}
	if in.Type != model.TypeAuthor && in.Type != model.TypeArticle {
		return "", newError(KindInvalidRequest, fmt.Sprintf("Unknown document type %q", in.Type))
	}

	tx := cms.NewTransaction().Patch(id, map[string]any{"verified": true})
	if _, err := s.repo.Commit(ctx, tx); err != nil {
		if errors.Is(err, cms.ErrNotFound) {
			return "", newError(KindNotFound, "Document does not exist.")
		}
		s.logger.Error("failed to verify document", "document_id", id, "type", in.Type, "error", err)
		return "", wrapError(KindInternal, "", fmt.Errorf("verifying %s %s: %w", in.Type, id, err))
	}

	s.logger.Info("document verified", "document_id", id, "type", in.Type, "admin_id", sess.ID)

	return in.Type + " verified successfully.", nil
}

// Pending lists unverified authors and articles of yearID, or of every
// year when yearID is empty.
func (s *VerifyService) Pending(ctx context.Context, yearID string) (*PendingResult, error) {
	sess := s.sessions.Load(ctx)
	if !sess.Admin() {
		return nil, ErrForbidden
	}

	docs, err := s.repo.Pending(ctx, strings.TrimSpace(yearID))
	if err != nil {
		return nil, wrapError(KindInternal, "", fmt.Errorf("listing pending documents: %w", err))
	}

	res := &PendingResult{
		Authors:  []cms.PendingDocument{},
		Articles: []cms.PendingDocument{},
	}
	for _, d := range docs {
		switch d.Type {
		case model.TypeAuthor:
			res.Authors = append(res.Authors, d)
		case model.TypeArticle:
			res.Articles = append(res.Articles, d)
		}
	}
	return res, nil
}
