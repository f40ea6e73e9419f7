// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cms defines the contract between the workflows and the content
// repository holding years, working groups, authors, articles and assets.
// Implementations live in cms/sanity (hosted) and store (local SQLite).
package cms

import (
	"context"
	"errors"
	"io"

	"github.com/olegiv/urfield-go/internal/model"
)

// ErrNotFound is returned when a requested or patched document does not exist.
var ErrNotFound = errors.New("document not found")

// Repository reads and writes content documents.
type Repository interface {
	// AuthorByLogin finds the author with the exact login name. When yearID
	// is not empty only authors of that year match.
	AuthorByLogin(ctx context.Context, loginName, yearID string) (*model.Author, error)
	// LoginNameTaken reports whether any author, of any year, uses loginName.
	LoginNameTaken(ctx context.Context, loginName string) (bool, error)
	Author(ctx context.Context, id string) (*model.Author, error)
	Article(ctx context.Context, id string) (*model.Article, error)
	// MissingReferences returns the ids that do not name a document of
	// docType belonging to yearID, in input order.
	MissingReferences(ctx context.Context, docType, yearID string, ids []string) ([]string, error)
	// Pending lists unverified authors and articles, oldest first. An empty
	// yearID lists all years.
	Pending(ctx context.Context, yearID string) ([]PendingDocument, error)
	// Commit applies all mutations of tx atomically and returns the id of
	// each mutated document in mutation order.
	Commit(ctx context.Context, tx *Transaction) ([]string, error)
}

// Uploader stores binaries and returns an asset reference usable in documents.
type Uploader interface {
	Upload(ctx context.Context, kind model.AssetKind, r io.Reader, filename string) (*model.Asset, error)
}

// PendingDocument is an author or article waiting for verification.
type PendingDocument struct {
	ID     string `json:"_id"`
	Type   string `json:"_type"`
	Title  string `json:"title"`
	YearID string `json:"yearId"`
}
