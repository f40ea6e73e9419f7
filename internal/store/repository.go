// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/urfield-go/internal/cms"
	"github.com/olegiv/urfield-go/internal/model"
)

var _ cms.Repository = (*DocumentStore)(nil)

// DocumentStore is the local content repository. Documents keep the JSON
// shape of the hosted CMS so both backends are interchangeable.
type DocumentStore struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

// NewDocumentStore returns a repository on db. Migrate must have run.
func NewDocumentStore(db *sql.DB) *DocumentStore {
	return &DocumentStore{
		db:      db,
		queries: New(db),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// AuthorByLogin implements cms.Repository.
func (s *DocumentStore) AuthorByLogin(ctx context.Context, loginName, yearID string) (*model.Author, error) {
	row, err := s.queries.GetAuthorByLogin(ctx, loginName, yearID)
	if err != nil {
		return nil, notFound(err)
	}
	return decodeAuthor(row)
}

// LoginNameTaken implements cms.Repository.
func (s *DocumentStore) LoginNameTaken(ctx context.Context, loginName string) (bool, error) {
	n, err := s.queries.CountAuthorsByLogin(ctx, loginName)
	if err != nil {
		return false, fmt.Errorf("counting authors by login: %w", err)
	}
	return n > 0, nil
}

// Author implements cms.Repository.
func (s *DocumentStore) Author(ctx context.Context, id string) (*model.Author, error) {
	row, err := s.queries.GetAuthorByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return decodeAuthor(row)
}

// Article implements cms.Repository.
func (s *DocumentStore) Article(ctx context.Context, id string) (*model.Article, error) {
	doc, err := s.queries.GetDocument(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if doc.DocType != model.TypeArticle {
		return nil, cms.ErrNotFound
	}

	var a model.Article
	if err := json.Unmarshal(doc.Data, &a); err != nil {
		return nil, fmt.Errorf("decoding article %s: %w", id, err)
	}
	return &a, nil
}

// MissingReferences implements cms.Repository.
func (s *DocumentStore) MissingReferences(ctx context.Context, docType, yearID string, ids []string) ([]string, error) {
	found, err := s.queries.ListExistingIDs(ctx, docType, yearID, ids)
	if err != nil {
		return nil, fmt.Errorf("listing %s references: %w", docType, err)
	}

	var missing []string
	for _, id := range ids {
		if !slices.Contains(found, id) {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// Pending implements cms.Repository.
func (s *DocumentStore) Pending(ctx context.Context, yearID string) ([]cms.PendingDocument, error) {
	rows, err := s.queries.ListUnverified(ctx, yearID)
	if err != nil {
		return nil, fmt.Errorf("listing unverified documents: %w", err)
	}

	docs := make([]cms.PendingDocument, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, cms.PendingDocument{ID: r.ID, Type: r.DocType, Title: r.Title, YearID: r.YearID})
	}
	return docs, nil
}

// UnverifiedCounts returns the size of the moderation queue per year and type.
func (s *DocumentStore) UnverifiedCounts(ctx context.Context) ([]UnverifiedCount, error) {
	return s.queries.CountUnverified(ctx)
}

// Commit implements cms.Repository. All mutations run in one SQL
// transaction; a patch of an unknown id rolls everything back with
// cms.ErrNotFound.
func (s *DocumentStore) Commit(ctx context.Context, tx *cms.Transaction) ([]string, error) {
	if tx.Len() == 0 {
		return nil, nil
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	q := s.queries.WithTx(sqlTx)
	now := s.now()
	ids := make([]string, 0, tx.Len())

	for i, m := range tx.Mutations() {
		id, err := s.apply(ctx, q, m, now)
		if err != nil {
			return nil, fmt.Errorf("mutation %d (%s): %w", i, m.Kind, err)
		}
		ids = append(ids, id)
	}

	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return ids, nil
}

func (s *DocumentStore) apply(ctx context.Context, q *Queries, m cms.Mutation, now time.Time) (string, error) {
	switch m.Kind {
	case cms.MutationCreate, cms.MutationCreateOrReplace:
		data, err := json.Marshal(m.Document)
		if err != nil {
			return "", fmt.Errorf("encoding document: %w", err)
		}

		id := m.Document.DocumentID()
		params := InsertDocumentParams{DocType: m.Document.DocumentType(), Data: string(data), CreatedAt: now}

		if m.Kind == cms.MutationCreate {
			if id == "" {
				id = uuid.NewString()
			}
			params.ID = id
			return id, q.InsertDocument(ctx, params)
		}
		if id == "" {
			return "", errors.New("createOrReplace requires a document id")
		}
		params.ID = id
		return id, q.UpsertDocument(ctx, params)

	case cms.MutationPatch:
		set := make(map[string]string, len(m.Set))
		for field, value := range m.Set {
			encoded, err := json.Marshal(value)
			if err != nil {
				return "", fmt.Errorf("encoding field %s: %w", field, err)
			}
			set[field] = string(encoded)
		}
		n, err := q.PatchDocument(ctx, m.ID, set, now)
		if err != nil {
			return "", err
		}
		if n == 0 {
			return "", fmt.Errorf("patching %s: %w", m.ID, cms.ErrNotFound)
		}
		return m.ID, nil

	default:
		return "", fmt.Errorf("unknown mutation kind %q", m.Kind)
	}
}

func decodeAuthor(row AuthorRow) (*model.Author, error) {
	var a model.Author
	if err := json.Unmarshal(row.Data, &a); err != nil {
		return nil, fmt.Errorf("decoding author: %w", err)
	}
	a.PictureURL = row.PictureURL
	return &a, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return cms.ErrNotFound
	}
	return err
}
