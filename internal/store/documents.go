// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Document is a row of the documents table. Data holds the JSON document.
type Document struct {
	ID        string
	DocType   string
	Data      []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

const getDocument = `-- name: GetDocument :one
SELECT id, doc_type, data, created_at, updated_at FROM documents WHERE id = ?
`

// GetDocument returns the document with the given id or sql.ErrNoRows.
func (q *Queries) GetDocument(ctx context.Context, id string) (Document, error) {
	row := q.db.QueryRowContext(ctx, getDocument, id)
	var d Document
	err := row.Scan(&d.ID, &d.DocType, &d.Data, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

// InsertDocumentParams holds the columns of a new document.
type InsertDocumentParams struct {
	ID        string
	DocType   string
	Data      string
	CreatedAt time.Time
}

const insertDocument = `-- name: InsertDocument :exec
INSERT INTO documents (id, doc_type, data, created_at, updated_at)
VALUES (?1, ?2, json_set(?3, '$._id', ?1), ?4, ?4)
`

// InsertDocument creates a document and stamps its id into the JSON data.
// It fails when the id already exists.
func (q *Queries) InsertDocument(ctx context.Context, arg InsertDocumentParams) error {
	_, err := q.db.ExecContext(ctx, insertDocument, arg.ID, arg.DocType, arg.Data, arg.CreatedAt)
	return err
}

const upsertDocument = `-- name: UpsertDocument :exec
INSERT INTO documents (id, doc_type, data, created_at, updated_at)
VALUES (?1, ?2, json_set(?3, '$._id', ?1), ?4, ?4)
ON CONFLICT(id) DO UPDATE SET
    doc_type = excluded.doc_type,
    data = excluded.data,
    updated_at = excluded.updated_at
`

// UpsertDocument replaces the document with the given id, creating it when absent.
func (q *Queries) UpsertDocument(ctx context.Context, arg InsertDocumentParams) error {
	_, err := q.db.ExecContext(ctx, upsertDocument, arg.ID, arg.DocType, arg.Data, arg.CreatedAt)
	return err
}

// PatchDocument sets top-level fields of a document. Values are JSON
// encoded. It returns the number of rows changed, zero when id is unknown.
func (q *Queries) PatchDocument(ctx context.Context, id string, set map[string]string, now time.Time) (int64, error) {
	if len(set) == 0 {
		return 0, fmt.Errorf("patch of %s sets no fields", id)
	}

	fields := make([]string, 0, len(set))
	for field := range set {
		if !validFieldName(field) {
			return 0, fmt.Errorf("invalid patch field %q", field)
		}
		fields = append(fields, field)
	}
	slices.Sort(fields)

	var sb strings.Builder
	args := make([]any, 0, len(fields)+2)
	sb.WriteString("UPDATE documents SET data = json_set(data")
	for _, field := range fields {
		sb.WriteString(", '$.")
		sb.WriteString(field)
		sb.WriteString("', json(?)")
		args = append(args, set[field])
	}
	sb.WriteString("), updated_at = ? WHERE id = ?")
	args = append(args, now, id)

	res, err := q.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func validFieldName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// AuthorRow is an author document with its picture URL resolved.
type AuthorRow struct {
	Data       []byte
	PictureURL string
}

const authorSelect = `SELECT d.data, COALESCE(json_extract(p.data, '$.url'), '')
FROM documents d
LEFT JOIN documents p ON p.id = json_extract(d.data, '$.picture.asset._ref')
WHERE d.doc_type = 'author'`

const getAuthorByLogin = `-- name: GetAuthorByLogin :one
` + authorSelect + `
  AND json_extract(d.data, '$.login_name') = ?1
  AND (?2 = '' OR json_extract(d.data, '$.year._ref') = ?2)
ORDER BY d.created_at, d.rowid
LIMIT 1
`

// GetAuthorByLogin returns the first author with the login name, restricted
// to yearID unless it is empty.
func (q *Queries) GetAuthorByLogin(ctx context.Context, loginName, yearID string) (AuthorRow, error) {
	row := q.db.QueryRowContext(ctx, getAuthorByLogin, loginName, yearID)
	var a AuthorRow
	err := row.Scan(&a.Data, &a.PictureURL)
	return a, err
}

const getAuthorByID = `-- name: GetAuthorByID :one
` + authorSelect + `
  AND d.id = ?
`

// GetAuthorByID returns the author with the given id.
func (q *Queries) GetAuthorByID(ctx context.Context, id string) (AuthorRow, error) {
	row := q.db.QueryRowContext(ctx, getAuthorByID, id)
	var a AuthorRow
	err := row.Scan(&a.Data, &a.PictureURL)
	return a, err
}

const countAuthorsByLogin = `-- name: CountAuthorsByLogin :one
SELECT COUNT(*) FROM documents
WHERE doc_type = 'author' AND json_extract(data, '$.login_name') = ?
`

// CountAuthorsByLogin counts authors of every year using the login name.
func (q *Queries) CountAuthorsByLogin(ctx context.Context, loginName string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countAuthorsByLogin, loginName).Scan(&n)
	return n, err
}

// ListExistingIDs returns which of ids name a document of docType in yearID.
func (q *Queries) ListExistingIDs(ctx context.Context, docType, yearID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := `SELECT id FROM documents
WHERE doc_type = ? AND json_extract(data, '$.year._ref') = ? AND id IN (` + placeholders + `)`

	args := make([]any, 0, len(ids)+2)
	args = append(args, docType, yearID)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var found []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found = append(found, id)
	}
	return found, rows.Err()
}

// PendingRow is an unverified author or article.
type PendingRow struct {
	ID      string
	DocType string
	Title   string
	YearID  string
}

const listUnverified = `-- name: ListUnverified :many
SELECT id, doc_type,
       COALESCE(json_extract(data, '$.title'), json_extract(data, '$.name'), ''),
       COALESCE(json_extract(data, '$.year._ref'), '')
FROM documents
WHERE doc_type IN ('author', 'article')
  AND COALESCE(json_extract(data, '$.verified'), 0) = 0
  AND (?1 = '' OR json_extract(data, '$.year._ref') = ?1)
ORDER BY created_at, rowid
`

// ListUnverified lists unverified authors and articles, oldest first.
func (q *Queries) ListUnverified(ctx context.Context, yearID string) ([]PendingRow, error) {
	rows, err := q.db.QueryContext(ctx, listUnverified, yearID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []PendingRow
	for rows.Next() {
		var p PendingRow
		if err := rows.Scan(&p.ID, &p.DocType, &p.Title, &p.YearID); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// UnverifiedCount is the number of unverified documents of one type and year.
type UnverifiedCount struct {
	YearID  string
	DocType string
	Count   int64
}

const countUnverified = `-- name: CountUnverified :many
SELECT COALESCE(json_extract(data, '$.year._ref'), ''), doc_type, COUNT(*)
FROM documents
WHERE doc_type IN ('author', 'article')
  AND COALESCE(json_extract(data, '$.verified'), 0) = 0
GROUP BY 1, 2
ORDER BY 1, 2
`

// CountUnverified groups the moderation queue by year and document type.
func (q *Queries) CountUnverified(ctx context.Context) ([]UnverifiedCount, error) {
	rows, err := q.db.QueryContext(ctx, countUnverified)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []UnverifiedCount
	for rows.Next() {
		var c UnverifiedCount
		if err := rows.Scan(&c.YearID, &c.DocType, &c.Count); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}
