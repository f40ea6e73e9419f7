// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/urfield-go/internal/model"
)

// CreateEventParams holds the columns of a new event.
type CreateEventParams struct {
	Level      string
	Category   string
	Message    string
	AuthorID   sql.NullString
	IpAddress  string
	RequestUrl string
	Metadata   string
	CreatedAt  time.Time
}

const createEvent = `-- name: CreateEvent :one
INSERT INTO events (level, category, message, author_id, ip_address, request_url, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

// CreateEvent inserts an event and returns its id.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createEvent,
		arg.Level,
		arg.Category,
		arg.Message,
		arg.AuthorID,
		arg.IpAddress,
		arg.RequestUrl,
		arg.Metadata,
		arg.CreatedAt.UTC(),
	).Scan(&id)
	return id, err
}

const listEvents = `-- name: ListEvents :many
SELECT id, level, category, message, author_id, ip_address, request_url, metadata, created_at
FROM events
WHERE (?1 = '' OR category = ?1)
ORDER BY created_at DESC, id DESC
LIMIT ?2 OFFSET ?3
`

// ListEventsParams filters and pages ListEvents. An empty Category matches all.
type ListEventsParams struct {
	Category string
	Limit    int64
	Offset   int64
}

// ListEvents returns events, newest first.
func (q *Queries) ListEvents(ctx context.Context, arg ListEventsParams) ([]model.Event, error) {
	rows, err := q.db.QueryContext(ctx, listEvents, arg.Category, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []model.Event
	for rows.Next() {
		var (
			e        model.Event
			authorID sql.NullString
		)
		if err := rows.Scan(
			&e.ID,
			&e.Level,
			&e.Category,
			&e.Message,
			&authorID,
			&e.IPAddress,
			&e.RequestURL,
			&e.Metadata,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		e.AuthorID = authorID.String
		items = append(items, e)
	}
	return items, rows.Err()
}

const deleteOldEvents = `-- name: DeleteOldEvents :execrows
DELETE FROM events WHERE created_at < ?
`

// DeleteOldEvents removes events created before cutoff.
func (q *Queries) DeleteOldEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteOldEvents, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
