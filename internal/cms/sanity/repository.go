// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package sanity

import (
	"context"
	"errors"
	"slices"

	"github.com/olegiv/urfield-go/internal/cms"
	"github.com/olegiv/urfield-go/internal/model"
)

var (
	_ cms.Repository = (*Client)(nil)
	_ cms.Uploader   = (*Client)(nil)
)

// GROQ queries.
const (
	authorProjection = `{..., "pictureURL": picture.asset->url}`

	queryAuthorByLogin = `*[_type == "author" && login_name == $login && ($year == "" || year._ref == $year)][0]` + authorProjection
	queryLoginTaken    = `count(*[_type == "author" && login_name == $login])`
	queryAuthorByID    = `*[_type == "author" && _id == $id][0]` + authorProjection
	queryArticleByID   = `*[_type == "article" && _id == $id][0]`
	queryExistingIDs   = `*[_type == $type && year._ref == $year && _id in $ids]._id`
	queryPending       = `*[_type in ["author", "article"] && verified != true && ($year == "" || year._ref == $year)] | order(_createdAt asc) {_id, _type, "title": coalesce(title, name), "yearId": year._ref}`
)

// authorRow is an author document with the picture URL of authorProjection.
type authorRow struct {
	model.Author
	PictureURL string `json:"pictureURL"`
}

func (r *authorRow) author() *model.Author {
	a := r.Author
	a.PictureURL = r.PictureURL
	return &a
}

// AuthorByLogin implements cms.Repository.
func (c *Client) AuthorByLogin(ctx context.Context, loginName, yearID string) (*model.Author, error) {
	var row authorRow
	err := c.Query(ctx, queryAuthorByLogin, map[string]any{"login": loginName, "year": yearID}, &row)
	if err != nil {
		return nil, err
	}
	return row.author(), nil
}

// LoginNameTaken implements cms.Repository.
func (c *Client) LoginNameTaken(ctx context.Context, loginName string) (bool, error) {
	var n int
	if err := c.Query(ctx, queryLoginTaken, map[string]any{"login": loginName}, &n); err != nil {
		if errors.Is(err, cms.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return n > 0, nil
}

// Author implements cms.Repository.
func (c *Client) Author(ctx context.Context, id string) (*model.Author, error) {
	var row authorRow
	if err := c.Query(ctx, queryAuthorByID, map[string]any{"id": id}, &row); err != nil {
		return nil, err
	}
	return row.author(), nil
}

// Article implements cms.Repository.
func (c *Client) Article(ctx context.Context, id string) (*model.Article, error) {
	var a model.Article
	if err := c.Query(ctx, queryArticleByID, map[string]any{"id": id}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// MissingReferences implements cms.Repository.
func (c *Client) MissingReferences(ctx context.Context, docType, yearID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var found []string
	err := c.Query(ctx, queryExistingIDs, map[string]any{"type": docType, "year": yearID, "ids": ids}, &found)
	if err != nil && !errors.Is(err, cms.ErrNotFound) {
		return nil, err
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
func (c *Client) Pending(ctx context.Context, yearID string) ([]cms.PendingDocument, error) {
	var docs []cms.PendingDocument
	err := c.Query(ctx, queryPending, map[string]any{"year": yearID}, &docs)
	if err != nil && !errors.Is(err, cms.ErrNotFound) {
		return nil, err
	}
	return docs, nil
}

// Commit implements cms.Repository.
func (c *Client) Commit(ctx context.Context, tx *cms.Transaction) ([]string, error) {
	if tx.Len() == 0 {
		return nil, nil
	}
	return c.Mutate(ctx, tx.Mutations())
}
