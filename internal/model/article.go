// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Article defaults applied when the submitter leaves the field empty.
const (
	DefaultAuthorListPrefix = "By"
	DefaultButtonText       = "Read More"
)

// Article is a submission of one or more authors for an event year.
// Slug, ButtonText and Body are only set when HasBody is true.
type Article struct {
	ID               string      `json:"_id,omitempty"`
	Type             string      `json:"_type"`
	Title            string      `json:"title"`
	Year             Reference   `json:"year"`
	WorkingGroups    []Reference `json:"workingGroups"`
	Authors          []Reference `json:"authors"`
	AuthorListPrefix string      `json:"authorListPrefix,omitempty"`
	MainImage        *ImageRef   `json:"mainImage,omitempty"`
	Summary          string      `json:"summary"`
	HasBody          bool        `json:"hasBody"`
	Slug             *Slug       `json:"slug,omitempty"`
	ButtonText       string      `json:"buttonText,omitempty"`
	Body             Body        `json:"body,omitempty"`
	Verified         bool        `json:"verified"`
}

// DocumentID implements Document.
func (a *Article) DocumentID() string { return a.ID }

// DocumentType implements Document.
func (a *Article) DocumentType() string { return TypeArticle }

// YearID returns the id of the year the article belongs to.
func (a *Article) YearID() string { return a.Year.Ref }

// AuthorIDs returns the referenced author ids in order.
func (a *Article) AuthorIDs() []string { return RefIDs(a.Authors) }

// WorkingGroupIDs returns the referenced working group ids in order.
func (a *Article) WorkingGroupIDs() []string { return RefIDs(a.WorkingGroups) }
