// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the content documents exchanged with the CMS
// (authors, articles, assets) together with the session projection and
// the event log record.
package model

import (
	"github.com/rs/xid"
)

// Document types stored in the content repository.
const (
	TypeAuthor       = "author"
	TypeArticle      = "article"
	TypeYear         = "year"
	TypeWorkingGroup = "workingGroup"
	TypeImageAsset   = "sanity.imageAsset"
	TypeFileAsset    = "sanity.fileAsset"
)

const (
	typeReference = "reference"
	typeImage     = "image"
	typeSlug      = "slug"
)

// Document is implemented by every top-level document the service writes.
type Document interface {
	DocumentID() string
	DocumentType() string
}

// Reference points at another document by id. Items of reference arrays
// carry a _key so the CMS can address them individually.
type Reference struct {
	Type string `json:"_type"`
	Ref  string `json:"_ref"`
	Key  string `json:"_key,omitempty"`
}

// Ref builds a plain reference to the document with the given id.
func Ref(id string) Reference {
	return Reference{Type: typeReference, Ref: id}
}

// KeyedRefs builds keyed references, one per id, preserving order.
func KeyedRefs(ids []string) []Reference {
	refs := make([]Reference, 0, len(ids))
	for _, id := range ids {
		ref := Ref(id)
		ref.Key = NewKey()
		refs = append(refs, ref)
	}
	return refs
}

// RefIDs returns the referenced ids in order.
func RefIDs(refs []Reference) []string {
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.Ref)
	}
	return ids
}

// NewKey returns a short unique key for an array item.
func NewKey() string {
	return xid.New().String()
}

// ImageRef is an image field: a wrapper around a reference to an image asset.
type ImageRef struct {
	Type  string    `json:"_type"`
	Asset Reference `json:"asset"`
}

// NewImageRef wraps the asset id in an image field.
func NewImageRef(assetID string) *ImageRef {
	return &ImageRef{Type: typeImage, Asset: Ref(assetID)}
}

// Slug is the URL segment of an article page.
type Slug struct {
	Type    string `json:"_type"`
	Current string `json:"current"`
}

// NewSlug wraps s in a slug field.
func NewSlug(s string) *Slug {
	return &Slug{Type: typeSlug, Current: s}
}
