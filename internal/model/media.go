// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Supported MIME types
const (
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"
	MimeTypeGIF  = "image/gif"
	MimeTypeWebP = "image/webp"
	MimeTypePDF  = "application/pdf"
)

// AssetKind selects the asset endpoint an upload goes to.
type AssetKind string

// Asset kinds.
const (
	AssetImage AssetKind = "image"
	AssetFile  AssetKind = "file"
)

// Valid reports whether k is a known asset kind.
func (k AssetKind) Valid() bool {
	return k == AssetImage || k == AssetFile
}

// Asset is the result of an upload: the asset document id and its public URL.
type Asset struct {
	ID  string `json:"_id"`
	URL string `json:"url"`
}

// AssetDocument describes an uploaded binary stored by the local backend.
type AssetDocument struct {
	ID               string         `json:"_id"`
	Type             string         `json:"_type"`
	URL              string         `json:"url"`
	OriginalFilename string         `json:"originalFilename"`
	MimeType         string         `json:"mimeType"`
	Size             int64          `json:"size"`
	Metadata         *AssetMetadata `json:"metadata,omitempty"`
}

// AssetMetadata holds image dimensions.
type AssetMetadata struct {
	Dimensions Dimensions `json:"dimensions"`
}

// Dimensions of an image in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DocumentID implements Document.
func (d *AssetDocument) DocumentID() string { return d.ID }

// DocumentType implements Document.
func (d *AssetDocument) DocumentType() string { return d.Type }
