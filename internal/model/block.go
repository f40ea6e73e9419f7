// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"encoding/json"
	"fmt"
)

// Content block types.
const (
	BlockSubheading        = "subheading"
	BlockSectionTitle      = "sectionTitle"
	BlockText              = "textBlock"
	BlockList              = "list"
	BlockImage             = "imageObject"
	BlockPoster            = "posterObject"
	BlockPDF               = "pdfFile"
	BlockExternalLinksList = "externalLinksList"
)

// Block is one entry of an article body. The set of implementations is
// closed: Subheading, SectionTitle, TextBlock, List, ImageObject,
// PosterObject, PDFFile and ExternalLinksList.
type Block interface {
	BlockType() string
	BlockKey() string
	SetBlockKey(key string)
	isBlock()
}

// FileBlock is a block whose content is an uploaded asset.
type FileBlock interface {
	Block
	AssetKind() AssetKind
	AssetRef() *Reference
	SetAsset(assetID string)
}

// BlockHeader carries the discriminator and the stable key of a block.
type BlockHeader struct {
	Type string `json:"_type"`
	Key  string `json:"_key"`
}

// BlockType returns the block discriminator.
func (h *BlockHeader) BlockType() string { return h.Type }

// BlockKey returns the stable key correlating the block with its upload.
func (h *BlockHeader) BlockKey() string { return h.Key }

// SetBlockKey replaces the block key.
func (h *BlockHeader) SetBlockKey(key string) { h.Key = key }

// Subheading is a short heading inside the body.
type Subheading struct {
	BlockHeader
	Text string `json:"text"`
}

// SectionTitle starts a new section of the body.
type SectionTitle struct {
	BlockHeader
	Text string `json:"text"`
}

// TextBlock holds rich text. Markdown is accepted on input and converted to
// Content before the article is stored.
type TextBlock struct {
	BlockHeader
	Content  []PortableText `json:"content"`
	Markdown string         `json:"markdown,omitempty"`
}

// List is a bullet list of plain strings.
type List struct {
	BlockHeader
	Items []string `json:"items"`
}

// ImageObject is an inline image with an optional caption.
type ImageObject struct {
	BlockHeader
	Asset   *Reference `json:"asset,omitempty"`
	Caption string     `json:"caption,omitempty"`
}

// PosterObject is a large-format image displayed without a caption.
type PosterObject struct {
	BlockHeader
	Asset *Reference `json:"asset,omitempty"`
}

// PDFFile is an attached document with an optional caption.
type PDFFile struct {
	BlockHeader
	Asset   *Reference `json:"asset,omitempty"`
	Caption string     `json:"caption,omitempty"`
}

// ExternalLinksList is a group of link buttons.
type ExternalLinksList struct {
	BlockHeader
	Links []ExternalLink `json:"links"`
}

// ExternalLink is one button of an ExternalLinksList.
type ExternalLink struct {
	Key        string `json:"_key,omitempty"`
	ButtonText string `json:"buttonText"`
	URL        string `json:"url"`
}

func (*Subheading) isBlock()        {}
func (*SectionTitle) isBlock()      {}
func (*TextBlock) isBlock()         {}
func (*List) isBlock()              {}
func (*ImageObject) isBlock()       {}
func (*PosterObject) isBlock()      {}
func (*PDFFile) isBlock()           {}
func (*ExternalLinksList) isBlock() {}

// AssetKind implements FileBlock.
func (*ImageObject) AssetKind() AssetKind { return AssetImage }

// AssetRef implements FileBlock.
func (b *ImageObject) AssetRef() *Reference { return b.Asset }

// SetAsset implements FileBlock.
func (b *ImageObject) SetAsset(assetID string) {
	ref := Ref(assetID)
	b.Asset = &ref
}

// AssetKind implements FileBlock.
func (*PosterObject) AssetKind() AssetKind { return AssetImage }

// AssetRef implements FileBlock.
func (b *PosterObject) AssetRef() *Reference { return b.Asset }

// SetAsset implements FileBlock.
func (b *PosterObject) SetAsset(assetID string) {
	ref := Ref(assetID)
	b.Asset = &ref
}

// AssetKind implements FileBlock.
func (*PDFFile) AssetKind() AssetKind { return AssetFile }

// AssetRef implements FileBlock.
func (b *PDFFile) AssetRef() *Reference { return b.Asset }

// SetAsset implements FileBlock.
func (b *PDFFile) SetAsset(assetID string) {
	ref := Ref(assetID)
	b.Asset = &ref
}

// AsFileBlock returns b as a FileBlock when its content is an uploaded asset.
func AsFileBlock(b Block) (FileBlock, bool) {
	switch v := b.(type) {
	case *ImageObject:
		return v, true
	case *PosterObject:
		return v, true
	case *PDFFile:
		return v, true
	case *Subheading, *SectionTitle, *TextBlock, *List, *ExternalLinksList:
		return nil, false
	default:
		panic(fmt.Sprintf("model: unhandled block type %T", b))
	}
}

// UnknownBlockTypeError is returned when decoding a body that contains a
// block with an unsupported _type.
type UnknownBlockTypeError struct {
	Index int
	Type  string
}

func (e *UnknownBlockTypeError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("body block %d has no _type", e.Index)
	}
	return fmt.Sprintf("body block %d has unsupported type %q", e.Index, e.Type)
}

// Body is the ordered list of content blocks of an article.
type Body []Block

// UnmarshalJSON decodes each element into the concrete block type named by
// its _type field.
func (b *Body) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}

	body := make(Body, 0, len(raws))
	for i, raw := range raws {
		block, err := decodeBlock(i, raw)
		if err != nil {
			return err
		}
		body = append(body, block)
	}
	*b = body
	return nil
}

func decodeBlock(index int, raw json.RawMessage) (Block, error) {
	var header BlockHeader
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, fmt.Errorf("body block %d: %w", index, err)
	}

	var block Block
	switch header.Type {
	case BlockSubheading:
		block = &Subheading{}
	case BlockSectionTitle:
		block = &SectionTitle{}
	case BlockText:
		block = &TextBlock{}
	case BlockList:
		block = &List{}
	case BlockImage:
		block = &ImageObject{}
	case BlockPoster:
		block = &PosterObject{}
	case BlockPDF:
		block = &PDFFile{}
	case BlockExternalLinksList:
		block = &ExternalLinksList{}
	default:
		return nil, &UnknownBlockTypeError{Index: index, Type: header.Type}
	}

	if err := json.Unmarshal(raw, block); err != nil {
		return nil, fmt.Errorf("body block %d (%s): %w", index, header.Type, err)
	}
	return block, nil
}
