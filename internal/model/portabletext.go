// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Portable text styles, list kinds and decorators understood by the site.
const (
	StyleNormal     = "normal"
	StyleBlockquote = "blockquote"

	ListBullet = "bullet"
	ListNumber = "number"

	MarkStrong = "strong"
	MarkEm     = "em"
	MarkCode   = "code"

	typePTBlock = "block"
	typePTSpan  = "span"
	typePTLink  = "link"
)

// PortableText is one paragraph-level entry of a rich text field.
type PortableText struct {
	Type     string    `json:"_type"`
	Key      string    `json:"_key"`
	Style    string    `json:"style,omitempty"`
	ListItem string    `json:"listItem,omitempty"`
	Level    int       `json:"level,omitempty"`
	MarkDefs []MarkDef `json:"markDefs"`
	Children []Span    `json:"children"`
}

// Span is a run of text sharing the same marks.
type Span struct {
	Type  string   `json:"_type"`
	Key   string   `json:"_key"`
	Text  string   `json:"text"`
	Marks []string `json:"marks"`
}

// MarkDef is an annotation referenced from span marks by its key.
type MarkDef struct {
	Key       string `json:"_key"`
	Type      string `json:"_type"`
	Href      string `json:"href,omitempty"`
	NewWindow bool   `json:"target,omitempty"`
}

// NewTextBlock returns an empty paragraph with the given style.
func NewTextBlock(style string) PortableText {
	return PortableText{
		Type:     typePTBlock,
		Key:      NewKey(),
		Style:    style,
		MarkDefs: []MarkDef{},
		Children: []Span{},
	}
}

// NewSpan returns a text span carrying the given marks.
func NewSpan(text string, marks ...string) Span {
	if marks == nil {
		marks = []string{}
	}
	return Span{Type: typePTSpan, Key: NewKey(), Text: text, Marks: marks}
}

// NewLinkDef returns a link annotation pointing at href.
func NewLinkDef(href string) MarkDef {
	return MarkDef{Key: NewKey(), Type: typePTLink, Href: href, NewWindow: true}
}
