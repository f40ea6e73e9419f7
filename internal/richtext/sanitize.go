// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package richtext cleans user-supplied text and converts Markdown into
// portable text blocks.
package richtext

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/olegiv/urfield-go/internal/model"
)

// Sanitizer strips markup from plain-text fields. The site renders these
// fields as text, so no tag survives.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer creates a Sanitizer backed by bluemonday's strict policy.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Text removes all HTML from s and trims surrounding whitespace. Entities
// escaped by the policy are decoded again since the result is plain text.
func (s *Sanitizer) Text(in string) string {
	if in == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(in)))
}

// Inline removes all HTML from a run of text inside a paragraph. Surrounding
// whitespace is kept so adjacent spans still read correctly.
func (s *Sanitizer) Inline(in string) string {
	if in == "" {
		return ""
	}
	return html.UnescapeString(s.policy.Sanitize(in))
}

// PortableText sanitizes every span and drops link annotations whose target
// is not a safe URL.
func (s *Sanitizer) PortableText(blocks []model.PortableText) []model.PortableText {
	out := make([]model.PortableText, 0, len(blocks))
	for _, b := range blocks {
		if b.Key == "" {
			b.Key = model.NewKey()
		}
		if b.Type == "" {
			b.Type = "block"
		}

		dropped := make(map[string]bool)
		defs := make([]model.MarkDef, 0, len(b.MarkDefs))
		for _, def := range b.MarkDefs {
			if def.Type == "link" && !SafeURL(def.Href) {
				dropped[def.Key] = true
				continue
			}
			defs = append(defs, def)
		}
		b.MarkDefs = defs

		children := make([]model.Span, 0, len(b.Children))
		for _, span := range b.Children {
			span.Text = s.Inline(span.Text)
			if span.Key == "" {
				span.Key = model.NewKey()
			}
			if span.Type == "" {
				span.Type = "span"
			}
			marks := make([]string, 0, len(span.Marks))
			for _, m := range span.Marks {
				if !dropped[m] {
					marks = append(marks, m)
				}
			}
			span.Marks = marks
			children = append(children, span)
		}
		b.Children = children
		out = append(out, b)
	}
	return out
}

// Lines applies Text to every element and drops the ones left empty.
func (s *Sanitizer) Lines(in []string) []string {
	out := make([]string, 0, len(in))
	for _, line := range in {
		if clean := s.Text(line); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}
