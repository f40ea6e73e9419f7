// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package richtext

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/urfield-go/internal/model"
)

func blockText(b model.PortableText) string {
	var sb strings.Builder
	for _, s := range b.Children {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

func findSpan(t *testing.T, b model.PortableText, text string) model.Span {
	t.Helper()
	for _, s := range b.Children {
		if s.Text == text {
			return s
		}
	}
	t.Fatalf("no span %q in %+v", text, b.Children)
	return model.Span{}
}

func TestSanitizerText(t *testing.T) {
	s := NewSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Jane Doe", "Jane Doe"},
		{"tags stripped", "<b>Bold</b> & co", "Bold & co"},
		{"script removed", "<script>alert(1)</script>Hi", "Hi"},
		{"trimmed", "  padded  ", "padded"},
		{"quotes kept", `He said "hi"`, `He said "hi"`},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Text(tt.input))
		})
	}
}

func TestSanitizerLines(t *testing.T) {
	got := NewSanitizer().Lines([]string{"one", "  ", "<i>two</i>", ""})
	assert.Equal(t, []string{"one", "two"}, got)
}

func TestSanitizerPortableText(t *testing.T) {
	blocks := []model.PortableText{{
		MarkDefs: []model.MarkDef{
			{Key: "ok", Type: "link", Href: "https://example.org"},
			{Key: "bad", Type: "link", Href: "javascript:alert(1)"},
		},
		Children: []model.Span{
			{Text: "safe <b>link</b> ", Marks: []string{"ok"}},
			{Text: "unsafe", Marks: []string{"bad", "strong"}},
		},
	}}

	got := NewSanitizer().PortableText(blocks)
	require.Len(t, got, 1)

	b := got[0]
	assert.Equal(t, "block", b.Type)
	assert.NotEmpty(t, b.Key)
	require.Len(t, b.MarkDefs, 1)
	assert.Equal(t, "ok", b.MarkDefs[0].Key)
	assert.Equal(t, "safe link ", b.Children[0].Text)
	assert.Equal(t, []string{"strong"}, b.Children[1].Marks)
	assert.Equal(t, "span", b.Children[1].Type)
	assert.NotEmpty(t, b.Children[1].Key)
}

func TestConvertHeadingAndMarks(t *testing.T) {
	blocks := NewConverter().Convert("# Title\n\nHello **world** and _you_.")
	require.Len(t, blocks, 2)

	assert.Equal(t, "h1", blocks[0].Style)
	assert.Equal(t, "Title", blockText(blocks[0]))

	p := blocks[1]
	assert.Equal(t, model.StyleNormal, p.Style)
	assert.Equal(t, "Hello world and you.", blockText(p))
	assert.Equal(t, []string{model.MarkStrong}, findSpan(t, p, "world").Marks)
	assert.Equal(t, []string{model.MarkEm}, findSpan(t, p, "you").Marks)
}

func TestConvertHeadingLevelCapped(t *testing.T) {
	blocks := NewConverter().Convert("###### Deep")
	require.Len(t, blocks, 1)
	assert.Equal(t, "h4", blocks[0].Style)
}

func TestConvertLists(t *testing.T) {
	blocks := NewConverter().Convert("- one\n- two\n  - nested\n\n1. first\n2. second\n")
	require.Len(t, blocks, 5)

	want := []struct {
		text  string
		kind  string
		level int
	}{
		{"one", model.ListBullet, 1},
		{"two", model.ListBullet, 1},
		{"nested", model.ListBullet, 2},
		{"first", model.ListNumber, 1},
		{"second", model.ListNumber, 1},
	}
	for i, w := range want {
		assert.Equal(t, w.text, blockText(blocks[i]), "block %d text", i)
		assert.Equal(t, w.kind, blocks[i].ListItem, "block %d list kind", i)
		assert.Equal(t, w.level, blocks[i].Level, "block %d level", i)
	}
}

func TestConvertLinks(t *testing.T) {
	blocks := NewConverter().Convert("See [the site](https://example.org) or [this](javascript:alert(1)).")
	require.Len(t, blocks, 1)

	b := blocks[0]
	require.Len(t, b.MarkDefs, 1)
	def := b.MarkDefs[0]
	assert.Equal(t, "link", def.Type)
	assert.Equal(t, "https://example.org", def.Href)

	span := findSpan(t, b, "the site")
	assert.True(t, slices.Contains(span.Marks, def.Key))
	assert.Equal(t, "See the site or this.", blockText(b))
}

func TestConvertQuoteCodeAndHTML(t *testing.T) {
	src := "> quoted\n\n```\nx := 1\n```\n\n<div>raw</div>\n\nline one  \nline two"
	blocks := NewConverter().Convert(src)
	require.Len(t, blocks, 3)

	assert.Equal(t, model.StyleBlockquote, blocks[0].Style)
	assert.Equal(t, "quoted", blockText(blocks[0]))

	assert.Equal(t, "x := 1", blockText(blocks[1]))
	assert.Equal(t, []string{model.MarkCode}, blocks[1].Children[0].Marks)

	assert.Equal(t, "line one\nline two", blockText(blocks[2]))
}

func TestConvertEmpty(t *testing.T) {
	assert.Empty(t, NewConverter().Convert(""))
}

func TestSafeURL(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"https://example.org/path", true},
		{"http://example.org", true},
		{"mailto:team@example.org", true},
		{"javascript:alert(1)", false},
		{"/relative", false},
		{"https://", false},
		{"ftp://example.org", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeURL(tt.raw))
		})
	}
}
