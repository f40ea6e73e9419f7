// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package richtext

import (
	"fmt"
	"html"
	"net/url"
	"slices"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/olegiv/urfield-go/internal/model"
)

// maxHeadingLevel is the deepest heading style the article page renders.
const maxHeadingLevel = 4

// Converter turns Markdown into portable text blocks.
type Converter struct {
	md goldmark.Markdown
}

// NewConverter creates a Converter using goldmark's CommonMark parser.
func NewConverter() *Converter {
	return &Converter{md: goldmark.New()}
}

// Convert parses src and returns one portable text entry per paragraph,
// heading, quote, code block and list item. Raw HTML is dropped.
func (c *Converter) Convert(src string) []model.PortableText {
	source := []byte(src)
	doc := c.md.Parser().Parse(text.NewReader(source))

	w := &ptWriter{source: source}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		w.block(n, "", 0)
	}
	return w.blocks
}

type ptWriter struct {
	source []byte
	blocks []model.PortableText
}

func (w *ptWriter) block(n ast.Node, style string, level int) {
	switch v := n.(type) {
	case *ast.Heading:
		w.emit(v, headingStyle(v.Level), "", 0)
	case *ast.Paragraph, *ast.TextBlock:
		if style == "" {
			style = model.StyleNormal
		}
		w.emit(v, style, "", 0)
	case *ast.Blockquote:
		for child := v.FirstChild(); child != nil; child = child.NextSibling() {
			w.block(child, model.StyleBlockquote, level)
		}
	case *ast.List:
		kind := model.ListBullet
		if v.IsOrdered() {
			kind = model.ListNumber
		}
		for item := v.FirstChild(); item != nil; item = item.NextSibling() {
			w.listItem(item, kind, level+1)
		}
	case *ast.FencedCodeBlock:
		w.code(v.Lines())
	case *ast.CodeBlock:
		w.code(v.Lines())
	}
}

func (w *ptWriter) listItem(item ast.Node, kind string, level int) {
	for child := item.FirstChild(); child != nil; child = child.NextSibling() {
		if _, nested := child.(*ast.List); nested {
			w.block(child, "", level)
			continue
		}
		w.emit(child, model.StyleNormal, kind, level)
	}
}

func (w *ptWriter) emit(n ast.Node, style, listKind string, level int) {
	b := model.NewTextBlock(style)
	b.ListItem = listKind
	b.Level = level
	w.inline(n, &b, nil)
	if len(b.Children) == 0 {
		return
	}
	last := &b.Children[len(b.Children)-1]
	last.Text = strings.TrimRight(last.Text, " \n")
	w.blocks = append(w.blocks, b)
}

func (w *ptWriter) code(lines *text.Segments) {
	var sb strings.Builder
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		sb.Write(line.Value(w.source))
	}
	content := strings.TrimRight(sb.String(), "\n")
	if content == "" {
		return
	}
	b := model.NewTextBlock(model.StyleNormal)
	b.Children = append(b.Children, model.NewSpan(content, model.MarkCode))
	w.blocks = append(w.blocks, b)
}

func (w *ptWriter) inline(parent ast.Node, b *model.PortableText, marks []string) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch v := n.(type) {
		case *ast.Text:
			s := string(v.Segment.Value(w.source))
			switch {
			case v.HardLineBreak():
				s += "\n"
			case v.SoftLineBreak():
				s += " "
			}
			appendSpan(b, s, marks)
		case *ast.String:
			appendSpan(b, string(v.Value), marks)
		case *ast.CodeSpan:
			appendSpan(b, w.plain(v), withMark(marks, model.MarkCode))
		case *ast.Emphasis:
			mark := model.MarkEm
			if v.Level >= 2 {
				mark = model.MarkStrong
			}
			w.inline(v, b, withMark(marks, mark))
		case *ast.Link:
			w.link(b, string(v.Destination), marks, func(m []string) { w.inline(v, b, m) })
		case *ast.AutoLink:
			label := string(v.Label(w.source))
			w.link(b, string(v.URL(w.source)), marks, func(m []string) { appendSpan(b, label, m) })
		case *ast.RawHTML:
			// dropped
		default:
			w.inline(v, b, marks)
		}
	}
}

// link annotates the spans written by body with a link definition when
// href is a safe absolute URL, and writes them unannotated otherwise.
func (w *ptWriter) link(b *model.PortableText, href string, marks []string, body func([]string)) {
	if !SafeURL(href) {
		body(marks)
		return
	}
	def := model.NewLinkDef(href)
	b.MarkDefs = append(b.MarkDefs, def)
	body(withMark(marks, def.Key))
}

func (w *ptWriter) plain(n ast.Node) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *ast.Text:
			sb.Write(v.Segment.Value(w.source))
		case *ast.String:
			sb.Write(v.Value)
		}
	}
	return sb.String()
}

// appendSpan adds text to the block, merging it into the previous span when
// both carry the same marks.
func appendSpan(b *model.PortableText, s string, marks []string) {
	s = html.UnescapeString(s)
	if s == "" {
		return
	}
	if n := len(b.Children); n > 0 && slices.Equal(b.Children[n-1].Marks, marks) {
		b.Children[n-1].Text += s
		return
	}
	b.Children = append(b.Children, model.NewSpan(s, slices.Clone(marks)...))
}

func withMark(marks []string, mark string) []string {
	out := make([]string, 0, len(marks)+1)
	out = append(out, marks...)
	return append(out, mark)
}

func headingStyle(level int) string {
	if level > maxHeadingLevel {
		level = maxHeadingLevel
	}
	return fmt.Sprintf("h%d", level)
}

// SafeURL reports whether raw is an absolute http, https or mailto URL.
func SafeURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https":
		return u.Host != ""
	case "mailto":
		return u.Opaque != ""
	default:
		return false
	}
}
