// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides general-purpose helpers: URL slug generation and
// login name derivation with Unicode transliteration.
package util

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxSlugLength is the longest slug the article page accepts.
const MaxSlugLength = 96

var (
	// slugRegex matches non-alphanumeric characters (except hyphens)
	slugRegex = regexp.MustCompile(`[^a-z0-9-]+`)
	// multipleHyphens matches multiple consecutive hyphens
	multipleHyphens = regexp.MustCompile(`-{2,}`)
	// loginRegex matches characters not allowed in a login name
	loginRegex = regexp.MustCompile(`[^a-z0-9.]+`)
	// whitespace matches runs of whitespace
	whitespace = regexp.MustCompile(`\s+`)
)

// symbolWords spells out symbols that carry meaning in a title.
var symbolWords = strings.NewReplacer(
	"&", " and ",
	"%", " percent ",
	"$", " dollar ",
	"€", " euro ",
	"£", " pound ",
	"<", " less ",
	">", " greater ",
	"|", " or ",
	"+", " plus ",
)

// transliterate folds accents and converts the remaining non-ASCII letters
// to their closest ASCII spelling.
func transliterate(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return unidecode.Unidecode(result)
}

// Slugify converts a title to a URL-friendly slug of at most MaxSlugLength
// characters: lowercase ASCII words joined by single hyphens.
func Slugify(s string) string {
	result := transliterate(symbolWords.Replace(s))

	// Convert to lowercase
	result = strings.ToLower(result)

	// Replace whitespace with hyphens
	result = whitespace.ReplaceAllString(result, "-")

	// Remove all non-alphanumeric characters except hyphens
	result = slugRegex.ReplaceAllString(result, "")

	// Replace multiple hyphens with single hyphen
	result = multipleHyphens.ReplaceAllString(result, "-")

	// Trim hyphens from start and end
	result = strings.Trim(result, "-")

	return TruncateSlug(result, MaxSlugLength)
}

// TruncateSlug shortens a slug to max characters, preferring to cut at a
// hyphen so no word is split.
func TruncateSlug(slug string, max int) string {
	if len(slug) <= max {
		return slug
	}
	cut := slug[:max]
	if slug[max] != '-' {
		if i := strings.LastIndexByte(cut, '-'); i > 0 {
			cut = cut[:i]
		}
	}
	return strings.Trim(cut, "-")
}

// LoginNameFromName derives a login name from a display name: lowercase,
// whitespace runs replaced by dots, everything outside [a-z0-9.] dropped.
func LoginNameFromName(name string) string {
	result := strings.ToLower(transliterate(strings.TrimSpace(name)))
	result = whitespace.ReplaceAllString(result, ".")
	return loginRegex.ReplaceAllString(result, "")
}
