package utils

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gosimple/slug"
	"golang.org/x/text/unicode/norm"
)

// Runs of anything that is not a letter, combining mark or digit
var nonUnicodeSlugChars = regexp.MustCompile(`[^\p{L}\p{M}\p{N}]+`)

// Slugify builds a URL-safe identifier. Text is transliterated to ASCII
// (diacritics folded, Cyrillic, Greek and CJK romanized), lower-cased and
// every run of other characters replaced by a single hyphen.
//
//	Slugify("the hobbit by J.R.R. Tolkien") // "the-hobbit-by-j-r-r-tolkien"
//
// Text with no transliteration keeps its letters, percent-encoded.
func Slugify(s string) string {
	s = norm.NFC.String(s)
	if ascii := slug.Make(s); ascii != "" {
		return ascii
	}
	return unicodeSlug(s)
}

// unicodeSlug hyphenates s without transliterating and escapes the result
// for use as a path segment.
func unicodeSlug(s string) string {
	s = strings.ToLower(s)
	s = strings.Trim(nonUnicodeSlugChars.ReplaceAllString(s, "-"), "-")
	return url.PathEscape(s)
}

// CanonicalSlug maps a slug taken from a URL back to its stored form. Routers
// hand over percent-decoded text, so a slug carrying non-ASCII letters is
// escaped again. ASCII slugs are returned unchanged.
func CanonicalSlug(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return url.PathEscape(strings.ToLower(norm.NFC.String(s)))
		}
	}
	return s
}

// BookSlug derives the slug of a book from its normalized title and author:
// "<title>-by-<author>". Each part is slugified on its own so that neither
// can vanish into a bare "by".
func BookSlug(normalizedTitle, author string) string {
	title := Slugify(normalizedTitle)
	by := Slugify(author)
	switch {
	case by == "":
		return title
	case title == "":
		return "by-" + by
	}
	return title + "-by-" + by
}
