// Package textutil holds the string normalization shared by the pipeline
// stages: whitespace collapsing, punctuation stripping and diacritic folding.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Letters that NFD does not decompose but that should still compare equal
// to their plain ASCII forms ("Bergen Kjøtt" vs "bergen kjott").
var foldReplacer = strings.NewReplacer(
	"ø", "o", "Ø", "o",
	"æ", "ae", "Æ", "ae",
	"đ", "d", "Đ", "d",
	"ł", "l", "Ł", "l",
	"ß", "ss",
)

// Collapse trims s and replaces every run of whitespace with a single space.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Fold lowercases s and strips diacritics so that comparisons are
// case- and accent-insensitive.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	s = foldReplacer.Replace(strings.ToLower(s))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeWords lowercases s, turns every non letter/digit rune into a
// space and collapses the result. Used for title and venue comparison.
func NormalizeWords(s string) string {
	s = norm.NFKC.String(strings.ToLower(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte(' ')
	}
	return Collapse(b.String())
}

// FirstNonEmpty returns the first value that is not blank after trimming.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
