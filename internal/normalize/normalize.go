// SPDX-License-Identifier: MIT

// Package normalize canonicalizes raw transcripts and screens them for
// edge cases (silence, noise, spam, oversized or foreign-language input)
// before any semantic work happens.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Token normalizes a string token for lexicon matching:
// - trims Unicode whitespace + invisible edge characters
// - lowercases for case-insensitive comparisons
func Token(s string) string {
	return strings.ToLower(strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) ||
			r == '\u200B' || // Zero Width Space
			r == '\u200C' || // Zero Width Non-Joiner
			r == '\u200D' || // Zero Width Joiner
			r == '\uFEFF' // Zero Width Non-Breaking Space (BOM)
	}))
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases s and strips diacritics so that dictated French matches
// lexicon entries regardless of accent fidelity ("préférée" == "preferee").
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, Token(s))
	if err != nil {
		return Token(s)
	}
	return folded
}

// Words splits s into folded word tokens, dropping punctuation.
func Words(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
}

// CollapseSpaces rewrites runs of whitespace as single spaces.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
