// Package tokenize defines the single word-character predicate shared by the
// statistics counter, the similarity engine and the word cloud builder.
package tokenize

import (
	"strings"
	"unicode"
)

// IsWordChar reports whether r belongs to a word: a letter, a decimal digit,
// a nonspacing mark or connector punctuation such as '_'.
func IsWordChar(r rune) bool {
	return unicode.IsLetter(r) ||
		unicode.Is(unicode.Nd, r) ||
		unicode.Is(unicode.Mn, r) ||
		unicode.Is(unicode.Pc, r)
}

// Each calls fn with every maximal run of word characters in text, in order.
func Each(text string, fn func(word string)) {
	start := -1
	for i, r := range text {
		if IsWordChar(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			fn(text[start:i])
			start = -1
		}
	}
	if start >= 0 {
		fn(text[start:])
	}
}

// Words returns the maximal runs of word characters in text.
func Words(text string) []string {
	var words []string
	Each(text, func(w string) { words = append(words, w) })
	return words
}

// Count returns len(Words(text)) without allocating the slice.
func Count(text string) int {
	n := 0
	Each(text, func(string) { n++ })
	return n
}

// Set returns the lowercased words of text as a set.
func Set(text string) map[string]struct{} {
	set := make(map[string]struct{})
	Each(text, func(w string) { set[strings.ToLower(w)] = struct{}{} })
	return set
}
