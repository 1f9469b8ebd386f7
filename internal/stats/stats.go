package stats

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/RishiKendai/textscan/internal/models"
	"github.com/RishiKendai/textscan/internal/tokenize"
)

// paragraphBreak is a newline, optional blank space, and another newline.
// It matches both "\n\n" and "\r\n\r\n".
var paragraphBreak = regexp.MustCompile(`\n[\s\p{Zs}]*\n`)

var spaceRemover = strings.NewReplacer(" ", "", "\t", "", "\n", "", "\r", "")

// Calculate counts paragraphs, words and characters in text. Chars is the raw
// length in runes, so whitespace-only input has chars but no words.
func Calculate(text string) models.Statistics {
	return models.Statistics{
		Paragraphs:    Paragraphs(text),
		Words:         tokenize.Count(text),
		Chars:         utf8.RuneCountInString(text),
		CharsNoSpaces: utf8.RuneCountInString(spaceRemover.Replace(text)),
	}
}

// Paragraphs counts the non-blank segments between blank lines.
func Paragraphs(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	n := 0
	for _, segment := range paragraphBreak.Split(text, -1) {
		if strings.TrimSpace(segment) != "" {
			n++
		}
	}
	return n
}
