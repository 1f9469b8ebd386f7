package stats

import (
	"strings"
	"testing"

	"github.com/RishiKendai/textscan/internal/models"
	"github.com/RishiKendai/textscan/internal/similarity"
	"github.com/RishiKendai/textscan/internal/tokenize"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want models.Statistics
	}{
		{
			name: "three paragraphs",
			in:   "First paragraph.\n\nSecond paragraph.\n\nThird paragraph.",
			want: models.Statistics{Paragraphs: 3, Words: 6, Chars: 53, CharsNoSpaces: 46},
		},
		{
			name: "crlf paragraphs",
			in:   "one\r\n\r\ntwo",
			want: models.Statistics{Paragraphs: 2, Words: 2, Chars: 10, CharsNoSpaces: 6},
		},
		{
			name: "blank line with spaces",
			in:   "one\n   \t\ntwo\nstill two",
			want: models.Statistics{Paragraphs: 2, Words: 4, Chars: 22, CharsNoSpaces: 14},
		},
		{
			name: "empty",
			in:   "",
			want: models.Statistics{},
		},
		{
			name: "whitespace only keeps chars",
			in:   " \n\n\t ",
			want: models.Statistics{Paragraphs: 0, Words: 0, Chars: 5, CharsNoSpaces: 0},
		},
		{
			name: "single line",
			in:   "Hello, world!",
			want: models.Statistics{Paragraphs: 1, Words: 2, Chars: 13, CharsNoSpaces: 12},
		},
		{
			name: "trailing blank lines",
			in:   "only\n\n\n",
			want: models.Statistics{Paragraphs: 1, Words: 1, Chars: 7, CharsNoSpaces: 4},
		},
		{
			name: "leading blank lines add no paragraph",
			in:   "\n\nA",
			want: models.Statistics{Paragraphs: 1, Words: 1, Chars: 3, CharsNoSpaces: 1},
		},
		{
			name: "run of blank lines is one break",
			in:   "A\n\n\n\nB",
			want: models.Statistics{Paragraphs: 2, Words: 2, Chars: 6, CharsNoSpaces: 2},
		},
		{
			name: "multibyte counted as runes",
			in:   "привет мир",
			want: models.Statistics{Paragraphs: 1, Words: 2, Chars: 10, CharsNoSpaces: 9},
		},
		{
			name: "non-breaking space is not removed",
			in:   "a b",
			want: models.Statistics{Paragraphs: 1, Words: 2, Chars: 3, CharsNoSpaces: 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Calculate(tt.in); got != tt.want {
				t.Fatalf("Calculate(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

// The word count and the similarity word set must agree on what a word is.
func TestWordsAgreeWithSimilarityTokens(t *testing.T) {
	texts := []string{
		"Hello, world!",
		"snake_case kebab-case CamelCase",
		"v1.2.3 / 100% done…",
		"naïve café résumé",
		"tab\tseparated\nnew line",
	}
	for _, text := range texts {
		words := tokenize.Words(text)
		if got := Calculate(text).Words; got != len(words) {
			t.Errorf("Calculate(%q).Words = %d, tokenizer saw %d", text, got, len(words))
		}
		// A text compared with its own words joined by spaces must be identical.
		joined := strings.Join(words, " ")
		if res := similarity.CompareText(text, joined); !res.Identical {
			t.Errorf("CompareText(%q, %q) = %+v, want identical", text, joined, res)
		}
	}
}
