package similarity

import (
	"errors"
	"testing"

	"github.com/RishiKendai/textscan/internal/models"
)

func TestCompareText(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want models.ComparisonResult
	}{
		{"both empty", "", "", models.ComparisonResult{Identical: true, Similarity: 1.0}},
		{"both punctuation only", "...", "!?", models.ComparisonResult{Identical: true, Similarity: 1.0}},
		{"one empty", "x", "", models.ComparisonResult{Identical: false, Similarity: 0.0}},
		{"case and punctuation", "Hello, world!", "hello world", models.ComparisonResult{Identical: true, Similarity: 1.0}},
		{"jaccard", "apple banana cherry date", "apple banana grape lemon", models.ComparisonResult{Identical: false, Similarity: 0.333}},
		{"duplicate words collapse", "apple apple banana banana", "apple banana", models.ComparisonResult{Identical: true, Similarity: 1.0}},
		{"disjoint", "alpha beta", "gamma delta", models.ComparisonResult{Identical: false, Similarity: 0.0}},
		{"two thirds", "a b c", "a b", models.ComparisonResult{Identical: false, Similarity: 0.667}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompareText(tt.a, tt.b); got != tt.want {
				t.Fatalf("CompareText(%q, %q) = %+v, want %+v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCompareTextSelfAndSymmetry(t *testing.T) {
	texts := []string{
		"",
		"single",
		"The quick brown fox jumps over the lazy dog.",
		"Line one\n\nLine two, with commas; and semicolons",
		"über straße ÜBER",
	}
	for _, a := range texts {
		self := CompareText(a, a)
		if !self.Identical || self.Similarity != 1.0 {
			t.Errorf("CompareText(%q, itself) = %+v", a, self)
		}
		for _, b := range texts {
			if ab, ba := CompareText(a, b), CompareText(b, a); ab != ba {
				t.Errorf("asymmetric: (%q,%q)=%+v (%q,%q)=%+v", a, b, ab, b, a, ba)
			}
		}
	}
}

func TestCompareRejectsAbsentText(t *testing.T) {
	text := "hello"
	empty := ""

	if _, err := Compare(nil, &text); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Compare(nil, text) error = %v", err)
	}
	if _, err := Compare(&text, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Compare(text, nil) error = %v", err)
	}
	got, err := Compare(&empty, &empty)
	if err != nil || !got.Identical || got.Similarity != 1.0 {
		t.Fatalf("Compare(\"\", \"\") = %+v, %v", got, err)
	}
}

func TestJaccardIsExact(t *testing.T) {
	a := map[string]struct{}{"a": {}, "b": {}, "c": {}}
	b := map[string]struct{}{"b": {}, "c": {}, "d": {}, "e": {}, "f": {}, "g": {}}
	if got := Jaccard(a, b); got != 2.0/7.0 {
		t.Fatalf("Jaccard() = %v, want 2/7", got)
	}
	if got := CompareSets(a, b).Similarity; got != 0.286 {
		t.Fatalf("rounded similarity = %v, want 0.286", got)
	}
}
