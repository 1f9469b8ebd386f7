package similarity

import (
	"errors"
	"math"

	"github.com/RishiKendai/textscan/internal/models"
	"github.com/RishiKendai/textscan/internal/tokenize"
)

// identicalEpsilon is the distance from 1.0 under which two word sets count as identical.
const identicalEpsilon = 0.001

var (
	// ErrInvalidArgument is returned when a text to compare is absent (nil).
	ErrInvalidArgument = errors.New("similarity: text is required")
	// ErrNotFound means a referenced file has no record or no content.
	ErrNotFound = errors.New("similarity: file not found")
	// ErrUnavailable means the file retrieval collaborator could not answer.
	ErrUnavailable = errors.New("similarity: file retrieval unavailable")
)

// Compare is CompareText for optional inputs. A nil text is a caller error;
// an empty text is a valid, empty document.
func Compare(a, b *string) (models.ComparisonResult, error) {
	if a == nil || b == nil {
		return models.ComparisonResult{}, ErrInvalidArgument
	}
	return CompareText(*a, *b), nil
}

// CompareText scores two texts by the Jaccard index of their lowercased word sets.
func CompareText(a, b string) models.ComparisonResult {
	return CompareSets(tokenize.Set(a), tokenize.Set(b))
}

// CompareSets scores two prepared word sets.
func CompareSets(setA, setB map[string]struct{}) models.ComparisonResult {
	switch {
	case len(setA) == 0 && len(setB) == 0:
		return models.ComparisonResult{Identical: true, Similarity: 1.0}
	case len(setA) == 0 || len(setB) == 0:
		return models.ComparisonResult{Identical: false, Similarity: 0.0}
	}

	j := Jaccard(setA, setB)
	return models.ComparisonResult{
		Identical:  math.Abs(j-1.0) < identicalEpsilon,
		Similarity: round3(j),
	}
}

// Jaccard returns |A ∩ B| / |A ∪ B| without rounding. Two empty sets score 1.
func Jaccard(setA, setB map[string]struct{}) float64 {
	small, large := setA, setB
	if len(small) > len(large) {
		small, large = large, small
	}

	shared := 0
	for word := range small {
		if _, ok := large[word]; ok {
			shared++
		}
	}

	union := len(setA) + len(setB) - shared
	if union == 0 {
		return 1.0
	}
	return float64(shared) / float64(union)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func setOf(content []byte) map[string]struct{} {
	return tokenize.Set(string(content))
}
