package wordcloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/RishiKendai/textscan/internal/tokenize"
	"github.com/RishiKendai/textscan/internal/tracing"
)

const (
	DefaultBaseURL = "https://quickchart.io"

	// MaxWords is how many of the most frequent words go into a cloud.
	MaxWords = 60
	// MinWordLength drops short words (in runes) from the cloud.
	MinWordLength = 4

	maxImageBytes = 10 << 20
)

var (
	ErrEmptyText = errors.New("wordcloud: text is empty")
	// ErrUnavailable means the rendering service could not be reached or failed.
	ErrUnavailable = errors.New("wordcloud: rendering service unavailable")
)

// WordCount is one entry of the frequency ranking.
type WordCount struct {
	Word  string
	Count int
}

// Builder produces chart URLs for a rendering service rooted at baseURL.
type Builder struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, httpClient *http.Client) *Builder {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Transport: tracing.Transport(nil)}
	}
	return &Builder{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// TopWords ranks lowercased words of at least MinWordLength runes by
// frequency, highest first, ties in alphabetical order, at most limit entries.
func TopWords(text string, limit int) []WordCount {
	counts := make(map[string]int)
	tokenize.Each(strings.ToLower(text), func(w string) {
		if utf8.RuneCountInString(w) >= MinWordLength {
			counts[w]++
		}
	})

	ranked := make([]WordCount, 0, len(counts))
	for w, c := range counts {
		ranked = append(ranked, WordCount{Word: w, Count: c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Word < ranked[j].Word
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// URL returns the word cloud image URL for text. Text with no qualifying
// words gets a placeholder bar chart instead.
func (b *Builder) URL(text string) (string, error) {
	if text == "" {
		return "", ErrEmptyText
	}

	top := TopWords(text, MaxWords)
	if len(top) == 0 {
		return b.baseURL + "/chart?c={type:'bar',data:{labels:['No words found'],datasets:[{label:'Count',data:[0]}]}}", nil
	}

	parts := make([]string, len(top))
	for i, wc := range top {
		parts[i] = wc.Word + ":" + strconv.Itoa(wc.Count)
	}
	encoded := strings.ReplaceAll(url.QueryEscape(strings.Join(parts, " ")), "+", "%20")

	return fmt.Sprintf("%s/wordcloud?text=%s&format=png&width=600&height=600&fontScale=15&scale=linear",
		b.baseURL, encoded), nil
}

// Fetch downloads the rendered image behind chartURL.
func (b *Builder) Fetch(ctx context.Context, chartURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, chartURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return nil, "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status code %d from renderer", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}
