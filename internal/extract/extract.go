// Package extract turns uploaded bytes into the text that gets indexed.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	pdf "github.com/ledongthuc/pdf"
)

var ErrNoText = errors.New("extract: document has no text")

// Sniff returns the detected MIME type of data and whether it is plain text
// or one of its subtypes (csv, json, html, ...).
func Sniff(data []byte) (string, bool) {
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return detected.String(), true
		}
	}
	return detected.String(), false
}

// IsPDF reports whether data starts like a PDF document.
func IsPDF(data []byte) bool {
	return mimetype.Detect(data).Is("application/pdf")
}

// PDFText reads every page of a PDF and joins the plain text with newlines.
func PDFText(data []byte) (string, error) {
	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("new pdf reader: %w", err)
	}

	var builder strings.Builder
	for page := 1; page <= doc.NumPage(); page++ {
		p := doc.Page(page)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", page, err)
		}
		builder.WriteString(content)
		builder.WriteString("\n")
	}

	text := builder.String()
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}
