package extract

import (
	"strings"
	"testing"
)

func TestSniff(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		wantText bool
	}{
		{"plain", []byte("The quick brown fox.\n\nJumps over the dog."), true},
		{"utf8", []byte("naïve café résumé\n"), true},
		{"json", []byte(`{"words": ["a", "b"]}`), true},
		{"png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01"), false},
		{"binary", []byte{0x00, 0x01, 0x02, 0x03, 0xfe, 0xff, 0x00, 0x10}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, ok := Sniff(tt.data)
			if ok != tt.wantText {
				t.Fatalf("Sniff() = %q, %v; want text=%v", mime, ok, tt.wantText)
			}
		})
	}
}

func TestIsPDF(t *testing.T) {
	if !IsPDF([]byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n")) {
		t.Fatal("PDF header not recognised")
	}
	if IsPDF([]byte("just text")) {
		t.Fatal("plain text detected as PDF")
	}
}

func TestPDFTextRejectsGarbage(t *testing.T) {
	_, err := PDFText([]byte(strings.Repeat("not a pdf ", 10)))
	if err == nil {
		t.Fatal("expected error for non-PDF input")
	}
}
