package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/RishiKendai/textscan/internal/analysis"
	"github.com/RishiKendai/textscan/internal/similarity"
	"github.com/RishiKendai/textscan/internal/storage"
	"github.com/RishiKendai/textscan/internal/upstream"
	"github.com/RishiKendai/textscan/internal/wordcloud"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", fmt.Errorf("%w: only .txt", storage.ErrValidation), http.StatusBadRequest, "INVALID_REQUEST"},
		{"too large", fmt.Errorf("%w: 2MB", storage.ErrTooLarge), http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
		{"missing file", fmt.Errorf("file x: %w", similarity.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"missing report", analysis.ErrReportNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"storage down", fmt.Errorf("file x: %w: boom", similarity.ErrUnavailable), http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"storage slow", fmt.Errorf("file x: %w: %w", similarity.ErrUnavailable, upstream.ErrTimeout), http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT"},
		{"renderer down", fmt.Errorf("%w: status 500", wordcloud.ErrUnavailable), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"upstream 400", &upstream.StatusError{Status: 400, Message: "bad", Code: "INVALID_REQUEST"}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"upstream 413", &upstream.StatusError{Status: 413, Message: "big"}, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
		{"upstream 500", &upstream.StatusError{Status: 500, Message: "oops", Code: "INTERNAL_ERROR"}, http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"upstream 504", &upstream.StatusError{Status: 504, Code: "UPSTREAM_TIMEOUT"}, http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT"},
		{"upstream 503 renderer", &upstream.StatusError{Status: 503, Code: "SERVICE_UNAVAILABLE"}, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := classify(tt.err)
			if status != tt.status || resp.Code != tt.code {
				t.Fatalf("classify() = %d %s, want %d %s", status, resp.Code, tt.status, tt.code)
			}
		})
	}
}
