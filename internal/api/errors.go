package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/RishiKendai/textscan/internal/analysis"
	"github.com/RishiKendai/textscan/internal/identity"
	"github.com/RishiKendai/textscan/internal/similarity"
	"github.com/RishiKendai/textscan/internal/storage"
	"github.com/RishiKendai/textscan/internal/upstream"
	"github.com/RishiKendai/textscan/internal/wordcloud"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// respondError writes the ErrorResponse that matches err and aborts the chain.
func respondError(c *gin.Context, err error) {
	status, resp := classify(err)
	event := log.Debug()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).
		Str("path", c.FullPath()).
		Int("status", status).
		Msg("Request failed")

	c.AbortWithStatusJSON(status, resp)
}

func classify(err error) (int, ErrorResponse) {
	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Status < http.StatusInternalServerError:
			return statusErr.Status, ErrorResponse{Error: statusErr.Message, Code: codeOr(statusErr.Code, statusErr.Status)}
		case statusErr.Code == "SERVICE_UNAVAILABLE":
			return http.StatusServiceUnavailable, ErrorResponse{Error: statusErr.Message, Code: statusErr.Code}
		}
	}

	switch {
	case errors.Is(err, storage.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, ErrorResponse{Error: err.Error(), Code: "FILE_TOO_LARGE"}
	case errors.Is(err, storage.ErrValidation),
		errors.Is(err, similarity.ErrInvalidArgument),
		errors.Is(err, wordcloud.ErrEmptyText):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"}
	case errors.Is(err, analysis.ErrReportNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "Report not found", Code: "NOT_FOUND"}
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, identity.ErrNotFound),
		errors.Is(err, similarity.ErrNotFound),
		errors.Is(err, upstream.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "File not found", Code: "NOT_FOUND"}
	case errors.Is(err, upstream.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorResponse{Error: "Upstream service timed out", Code: "UPSTREAM_TIMEOUT"}
	case errors.Is(err, wordcloud.ErrUnavailable):
		return http.StatusServiceUnavailable, ErrorResponse{Error: "Word cloud service temporarily unavailable", Code: "SERVICE_UNAVAILABLE"}
	case errors.Is(err, similarity.ErrUnavailable), errors.Is(err, upstream.ErrUnavailable):
		return http.StatusBadGateway, ErrorResponse{Error: "Upstream service unavailable", Code: "UPSTREAM_ERROR"}
	}
	return http.StatusInternalServerError, ErrorResponse{Error: "Internal server error", Code: "INTERNAL_ERROR"}
}

func codeOr(code string, status int) string {
	if code != "" {
		return code
	}
	switch status {
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusRequestEntityTooLarge:
		return "FILE_TOO_LARGE"
	case http.StatusTooManyRequests:
		return "RATE_LIMIT_EXCEEDED"
	}
	return "INVALID_REQUEST"
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: "INVALID_REQUEST"})
}

// validID checks that id is a UUID and answers 400 when it is not.
func validID(c *gin.Context, id string) bool {
	if id == "" {
		badRequest(c, "File ID cannot be empty")
		return false
	}
	if _, err := uuid.Parse(id); err != nil {
		badRequest(c, "Invalid file ID format")
		return false
	}
	return true
}
