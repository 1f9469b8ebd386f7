// Package upstream holds the HTTP clients the services use to call each other.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/RishiKendai/textscan/internal/tracing"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotFound    = errors.New("upstream: not found")
	ErrUnavailable = errors.New("upstream: unavailable")
	ErrTimeout     = errors.New("upstream: timed out")
)

// StatusError is a non-2xx answer from an upstream service.
type StatusError struct {
	Service string
	Status  int
	Message string
	Code    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Service, e.Status, e.Message)
}

// Is lets callers match a StatusError against the package sentinels.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrTimeout:
		return e.Status == http.StatusGatewayTimeout
	case ErrUnavailable:
		return e.Status >= 500 && e.Status != http.StatusGatewayTimeout
	}
	return false
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Client is the shared plumbing of the service clients.
type Client struct {
	service    string
	baseURL    string
	httpClient *http.Client
}

func NewClient(service, baseURL string, timeout time.Duration) *Client {
	return &Client{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: tracing.Transport(http.DefaultTransport),
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, http.Header, error) {
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, c.transportError(method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s response: %w: %v", c.service, ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{Service: c.service, Status: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil && eb.Error != "" {
			statusErr.Message, statusErr.Code = eb.Error, eb.Code
		} else {
			statusErr.Message = strings.TrimSpace(string(data))
		}
		log.Debug().
			Str("service", c.service).
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg("Upstream returned error")
		return nil, nil, statusErr
	}

	return data, resp.Header, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	data, _, err := c.do(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s response: %w", c.service, err)
	}
	return nil
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) error {
	_, _, err := c.do(ctx, http.MethodGet, "/health", nil, "")
	return err
}

func (c *Client) transportError(method, path string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%s %s %s: %w", c.service, method, path, ErrTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%s %s %s: %w: %v", c.service, method, path, ErrUnavailable, err)
}
