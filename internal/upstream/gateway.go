package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/RishiKendai/textscan/internal/models"
)

// GatewayClient is what the CLI uses; it only ever talks to the gateway.
type GatewayClient struct {
	*Client
	storage *StorageClient
}

func NewGatewayClient(baseURL string, timeout time.Duration) *GatewayClient {
	c := NewClient("gateway", baseURL, timeout)
	return &GatewayClient{
		Client:  c,
		storage: &StorageClient{Client: &Client{service: "gateway", baseURL: c.baseURL + "/api", httpClient: c.httpClient}},
	}
}

// Upload posts to /api/upload, which stores and analyzes in one call.
func (c *GatewayClient) Upload(ctx context.Context, filename string, data []byte) (models.GatewayUpload, error) {
	body, err := c.storage.uploadRaw(ctx, "/upload", filename, data)
	if err != nil {
		return models.GatewayUpload{}, err
	}
	var result models.GatewayUpload
	if err := unmarshal(body, &result); err != nil {
		return models.GatewayUpload{}, err
	}
	return result, nil
}

func (c *GatewayClient) Files(ctx context.Context) (models.FileList, error) {
	return c.storage.List(ctx)
}

func (c *GatewayClient) Delete(ctx context.Context, fileID string) error {
	return c.storage.Delete(ctx, fileID)
}

func (c *GatewayClient) Stats(ctx context.Context, fileID string) (models.StatsResponse, error) {
	var stats models.StatsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/stats/"+url.PathEscape(fileID), nil, &stats); err != nil {
		return models.StatsResponse{}, fmt.Errorf("stats %s: %w", fileID, err)
	}
	return stats, nil
}

func (c *GatewayClient) Compare(ctx context.Context, fileID, otherFileID string) (models.ComparisonResult, error) {
	var result models.ComparisonResult
	req := models.CompareRequest{FileID: fileID, OtherFileID: otherFileID}
	if err := c.doJSON(ctx, http.MethodPost, "/api/compare", req, &result); err != nil {
		return models.ComparisonResult{}, fmt.Errorf("compare %s/%s: %w", fileID, otherFileID, err)
	}
	return result, nil
}

func (c *GatewayClient) CompareText(ctx context.Context, a, b string) (models.ComparisonResult, error) {
	var result models.ComparisonResult
	err := c.doJSON(ctx, http.MethodPost, "/api/compare/text", models.CompareTextRequest{TextA: &a, TextB: &b}, &result)
	return result, err
}

func (c *GatewayClient) Cloud(ctx context.Context, fileID string) (models.WordCloud, error) {
	var cloud models.WordCloud
	if err := c.doJSON(ctx, http.MethodGet, "/api/cloud/"+url.PathEscape(fileID), nil, &cloud); err != nil {
		return models.WordCloud{}, fmt.Errorf("cloud %s: %w", fileID, err)
	}
	return cloud, nil
}

// HealthReport returns the aggregated health document of the gateway.
func (c *GatewayClient) HealthReport(ctx context.Context) (map[string]string, error) {
	var report map[string]string
	err := c.doJSON(ctx, http.MethodGet, "/api/health", nil, &report)
	return report, err
}
