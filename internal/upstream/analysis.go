package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/RishiKendai/textscan/internal/models"
)

// AnalysisClient talks to the analysis service.
type AnalysisClient struct {
	*Client
}

func NewAnalysisClient(baseURL string, timeout time.Duration) *AnalysisClient {
	return &AnalysisClient{Client: NewClient("analysis", baseURL, timeout)}
}

func (c *AnalysisClient) Analyze(ctx context.Context, fileID string) (models.AnalyzeResult, error) {
	var result models.AnalyzeResult
	if err := c.doJSON(ctx, http.MethodPost, "/analyze", models.AnalyzeRequest{FileID: fileID}, &result); err != nil {
		return models.AnalyzeResult{}, fmt.Errorf("analyze %s: %w", fileID, err)
	}
	return result, nil
}

func (c *AnalysisClient) Stats(ctx context.Context, fileID string) (models.StatsResponse, error) {
	var stats models.StatsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/stats/"+url.PathEscape(fileID), nil, &stats); err != nil {
		return models.StatsResponse{}, fmt.Errorf("stats %s: %w", fileID, err)
	}
	return stats, nil
}

func (c *AnalysisClient) Compare(ctx context.Context, fileID, otherFileID string) (models.ComparisonResult, error) {
	var result models.ComparisonResult
	req := models.CompareRequest{FileID: fileID, OtherFileID: otherFileID}
	if err := c.doJSON(ctx, http.MethodPost, "/compare", req, &result); err != nil {
		return models.ComparisonResult{}, fmt.Errorf("compare %s/%s: %w", fileID, otherFileID, err)
	}
	return result, nil
}

func (c *AnalysisClient) CompareText(ctx context.Context, req models.CompareTextRequest) (models.ComparisonResult, error) {
	var result models.ComparisonResult
	err := c.doJSON(ctx, http.MethodPost, "/compare/text", req, &result)
	return result, err
}

func (c *AnalysisClient) CompareBatch(ctx context.Context, req models.BatchCompareRequest) (models.BatchCompareResponse, error) {
	var resp models.BatchCompareResponse
	if err := c.doJSON(ctx, http.MethodPost, "/compare/batch", req, &resp); err != nil {
		return models.BatchCompareResponse{}, fmt.Errorf("batch compare %s: %w", req.FileID, err)
	}
	return resp, nil
}

func (c *AnalysisClient) Report(ctx context.Context, reportID string) (models.ReportResponse, error) {
	var resp models.ReportResponse
	if err := c.doJSON(ctx, http.MethodGet, "/reports/"+url.PathEscape(reportID), nil, &resp); err != nil {
		return models.ReportResponse{}, fmt.Errorf("report %s: %w", reportID, err)
	}
	return resp, nil
}

func (c *AnalysisClient) Cloud(ctx context.Context, fileID string) (models.WordCloud, error) {
	var cloud models.WordCloud
	if err := c.doJSON(ctx, http.MethodGet, "/cloud/"+url.PathEscape(fileID), nil, &cloud); err != nil {
		return models.WordCloud{}, fmt.Errorf("cloud %s: %w", fileID, err)
	}
	return cloud, nil
}

// CloudImage returns the rendered PNG and its content type.
func (c *AnalysisClient) CloudImage(ctx context.Context, fileID string) ([]byte, string, error) {
	data, header, err := c.do(ctx, http.MethodGet, "/cloud/"+url.PathEscape(fileID)+"/image", nil, "")
	if err != nil {
		return nil, "", fmt.Errorf("cloud image %s: %w", fileID, err)
	}
	return data, header.Get("Content-Type"), nil
}

func (c *AnalysisClient) DeleteCache(ctx context.Context, fileID string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/cache/"+url.PathEscape(fileID), nil, nil); err != nil {
		return fmt.Errorf("delete cache %s: %w", fileID, err)
	}
	return nil
}

func unmarshal(data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
