package upstream

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/RishiKendai/textscan/internal/models"
)

// StorageClient talks to the storage service.
type StorageClient struct {
	*Client
}

func NewStorageClient(baseURL string, timeout time.Duration) *StorageClient {
	return &StorageClient{Client: NewClient("storage", baseURL, timeout)}
}

// GetContent downloads the stored bytes of fileID.
func (c *StorageClient) GetContent(ctx context.Context, fileID string) ([]byte, error) {
	data, _, err := c.do(ctx, http.MethodGet, "/files/"+url.PathEscape(fileID), nil, "")
	if err != nil {
		return nil, fmt.Errorf("get content %s: %w", fileID, err)
	}
	return data, nil
}

// Upload sends one file as the multipart field "file".
func (c *StorageClient) Upload(ctx context.Context, filename string, data []byte) (models.UploadResult, error) {
	body, err := c.uploadRaw(ctx, "/files", filename, data)
	if err != nil {
		return models.UploadResult{}, err
	}
	var result models.UploadResult
	if err := unmarshal(body, &result); err != nil {
		return models.UploadResult{}, err
	}
	return result, nil
}

func (c *StorageClient) uploadRaw(ctx context.Context, path, filename string, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	body, _, err := c.do(ctx, http.MethodPost, path, &buf, mw.FormDataContentType())
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", filename, err)
	}
	return body, nil
}

func (c *StorageClient) List(ctx context.Context) (models.FileList, error) {
	var list models.FileList
	err := c.doJSON(ctx, http.MethodGet, "/files", nil, &list)
	return list, err
}

func (c *StorageClient) Metadata(ctx context.Context, fileID string) (models.FileRecord, error) {
	var rec models.FileRecord
	if err := c.doJSON(ctx, http.MethodGet, "/files/"+url.PathEscape(fileID)+"/metadata", nil, &rec); err != nil {
		return models.FileRecord{}, fmt.Errorf("metadata %s: %w", fileID, err)
	}
	return rec, nil
}

func (c *StorageClient) Delete(ctx context.Context, fileID string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/files/"+url.PathEscape(fileID), nil, nil); err != nil {
		return fmt.Errorf("delete %s: %w", fileID, err)
	}
	return nil
}
