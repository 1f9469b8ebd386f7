package api

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/RishiKendai/textscan/internal/models"
	"github.com/RishiKendai/textscan/internal/upstream"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// GatewayHandler fronts the storage and analysis services.
type GatewayHandler struct {
	storage   *upstream.StorageClient
	analysis  *upstream.AnalysisClient
	maxUpload int64
}

func NewGatewayHandler(storage *upstream.StorageClient, analysis *upstream.AnalysisClient, maxUpload int64) *GatewayHandler {
	return &GatewayHandler{
		storage:   storage,
		analysis:  analysis,
		maxUpload: maxUpload,
	}
}

// Health reports the gateway and the reachability of both upstreams.
func (h *GatewayHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	status := map[string]string{"gateway": "ok"}

	var mu sync.Mutex
	var wg sync.WaitGroup
	check := func(name string, probe func(context.Context) error) {
		defer wg.Done()
		result := "ok"
		if err := probe(ctx); err != nil {
			log.Warn().Err(err).Str("service", name).Msg("Health check failed")
			result = "error"
		}
		mu.Lock()
		status[name] = result
		mu.Unlock()
	}
	wg.Add(2)
	go check("storage", h.storage.Health)
	go check("analysis", h.analysis.Health)
	wg.Wait()

	c.JSON(http.StatusOK, status)
}

// Upload stores a file and analyzes it in one call.
func (h *GatewayHandler) Upload(c *gin.Context) {
	name, data, ok := readUpload(c, h.maxUpload)
	if !ok {
		return
	}
	if strings.ToLower(filepath.Ext(name)) != ".txt" {
		badRequest(c, "Only .txt files are allowed")
		return
	}
	ctx := c.Request.Context()

	stored, err := h.storage.Upload(ctx, name, data)
	if err != nil {
		respondError(c, err)
		return
	}

	// Storage owns the canonical record; its verdict wins.
	if stored.DuplicateOf != nil {
		c.JSON(http.StatusOK, models.GatewayUpload{DuplicateOf: *stored.DuplicateOf})
		return
	}

	analyzed, err := h.analysis.Analyze(ctx, stored.FileID)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("file_id", stored.FileID).Msg("Analysis failed after upload")
	case analyzed.DuplicateOf != "":
		log.Warn().
			Str("file_id", stored.FileID).
			Str("analysis_duplicate_of", analyzed.DuplicateOf).
			Msg("Analysis disagrees with storage on canonical file")
	}
	c.JSON(http.StatusOK, models.GatewayUpload{FileID: stored.FileID, Stats: &stored.Stats})
}

func (h *GatewayHandler) UploadFile(c *gin.Context) {
	name, data, ok := readUpload(c, h.maxUpload)
	if !ok {
		return
	}
	result, err := h.storage.Upload(c.Request.Context(), name, data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *GatewayHandler) ListFiles(c *gin.Context) {
	list, err := h.storage.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *GatewayHandler) FileContent(c *gin.Context) {
	id := c.Param("id")
	if !validID(c, id) {
		return
	}
	data, err := h.storage.GetContent(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
}

func (h *GatewayHandler) FileMetadata(c *gin.Context) {
	id := c.Param("id")
	if !validID(c, id) {
		return
	}
	rec, err := h.storage.Metadata(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// DeleteFile clears the analysis cache before deleting, while the content
// is still available to the analysis service.
func (h *GatewayHandler) DeleteFile(c *gin.Context) {
	id := c.Param("id")
	if !validID(c, id) {
		return
	}
	ctx := c.Request.Context()

	if err := h.analysis.DeleteCache(ctx, id); err != nil {
		log.Warn().Err(err).Str("file_id", id).Msg("Failed to clear analysis cache")
	}
	if err := h.storage.Delete(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GatewayHandler) Stats(c *gin.Context) {
	id := c.Param("id")
	if !validID(c, id) {
		return
	}
	stats, err := h.analysis.Stats(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *GatewayHandler) Compare(c *gin.Context) {
	var req models.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Both file_id and other_file_id are required")
		return
	}
	if !validID(c, req.FileID) || !validID(c, req.OtherFileID) {
		return
	}
	result, err := h.analysis.Compare(c.Request.Context(), req.FileID, req.OtherFileID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *GatewayHandler) CompareText(c *gin.Context) {
	var req models.CompareTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if req.TextA == nil || req.TextB == nil {
		badRequest(c, "Both text_a and text_b are required")
		return
	}
	result, err := h.analysis.CompareText(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *GatewayHandler) CompareBatch(c *gin.Context) {
	var req models.BatchCompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "file_id and a non-empty candidates list are required")
		return
	}
	resp, err := h.analysis.CompareBatch(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

func (h *GatewayHandler) Report(c *gin.Context) {
	resp, err := h.analysis.Report(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *GatewayHandler) Cloud(c *gin.Context) {
	id := c.Param("id")
	if !validID(c, id) {
		return
	}
	cloud, err := h.analysis.Cloud(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cloud)
}

func (h *GatewayHandler) CloudImage(c *gin.Context) {
	id := c.Param("id")
	if !validID(c, id) {
		return
	}
	img, contentType, err := h.analysis.CloudImage(c.Request.Context(), id)
	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) && statusErr.Status == http.StatusServiceUnavailable {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Error: statusErr.Message, Code: "SERVICE_UNAVAILABLE"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, img)
}
