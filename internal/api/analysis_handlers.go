package api

import (
	"errors"
	"net/http"

	"github.com/RishiKendai/textscan/internal/analysis"
	"github.com/RishiKendai/textscan/internal/models"
	"github.com/RishiKendai/textscan/internal/similarity"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// AnalysisHandler serves the analysis service endpoints.
type AnalysisHandler struct {
	svc *analysis.Service
}

func NewAnalysisHandler(svc *analysis.Service) *AnalysisHandler {
	return &AnalysisHandler{svc: svc}
}

func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req models.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "file_id is required")
		return
	}
	if !validID(c, req.FileID) {
		return
	}

	result, err := h.svc.Analyze(c.Request.Context(), req.FileID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AnalysisHandler) Stats(c *gin.Context) {
	id := c.Param("id")
	if !validID(c, id) {
		return
	}
	stats, err := h.svc.Stats(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AnalysisHandler) Compare(c *gin.Context) {
	var req models.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Both file_id and other_file_id are required")
		return
	}
	if !validID(c, req.FileID) || !validID(c, req.OtherFileID) {
		return
	}

	result, err := h.svc.Compare(c.Request.Context(), req.FileID, req.OtherFileID)
	if errors.Is(err, similarity.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: "One or both files not found", Code: "NOT_FOUND"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AnalysisHandler) CompareText(c *gin.Context) {
	var req models.CompareTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	result, err := h.svc.CompareText(req)
	if errors.Is(err, similarity.ErrInvalidArgument) {
		badRequest(c, "Both text_a and text_b are required")
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AnalysisHandler) CompareBatch(c *gin.Context) {
	var req models.BatchCompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "file_id and a non-empty candidates list are required")
		return
	}
	if !validID(c, req.FileID) {
		return
	}
	for _, id := range req.Candidates {
		if !validID(c, id) {
			return
		}
	}

	resp, err := h.svc.BatchCompare(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

func (h *AnalysisHandler) Report(c *gin.Context) {
	resp, err := h.svc.Report(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AnalysisHandler) Cloud(c *gin.Context) {
	id := c.Param("id")
	if !validID(c, id) {
		return
	}
	cloud, err := h.svc.CloudURL(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cloud)
}

func (h *AnalysisHandler) CloudImage(c *gin.Context) {
	id := c.Param("id")
	if !validID(c, id) {
		return
	}
	img, contentType, err := h.svc.CloudImage(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if contentType == "" {
		contentType = "image/png"
	}
	c.Data(http.StatusOK, contentType, img)
}

func (h *AnalysisHandler) DeleteCache(c *gin.Context) {
	id := c.Param("id")
	if !validID(c, id) {
		return
	}
	if err := h.svc.Invalidate(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	log.Info().Str("file_id", id).Msg("File removed from analysis cache")
	c.JSON(http.StatusOK, gin.H{"message": "File removed from cache", "file_id": id})
}
