package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/RishiKendai/textscan/internal/storage"
	"github.com/gin-gonic/gin"
)

// StorageHandler serves the storage service endpoints.
type StorageHandler struct {
	svc      *storage.Service
	maxBytes int64
}

func NewStorageHandler(svc *storage.Service, maxBytes int64) *StorageHandler {
	return &StorageHandler{svc: svc, maxBytes: maxBytes}
}

func (h *StorageHandler) Upload(c *gin.Context) {
	name, data, ok := readUpload(c, h.maxBytes)
	if !ok {
		return
	}

	result, err := h.svc.Upload(c.Request.Context(), name, data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *StorageHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.List())
}

func (h *StorageHandler) Content(c *gin.Context) {
	id := c.Param("id")
	if !validID(c, id) {
		return
	}
	data, err := h.svc.Content(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
}

func (h *StorageHandler) Metadata(c *gin.Context) {
	id := c.Param("id")
	if !validID(c, id) {
		return
	}
	rec, err := h.svc.Metadata(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *StorageHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if !validID(c, id) {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// readUpload pulls the multipart "file" field, answering 400 or 413 itself
// when the request cannot be used.
func readUpload(c *gin.Context, maxBytes int64) (string, []byte, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "No file uploaded")
		return "", nil, false
	}
	if maxBytes > 0 && header.Size > maxBytes {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error: fmt.Sprintf("File exceeds the %d byte limit", maxBytes),
			Code:  "FILE_TOO_LARGE",
		})
		return "", nil, false
	}

	f, err := header.Open()
	if err != nil {
		badRequest(c, "Unreadable upload")
		return "", nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		badRequest(c, "Unreadable upload")
		return "", nil, false
	}
	return header.Filename, data, true
}
