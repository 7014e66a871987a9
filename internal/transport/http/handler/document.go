package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docchat/internal/app"
	"docchat/internal/transport/http/response"
)

// multipart framing allowance on top of the file limit
const multipartOverhead = 1 << 20

type DocumentHandler struct {
	documents *app.DocumentService
	maxBytes  int64
}

func NewDocumentHandler(documents *app.DocumentService, maxBytes int64) *DocumentHandler {
	return &DocumentHandler{documents: documents, maxBytes: maxBytes}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)
	}

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, err, "")
			return
		}
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	result, err := h.documents.Upload(c.Request.Context(), app.UploadInput{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
		Reader:      f,
	})
	if err != nil {
		writeError(c, err, "upload failed")
		return
	}

	response.OK(c, gin.H{
		"message":  "File uploaded and chat created successfully",
		"chat":     result.Chat,
		"document": result.Document,
	})
}

func (h *DocumentHandler) DownloadURL(c *gin.Context) {
	url, err := h.documents.DownloadURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "presign download failed")
		return
	}
	response.OK(c, gin.H{"url": url})
}
