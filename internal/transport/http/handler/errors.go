package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docchat/internal/app"
	"docchat/internal/transport/http/response"
)

// writeError maps service errors onto the response envelope. Unknown errors
// become a 500 with the generic fallback message.
func writeError(c *gin.Context, err error, fallback string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeFileTooLarge, "file too large")
	case errors.Is(err, app.ErrInvalidRequest):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrChatNotFound):
		response.Error(c, http.StatusNotFound, response.CodeChatNotFound, app.ErrChatNotFound.Error())
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, app.ErrDocumentNotFound.Error())
	case errors.Is(err, app.ErrEmptyDocument):
		response.Error(c, http.StatusUnprocessableEntity, response.CodeEmptyDocument, app.ErrEmptyDocument.Error())
	case errors.Is(err, app.ErrProviderFailure):
		response.Error(c, http.StatusBadGateway, response.CodeProviderFailure, app.ErrProviderFailure.Error())
	case errors.Is(err, app.ErrStorage):
		response.Error(c, http.StatusInternalServerError, response.CodeStorage, fallback)
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
