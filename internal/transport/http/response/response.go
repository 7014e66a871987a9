// Package response writes the JSON envelope shared by every non-streaming
// endpoint.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

const (
	CodeOK               = 0
	CodeBadRequest       = 40000
	CodeChatNotFound     = 40401
	CodeDocumentNotFound = 40402
	CodeRouteNotFound    = 40404
	CodeFileTooLarge     = 41301
	CodeEmptyDocument    = 42201
	CodeInternalServer   = 50000
	CodeStorage          = 50001
	CodeProviderFailure  = 50201
)

type APIResponse struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Code:      CodeOK,
		Message:   "ok",
		Data:      data,
		RequestID: c.GetString(RequestIDKey),
	})
}

// Error writes the envelope and stops the remaining handlers.
func Error(c *gin.Context, httpStatus, code int, message string) {
	c.AbortWithStatusJSON(httpStatus, APIResponse{
		Code:      code,
		Message:   message,
		RequestID: c.GetString(RequestIDKey),
	})
}
