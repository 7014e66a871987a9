package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"docchat/internal/app"
	"docchat/internal/platform/logger"
	"docchat/internal/transport/http/response"
)

type ChatHandler struct {
	turns *app.TurnService
	chats *app.ChatService
	log   *logger.Logger
}

type ChatRequest struct {
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

func NewChatHandler(turns *app.TurnService, chats *app.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{turns: turns, chats: chats, log: log.With("component", "chat_handler")}
}

// Turn streams the assistant answer as raw text fragments. Errors found
// before the first fragment get a JSON envelope; once the body has started
// the connection is dropped so the client sees a truncated stream.
func (h *ChatHandler) Turn(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	turn, err := h.turns.Start(c.Request.Context(), app.TurnInput{ChatID: req.ChatID, Message: req.Message})
	if err != nil {
		writeError(c, err, "start chat turn failed")
		return
	}

	started := false
	begin := func() {
		started = true
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)
		c.Writer.WriteHeaderNow()
	}

	err = turn.Relay(c.Request.Context(), func(fragment string) error {
		if !started {
			begin()
		}
		if _, err := c.Writer.WriteString(fragment); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	})

	switch {
	case err == nil:
		if !started {
			begin()
		}
	case started:
		h.log.Warn("aborting stream",
			"chat_id", req.ChatID,
			"trace_id", trace.SpanContextFromContext(c.Request.Context()).TraceID().String(),
			"error", err,
		)
		panic(http.ErrAbortHandler)
	case errors.Is(err, app.ErrTurnAborted):
		c.Abort()
	default:
		writeError(c, err, "chat turn failed")
	}
}

func (h *ChatHandler) ListChats(c *gin.Context) {
	chats, err := h.chats.ListChats(c.Request.Context())
	if err != nil {
		writeError(c, err, "list chats failed")
		return
	}
	response.OK(c, chats)
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	messages, err := h.chats.ListMessages(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "list messages failed")
		return
	}
	response.OK(c, messages)
}

func (h *ChatHandler) DeleteChat(c *gin.Context) {
	chatID := c.Param("id")
	if err := h.chats.DeleteChat(c.Request.Context(), chatID); err != nil {
		writeError(c, err, "delete chat failed")
		return
	}
	response.OK(c, gin.H{"deleted_chat_id": chatID})
}
