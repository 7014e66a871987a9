package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"docchat/internal/ai"
	"docchat/internal/metrics"
	"docchat/internal/model"
	"docchat/internal/platform/logger"
	"docchat/internal/repository"
)

const defaultSystemPrompt = "You are a helpful assistant. You will be provided with the text from a document, " +
	"and you should answer the user's questions based on that document. Give answers in a readable format."

// CompletionStreamer is the streaming side of an OpenAI compatible provider.
type CompletionStreamer interface {
	StreamComplete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage, onChunk func(chunk string) error) (string, error)
}

// HistoryCache caches the message list of a chat. Fill reports false when
// the chat changed recently and the list was not stored.
type HistoryCache interface {
	Lookup(ctx context.Context, chatID string) ([]model.Message, bool, error)
	Fill(ctx context.Context, chatID string, messages []model.Message) (bool, error)
	Invalidate(ctx context.Context, chatID string) error
}

type TurnConfig struct {
	LLM          ai.ChatConfig
	SystemPrompt string
	// BufferSize is how many fragments the provider may run ahead of the client.
	BufferSize int
	Timeout    time.Duration
}

type TurnInput struct {
	ChatID  string
	Message string
}

// TurnService answers one user message about the chat's document and
// streams the answer back while it is generated.
type TurnService struct {
	documents repository.DocumentStore
	messages  repository.MessageStore
	cache     HistoryCache
	llm       CompletionStreamer
	cfg       TurnConfig
	metrics   *metrics.Metrics
	log       *logger.Logger
}

func NewTurnService(
	documents repository.DocumentStore,
	messages repository.MessageStore,
	cache HistoryCache,
	llm CompletionStreamer,
	cfg TurnConfig,
	m *metrics.Metrics,
	log *logger.Logger,
) *TurnService {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 16
	}
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	return &TurnService{
		documents: documents,
		messages:  messages,
		cache:     cache,
		llm:       llm,
		cfg:       cfg,
		metrics:   m,
		log:       log.With("component", "turn_service"),
	}
}

// Turn is a validated chat turn whose user message is already stored.
// Relay must be called at most once.
type Turn struct {
	service     *TurnService
	chatID      string
	prompt      []ai.ChatMessage
	UserMessage *model.Message
}

// Start validates the input, loads the document text and stores the user
// message. Nothing is written and the provider is not called when it fails.
func (s *TurnService) Start(ctx context.Context, in TurnInput) (*Turn, error) {
	chatID := strings.TrimSpace(in.ChatID)
	if chatID == "" || strings.TrimSpace(in.Message) == "" {
		return nil, ErrInvalidRequest
	}

	doc, err := s.documents.GetByChatID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if doc == nil {
		return nil, ErrChatNotFound
	}
	if strings.TrimSpace(doc.Content) == "" {
		return nil, ErrEmptyDocument
	}

	userMessage, err := s.appendMessage(ctx, chatID, model.RoleUser, in.Message)
	if err != nil {
		return nil, err
	}

	return &Turn{
		service:     s,
		chatID:      chatID,
		prompt:      s.buildPrompt(doc.Content, in.Message),
		UserMessage: userMessage,
	}, nil
}

// Relay streams the completion to sink fragment by fragment and stores the
// assistant message once the provider has finished. Fragments already passed
// to sink stay delivered when Relay fails. A failed assistant write is only
// logged, the caller has the full text at that point.
func (t *Turn) Relay(ctx context.Context, sink func(fragment string) error) error {
	s := t.service
	started := time.Now()

	ctx, span := otel.Tracer("docchat/app").Start(ctx, "relay.turn")
	span.SetAttributes(attribute.String("chat.id", t.chatID))
	defer span.End()

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	fragments := make(chan string, s.cfg.BufferSize)
	var answer strings.Builder
	var sent int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(fragments)
		_, err := s.llm.StreamComplete(gctx, s.cfg.LLM, t.prompt, func(chunk string) error {
			if chunk == "" {
				return nil
			}
			answer.WriteString(chunk)
			select {
			case fragments <- chunk:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
		if err != nil {
			return fmt.Errorf("%w: %w", ErrProviderFailure, err)
		}
		return nil
	})
	g.Go(func() error {
		for fragment := range fragments {
			if err := sink(fragment); err != nil {
				return fmt.Errorf("%w: %w", ErrTurnAborted, err)
			}
			sent++
			s.metrics.TurnFragments.Inc()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		outcome := metrics.OutcomeProviderFailure
		if !errors.Is(err, ErrTurnAborted) && errors.Is(ctx.Err(), context.Canceled) {
			err = fmt.Errorf("%w: %w", ErrTurnAborted, err)
		}
		if errors.Is(err, ErrTurnAborted) {
			outcome = metrics.OutcomeAborted
		}
		s.metrics.ObserveTurn(outcome, started)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		s.log.Warn("turn failed", "chat_id", t.chatID, "outcome", outcome, "fragments_sent", sent, "error", err)
		return err
	}

	// The client already has the whole answer; do not lose the write to a
	// disconnect that happened after the last fragment.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if _, err := s.appendMessage(writeCtx, t.chatID, model.RoleAssistant, answer.String()); err != nil {
		s.metrics.ObserveTurn(metrics.OutcomePersistFailed, started)
		span.RecordError(err)
		s.log.Error("persist assistant message failed", "chat_id", t.chatID, "chars", answer.Len(), "error", err)
		return nil
	}

	s.metrics.ObserveTurn(metrics.OutcomeCompleted, started)
	s.log.Info("turn completed", "chat_id", t.chatID, "fragments", sent, "chars", answer.Len(),
		"elapsed_ms", time.Since(started).Milliseconds())
	return nil
}

func (s *TurnService) buildPrompt(documentText, userMessage string) []ai.ChatMessage {
	return []ai.ChatMessage{
		{
			Role:    ai.RoleSystem,
			Content: s.cfg.SystemPrompt + "\n\nHere is the document content:\n\n" + documentText,
		},
		{Role: ai.RoleUser, Content: userMessage},
	}
}

func (s *TurnService) appendMessage(ctx context.Context, chatID string, role model.Role, content string) (*model.Message, error) {
	msg := &model.Message{
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, chatID); err != nil {
			s.log.Warn("invalidate history cache failed", "chat_id", chatID, "error", err)
		}
	}
	return msg, nil
}
