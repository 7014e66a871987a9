package app

import (
	"context"
	"fmt"
	"strings"

	"docchat/internal/model"
	"docchat/internal/platform/logger"
	"docchat/internal/repository"
)

type PurgePublisher interface {
	Publish(ctx context.Context, job model.DocumentPurge) error
}

type ChatService struct {
	chats        repository.ChatStore
	messages     repository.MessageStore
	documents    repository.DocumentStore
	historyCache HistoryCache
	publisher    PurgePublisher
	log          *logger.Logger
}

func NewChatService(
	chats repository.ChatStore,
	messages repository.MessageStore,
	documents repository.DocumentStore,
	historyCache HistoryCache,
	publisher PurgePublisher,
	log *logger.Logger,
) *ChatService {
	return &ChatService{
		chats:        chats,
		messages:     messages,
		documents:    documents,
		historyCache: historyCache,
		publisher:    publisher,
		log:          log.With("component", "chat_service"),
	}
}

// ListChats returns every chat, newest first.
func (s *ChatService) ListChats(ctx context.Context) ([]model.Chat, error) {
	chats, err := s.chats.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return chats, nil
}

// ListMessages returns the chat's messages in conversational order.
func (s *ChatService) ListMessages(ctx context.Context, chatID string) ([]model.Message, error) {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return nil, ErrInvalidRequest
	}

	if s.historyCache != nil {
		cached, hit, err := s.historyCache.Lookup(ctx, chatID)
		if err != nil {
			s.log.Warn("history cache lookup failed", "chat_id", chatID, "error", err)
		} else if hit {
			return cached, nil
		}
	}

	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}

	messages, err := s.messages.ListByChatID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if s.historyCache != nil {
		if _, err := s.historyCache.Fill(ctx, chatID, messages); err != nil {
			s.log.Warn("fill history cache failed", "chat_id", chatID, "error", err)
		}
	}
	return messages, nil
}

// DeleteChat removes the chat and its messages, then asks the purge worker
// to drop the document once nothing references it.
func (s *ChatService) DeleteChat(ctx context.Context, chatID string) error {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return ErrInvalidRequest
	}

	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if chat == nil {
		return ErrChatNotFound
	}

	if err := s.chats.DeleteWithMessages(ctx, chatID); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if s.historyCache != nil {
		if err := s.historyCache.Invalidate(ctx, chatID); err != nil {
			s.log.Warn("invalidate history cache failed", "chat_id", chatID, "error", err)
		}
	}

	s.enqueuePurge(ctx, chat.DocumentID)
	s.log.Info("chat deleted", "chat_id", chatID, "document_id", chat.DocumentID)
	return nil
}

// enqueuePurge is best effort; an orphaned document only costs storage.
func (s *ChatService) enqueuePurge(ctx context.Context, documentID string) {
	if s.publisher == nil {
		return
	}
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil || doc == nil {
		s.log.Warn("load document for purge failed", "document_id", documentID, "error", err)
		return
	}
	if err := s.publisher.Publish(ctx, model.DocumentPurge{DocumentID: doc.ID, FilePath: doc.FilePath}); err != nil {
		s.log.Warn("publish document purge failed", "document_id", documentID, "error", err)
	}
}
